package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "incidence-forecast",
		Short: "Monthly disease incidence histories and forecasts",
		Long: `Resolves a monthly incidence history for a disease and region from a live
API, a local dataset or a synthetic baseline, and forecasts it forward.
Configuration comes from the environment (and .env when present).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(forecastCmd())
	root.AddCommand(trainCmd())
	root.AddCommand(mergeCmd())
	return root
}
