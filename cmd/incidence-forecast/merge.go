package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/i474232898/incidence-forecast/internal/sources"
)

func mergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <parts-dir> <out.csv>",
		Short: "Merge dataset CSV parts into one dataset file",
		Long: `Concatenates every *.csv in parts-dir, drops rows missing disease, date or
value, drops exact duplicates, sorts by disease, region and date, and writes
the result to out.csv.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := sources.MergeDir(args[0], args[1])
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
		},
	}
}
