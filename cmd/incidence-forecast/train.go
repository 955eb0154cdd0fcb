package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func trainCmd() *cobra.Command {
	var disease, region, predict string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit and persist a model from the local dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApplication(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			defer a.close()

			out := map[string]any{}
			sum, err := a.service.TrainModel(cmd.Context(), disease, region)
			if err != nil {
				return err
			}
			out["model"] = sum

			if predict != "" {
				month, err := time.Parse("2006-01", predict)
				if err != nil {
					return fmt.Errorf("--predict: want YYYY-MM: %w", err)
				}
				p, err := a.service.PredictMonth(cmd.Context(), disease, region, month)
				if err != nil {
					return err
				}
				out["prediction"] = p
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&disease, "disease", "", "Disease name")
	cmd.Flags().StringVar(&region, "region", "", "Country name or ISO code")
	cmd.Flags().StringVar(&predict, "predict", "", "Also predict this month (YYYY-MM)")
	_ = cmd.MarkFlagRequired("disease")
	_ = cmd.MarkFlagRequired("region")
	return cmd
}
