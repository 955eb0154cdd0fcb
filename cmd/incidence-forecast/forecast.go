package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/incidence-forecast/internal/incidence"
	"github.com/i474232898/incidence-forecast/internal/series"
)

func forecastCmd() *cobra.Command {
	var (
		disease, region string
		from, to        string
		horizon         int
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Print a forecast for one disease and region as JSON",
		Example: `  incidence-forecast forecast --disease covid --region "Sri Lanka" --horizon 6
  incidence-forecast forecast --disease dengue --region LKA --from 2018-01-01 --to 2023-12-31`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := incidence.Query{Disease: disease, Region: region}
			var err error
			if q.From, err = parseDay(from); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if q.To, err = parseDay(to); err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			a, err := newApplication(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			defer a.close()

			if horizon <= 0 {
				horizon = a.cfg.DefaultHorizon
			}
			if horizon > a.cfg.MaxHorizon {
				return fmt.Errorf("--horizon must be within 1..%d, got %d", a.cfg.MaxHorizon, horizon)
			}
			res, err := a.service.ForecastMonthly(cmd.Context(), q, horizon)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&disease, "disease", "", "Disease name, e.g. covid, dengue")
	cmd.Flags().StringVar(&region, "region", "", "Country name or ISO code")
	cmd.Flags().StringVar(&from, "from", "", "Window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Window end (YYYY-MM-DD)")
	cmd.Flags().IntVar(&horizon, "horizon", 0, "Months to forecast (default DEFAULT_HORIZON)")
	_ = cmd.MarkFlagRequired("disease")
	_ = cmd.MarkFlagRequired("region")
	return cmd
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(series.DateLayout, s)
}
