package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/ivr-analytics/internal/analytics"
	"github.com/sells-group/ivr-analytics/internal/merge"
	"github.com/sells-group/ivr-analytics/internal/model"
	"github.com/sells-group/ivr-analytics/internal/report"
	"github.com/sells-group/ivr-analytics/internal/sample"
	"github.com/sells-group/ivr-analytics/internal/store"
	"github.com/sells-group/ivr-analytics/pkg/exotel"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the IVR funnel and cost report",
	Long:  "Joins Exotel call logs with stored IVR paths and prints funnel, completion, and per-path analytics. Use --sample to run against generated demo data.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		useSample, _ := cmd.Flags().GetBool("sample")
		out, _ := cmd.Flags().GetString("out")
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")
		limit, _ := cmd.Flags().GetInt("limit")

		var calls []model.MergedCall
		if useSample {
			calls = sample.Calls(200, cfg.Report.SampleDays, 1)
		} else {
			var err error
			calls, err = fetchMergedCalls(ctx, start, end, limit)
			if err != nil {
				return err
			}
		}

		formatReport(os.Stdout, calls, cfg.Report.TopPaths)

		if out != "" {
			details := analytics.PathDetails(calls)
			if err := report.WriteXLSX(out, details, calls); err != nil {
				return err
			}
			zap.L().Info("report written", zap.String("path", out))
		}

		return nil
	},
}

// fetchMergedCalls pulls the provider call log and the stored paths in
// parallel and joins them.
func fetchMergedCalls(ctx context.Context, start, end string, limit int) ([]model.MergedCall, error) {
	if !cfg.Exotel.Configured() {
		return nil, eris.New("exotel credentials are not configured (IVR_EXOTEL_SID / IVR_EXOTEL_API_KEY / IVR_EXOTEL_API_TOKEN); use --sample for demo data")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return nil, err
	}

	client := exotel.NewClient(cfg.Exotel.SID, cfg.Exotel.APIKey, cfg.Exotel.APIToken,
		exotel.WithBaseURL(cfg.Exotel.BaseURL),
		exotel.WithPageSize(cfg.Exotel.PageSize),
		exotel.WithRateLimit(cfg.Exotel.RateLimitRPS),
	)

	var (
		callLog []model.CallRecord
		paths   []model.PathRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		callLog, err = client.GetCalls(gctx, start, end, limit)
		return err
	})
	g.Go(func() error {
		var err error
		paths, err = st.ListPaths(gctx, store.PathFilter{StartDate: start, EndDate: end})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "report: fetch data")
	}

	return merge.Calls(callLog, paths), nil
}

func formatReport(w io.Writer, calls []model.MergedCall, topN int) {
	m := analytics.Metrics(calls)
	fmt.Fprintf(w, "Total calls:      %d\n", m.TotalCalls)
	fmt.Fprintf(w, "Completed:        %d (%.1f%%)\n", m.CompletedCalls, m.SuccessPct)
	fmt.Fprintf(w, "Failed:           %d\n", m.FailedCalls)
	fmt.Fprintf(w, "Avg duration:     %s\n", analytics.FormatDuration(int(m.AvgDuration)))
	fmt.Fprintf(w, "Total cost:       ₹%.2f (avg ₹%.2f)\n\n", m.TotalCost, m.AvgCost)

	fmt.Fprintln(w, "IVR funnel:")
	for _, level := range analytics.Funnel(calls) {
		fmt.Fprintf(w, "  %-20s %d\n", level.Label, level.Count)
	}
	fmt.Fprintln(w)

	c := analytics.Completion(calls)
	fmt.Fprintf(w, "IVR completion:   %d completed, %d dropped early, %d no interaction (%.1f%% completion)\n\n",
		c.Completed, c.DroppedEarly, c.NoIVR, c.CompletionPct)

	top := analytics.TopPaths(calls, topN)
	if len(top) > 0 {
		fmt.Fprintf(w, "Top %d paths:\n", len(top))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, pf := range top {
			fmt.Fprintf(tw, "  %s\t%s\t%d\n", pf.Path, pf.Label, pf.Count)
		}
		tw.Flush() //nolint:errcheck
	}
}

func init() {
	reportCmd.Flags().Bool("sample", false, "use generated sample data instead of live data")
	reportCmd.Flags().String("out", "", "write the report as an XLSX workbook to this path")
	reportCmd.Flags().String("start", "", "start date (YYYY-MM-DD)")
	reportCmd.Flags().String("end", "", "end date (YYYY-MM-DD)")
	reportCmd.Flags().Int("limit", 0, "maximum call-log rows to fetch (0 = provider default)")
	rootCmd.AddCommand(reportCmd)
}
