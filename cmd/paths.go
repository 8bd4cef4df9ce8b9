package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/ivr-analytics/internal/flow"
	"github.com/sells-group/ivr-analytics/internal/model"
	"github.com/sells-group/ivr-analytics/internal/store"
)

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List stored IVR path records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")
		limit, _ := cmd.Flags().GetInt("limit")

		paths, err := st.ListPaths(ctx, store.PathFilter{
			StartDate: start,
			EndDate:   end,
			Limit:     limit,
		})
		if err != nil {
			return eris.Wrap(err, "paths list")
		}

		if len(paths) == 0 {
			fmt.Fprintln(os.Stderr, "No IVR paths recorded.")
			return nil
		}

		formatPathsList(os.Stdout, paths)
		return nil
	},
}

func formatPathsList(w io.Writer, paths []model.PathRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CALL SID\tFROM\tPATH\tLABEL\tUPDATED")
	for _, p := range paths {
		from := ""
		if p.FromNumber != nil {
			from = *p.FromNumber
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.CallSid,
			from,
			p.CompletePath,
			flow.DecodeLabel(p.CompletePath),
			p.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	pathsCmd.Flags().String("start", "", "start date (YYYY-MM-DD, inclusive)")
	pathsCmd.Flags().String("end", "", "end date (YYYY-MM-DD, inclusive)")
	pathsCmd.Flags().Int("limit", 0, "maximum rows (0 = all)")
	rootCmd.AddCommand(pathsCmd)
}
