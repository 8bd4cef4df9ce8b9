package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/ivr-analytics/internal/flow"
	"github.com/sells-group/ivr-analytics/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate IVR statistics",
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

		stats, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "stats")
		}

		formatStats(os.Stdout, stats)
		return nil
	},
}

func formatStats(w io.Writer, stats *store.IVRStats) {
	fmt.Fprintf(w, "Calls with IVR input: %d\n\n", stats.TotalCalls)

	if len(stats.TopPaths) > 0 {
		fmt.Fprintln(w, "Top paths:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, pc := range stats.TopPaths {
			fmt.Fprintf(tw, "  %s\t%s\t%d\n", pc.Path, flow.DecodeLabel(pc.Path), pc.Count)
		}
		tw.Flush() //nolint:errcheck
		fmt.Fprintln(w)
	}

	for _, dist := range []struct {
		name    string
		choices []store.ChoiceCount
	}{
		{"Language", stats.LanguageDist},
		{"State", stats.StateDist},
		{"Service", stats.ServiceDist},
	} {
		if len(dist.choices) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s distribution:\n", dist.name)
		for _, cc := range dist.choices {
			fmt.Fprintf(w, "  %-16s %d\n", cc.Label, cc.Count)
		}
		fmt.Fprintln(w)
	}
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
