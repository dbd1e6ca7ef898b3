package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ikasa-digital/leads-cli/internal/ledger"
)

var (
	statsWindow int
	statsFormat string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report capture totals over a trailing window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		led, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer led.Close() //nolint:errcheck
		if err := led.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate ledger")
		}

		window := statsWindow
		if window <= 0 {
			window = cfg.Stats.WindowDays
		}

		stats, err := led.Stats(ctx, window)
		if err != nil {
			return eris.Wrap(err, "ledger stats")
		}

		switch statsFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		case "yaml":
			return yaml.NewEncoder(os.Stdout).Encode(stats)
		case "table":
			formatStats(os.Stdout, stats)
			return nil
		default:
			return eris.Errorf("unknown format: %s", statsFormat)
		}
	},
}

func formatStats(w io.Writer, stats *ledger.Stats) {
	fmt.Fprintf(w, "Last %d days\n\n", stats.WindowDays)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total leads\t%d\n", stats.TotalLeads)
	fmt.Fprintf(tw, "Processed\t%d\n", stats.Processed)
	fmt.Fprintf(tw, "Failed\t%d\n", stats.Failed)
	fmt.Fprintf(tw, "Emails sent\t%d\n", stats.EmailsSent)
	tw.Flush()

	if len(stats.DailyCounts) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tLEADS")
		for _, d := range stats.DailyCounts {
			fmt.Fprintf(tw, "%s\t%d\n", d.Date, d.Count)
		}
		tw.Flush()
	}
}

func init() {
	statsCmd.Flags().IntVar(&statsWindow, "window", 0, "window in days (default from config)")
	statsCmd.Flags().StringVar(&statsFormat, "format", "table", "output format: table, json or yaml")
	rootCmd.AddCommand(statsCmd)
}
