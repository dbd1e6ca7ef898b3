package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ikasa-digital/leads-cli/internal/pipeline"
)

var (
	runState   string
	runLimit   int
	runWorkers int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one lead capture pass",
	Long:  "Searches the registry for companies opened since yesterday, registers each new one in the CRM and sends the first-contact email.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(); err != nil {
			return err
		}
		if runState != "" {
			cfg.Pipeline.State = runState
		}
		if runLimit > 0 {
			cfg.Pipeline.Limit = runLimit
		}
		if runWorkers > 0 {
			cfg.Pipeline.Workers = runWorkers
		}

		led, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer led.Close() //nolint:errcheck

		if err := led.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate ledger")
		}

		p := pipeline.New(cfg, led, initRegistry(), initCRM(), initNotifier())

		summary, err := p.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "capture run")
		}

		zap.L().Info("capture complete",
			zap.Int("found", summary.Found),
			zap.Int("processed", summary.Processed),
			zap.Int("duplicated", summary.Duplicated),
			zap.Int("failed", summary.Failed),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	runCmd.Flags().StringVar(&runState, "state", "", "two-letter state filter (default from config)")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "max companies per run (default from config)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "concurrent record workers (default from config)")
	rootCmd.AddCommand(runCmd)
}
