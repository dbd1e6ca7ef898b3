package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check connectivity to the registry, the CRM and the email dispatcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		registry := initRegistry()
		crm := initCRM()
		notifier := initNotifier()

		var mu sync.Mutex
		results := map[string]bool{}
		record := func(name string, ok bool) {
			mu.Lock()
			results[name] = ok
			mu.Unlock()
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			record("cnpja", registry.HealthCheck(gctx))
			return nil
		})
		g.Go(func() error {
			record("4c-crm", crm.HealthCheck(gctx))
			return nil
		})
		g.Go(func() error {
			record("gclick", notifier.HealthCheck(gctx))
			return nil
		})
		_ = g.Wait()

		allUp := true
		for _, name := range []string{"cnpja", "4c-crm", "gclick"} {
			state := "up"
			if !results[name] {
				state = "down"
				allUp = false
			}
			fmt.Fprintf(os.Stdout, "%-8s %s\n", name, state)
		}

		if !allUp {
			return eris.New("one or more services are unreachable")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
