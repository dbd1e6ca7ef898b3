package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ikasa-digital/leads-cli/internal/ledger"
)

func initLedger(ctx context.Context) (ledger.Ledger, error) {
	switch cfg.Ledger.Driver {
	case "sqlite":
		path := cfg.Ledger.Path
		if path == "" {
			path = "leads.db"
		}
		return ledger.NewSQLite(path)
	case "postgres":
		return ledger.NewPostgres(ctx, cfg.Ledger.DatabaseURL, &ledger.PoolConfig{
			MaxConns: int32(cfg.Ledger.MaxConns),
			MinConns: int32(cfg.Ledger.MinConns),
		})
	default:
		return nil, eris.Errorf("unsupported ledger driver: %s", cfg.Ledger.Driver)
	}
}
