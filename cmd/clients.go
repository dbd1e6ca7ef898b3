package main

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/ikasa-digital/leads-cli/pkg/cnpja"
	"github.com/ikasa-digital/leads-cli/pkg/fourc"
	"github.com/ikasa-digital/leads-cli/pkg/gclick"
)

func initRegistry() cnpja.Client {
	opts := []cnpja.Option{
		cnpja.WithBaseURL(cfg.Registry.BaseURL),
		cnpja.WithCooldown(time.Duration(cfg.Registry.CooldownSecs) * time.Second),
	}
	if cfg.Registry.RequestsPerMin > 0 {
		opts = append(opts, cnpja.WithRateLimit(rate.Limit(float64(cfg.Registry.RequestsPerMin)/60), 1))
	}
	return cnpja.NewClient(cfg.Registry.Key, opts...)
}

func initCRM() fourc.Client {
	return fourc.NewClient(cfg.CRM.Token,
		fourc.WithBaseURL(cfg.CRM.BaseURL),
		fourc.WithCooldown(time.Duration(cfg.CRM.CooldownSecs)*time.Second),
	)
}

func initNotifier() gclick.Client {
	return gclick.NewClient(cfg.Notifier.Key,
		gclick.WithBaseURL(cfg.Notifier.BaseURL),
		gclick.WithCooldown(time.Duration(cfg.Notifier.CooldownSecs)*time.Second),
	)
}
