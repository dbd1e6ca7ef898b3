package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Ledger   LedgerConfig   `yaml:"ledger" mapstructure:"ledger"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	CRM      CRMConfig      `yaml:"crm" mapstructure:"crm"`
	Notifier NotifierConfig `yaml:"notifier" mapstructure:"notifier"`
	Outreach OutreachConfig `yaml:"outreach" mapstructure:"outreach"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Stats    StatsConfig    `yaml:"stats" mapstructure:"stats"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// LedgerConfig configures the durable lead ledger backend.
type LedgerConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int    `yaml:"min_conns" mapstructure:"min_conns"`
}

// RegistryConfig holds CNPJá company registry API settings.
type RegistryConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	CooldownSecs   int    `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
	RequestsPerMin int    `yaml:"requests_per_min" mapstructure:"requests_per_min"`
}

// CRMConfig holds 4C CRM API settings.
type CRMConfig struct {
	Token        string `yaml:"token" mapstructure:"token"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	CooldownSecs int    `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// NotifierConfig holds G-Click email dispatcher settings.
type NotifierConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	CooldownSecs int    `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// OutreachConfig holds the sender identity for first-contact emails.
type OutreachConfig struct {
	SenderEmail string `yaml:"sender_email" mapstructure:"sender_email"`
	SenderName  string `yaml:"sender_name" mapstructure:"sender_name"`
	TemplateID  string `yaml:"template_id" mapstructure:"template_id"`
}

// PipelineConfig configures a capture run.
type PipelineConfig struct {
	Workers    int    `yaml:"workers" mapstructure:"workers"`
	State      string `yaml:"state" mapstructure:"state"`
	Limit      int    `yaml:"limit" mapstructure:"limit"`
	WindowDays int    `yaml:"window_days" mapstructure:"window_days"`
}

// StatsConfig configures the stats report.
type StatsConfig struct {
	WindowDays int `yaml:"window_days" mapstructure:"window_days"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ledger.driver", "sqlite")
	v.SetDefault("ledger.path", "leads.db")
	v.SetDefault("ledger.max_conns", 10)
	v.SetDefault("ledger.min_conns", 2)
	v.SetDefault("registry.base_url", "https://api.cnpja.com")
	v.SetDefault("registry.cooldown_secs", 60)
	v.SetDefault("registry.requests_per_min", 5)
	v.SetDefault("crm.base_url", "https://api.4c.crm.com/v1")
	v.SetDefault("crm.cooldown_secs", 30)
	v.SetDefault("notifier.base_url", "https://api.gclick.com.br/v1")
	v.SetDefault("notifier.cooldown_secs", 60)
	v.SetDefault("outreach.sender_email", "contato@ikasa.com.br")
	v.SetDefault("outreach.sender_name", "Ikasa Contabilidade")
	v.SetDefault("pipeline.workers", 1)
	v.SetDefault("pipeline.state", "SP")
	v.SetDefault("pipeline.limit", 10)
	v.SetDefault("pipeline.window_days", 1)
	v.SetDefault("stats.window_days", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the credentials a capture run needs are present.
func (c *Config) Validate() error {
	var missing []string
	if c.Registry.Key == "" {
		missing = append(missing, "registry.key")
	}
	if c.CRM.Token == "" {
		missing = append(missing, "crm.token")
	}
	if c.Notifier.Key == "" {
		missing = append(missing, "notifier.key")
	}
	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.Ledger.Driver != "sqlite" && c.Ledger.Driver != "postgres" {
		return eris.Errorf("config: unknown ledger driver %q", c.Ledger.Driver)
	}
	if c.Ledger.Driver == "postgres" && c.Ledger.DatabaseURL == "" {
		return eris.New("config: ledger.database_url is required for the postgres driver")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
