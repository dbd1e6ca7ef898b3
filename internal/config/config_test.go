package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Ledger.Driver)
	assert.Equal(t, "leads.db", cfg.Ledger.Path)
	assert.Equal(t, 10, cfg.Ledger.MaxConns)
	assert.Equal(t, "https://api.cnpja.com", cfg.Registry.BaseURL)
	assert.Equal(t, 60, cfg.Registry.CooldownSecs)
	assert.Equal(t, 5, cfg.Registry.RequestsPerMin)
	assert.Equal(t, "https://api.4c.crm.com/v1", cfg.CRM.BaseURL)
	assert.Equal(t, 30, cfg.CRM.CooldownSecs)
	assert.Equal(t, "https://api.gclick.com.br/v1", cfg.Notifier.BaseURL)
	assert.Equal(t, 60, cfg.Notifier.CooldownSecs)
	assert.Equal(t, "contato@ikasa.com.br", cfg.Outreach.SenderEmail)
	assert.Equal(t, "Ikasa Contabilidade", cfg.Outreach.SenderName)
	assert.Equal(t, 1, cfg.Pipeline.Workers)
	assert.Equal(t, "SP", cfg.Pipeline.State)
	assert.Equal(t, 10, cfg.Pipeline.Limit)
	assert.Equal(t, 1, cfg.Pipeline.WindowDays)
	assert.Equal(t, 30, cfg.Stats.WindowDays)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
ledger:
  driver: postgres
  database_url: postgres://localhost/leads
log:
  level: debug
  format: console
server:
  port: 9090
pipeline:
  workers: 4
  state: RJ
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Ledger.Driver)
	assert.Equal(t, "postgres://localhost/leads", cfg.Ledger.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, "RJ", cfg.Pipeline.State)
	// Defaults still apply for unset values
	assert.Equal(t, 10, cfg.Pipeline.Limit)
	assert.Equal(t, 60, cfg.Registry.CooldownSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
pipeline:
  state: SP
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADS_PIPELINE_STATE", "MG")
	t.Setenv("LEADS_REGISTRY_KEY", "env-token")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "MG", cfg.Pipeline.State)
	assert.Equal(t, "env-token", cfg.Registry.Key)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Ledger:   LedgerConfig{Driver: "sqlite", Path: "leads.db"},
		Registry: RegistryConfig{Key: "a"},
		CRM:      CRMConfig{Token: "b"},
		Notifier: NotifierConfig{Key: "c"},
	}
	require.NoError(t, cfg.Validate())
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := &Config{
		Ledger: LedgerConfig{Driver: "sqlite"},
		CRM:    CRMConfig{Token: "b"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry.key")
	assert.Contains(t, err.Error(), "notifier.key")
	assert.NotContains(t, err.Error(), "crm.token")
}

func TestValidate_BadDriver(t *testing.T) {
	cfg := &Config{
		Ledger:   LedgerConfig{Driver: "mysql"},
		Registry: RegistryConfig{Key: "a"},
		CRM:      CRMConfig{Token: "b"},
		Notifier: NotifierConfig{Key: "c"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown ledger driver")
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	cfg := &Config{
		Ledger:   LedgerConfig{Driver: "postgres"},
		Registry: RegistryConfig{Key: "a"},
		CRM:      CRMConfig{Token: "b"},
		Notifier: NotifierConfig{Key: "c"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "verbose", Format: "json"})
	require.Error(t, err)
}
