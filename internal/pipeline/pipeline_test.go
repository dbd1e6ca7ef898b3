package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ikasa-digital/leads-cli/internal/config"
	"github.com/ikasa-digital/leads-cli/internal/gateway"
	"github.com/ikasa-digital/leads-cli/internal/ledger"
	"github.com/ikasa-digital/leads-cli/internal/model"
	"github.com/ikasa-digital/leads-cli/pkg/cnpja"
	"github.com/ikasa-digital/leads-cli/pkg/fourc"
	"github.com/ikasa-digital/leads-cli/pkg/gclick"
)

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			Workers:    1,
			State:      "SP",
			Limit:      10,
			WindowDays: 1,
		},
		Outreach: config.OutreachConfig{
			SenderEmail: "contato@ikasa.com.br",
			SenderName:  "Ikasa Contabilidade",
		},
	}
}

func newTestLedger(t *testing.T) ledger.Ledger {
	t.Helper()
	led, err := ledger.NewSQLite(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { led.Close() }) //nolint:errcheck
	require.NoError(t, led.Migrate(context.Background()))
	return led
}

func office(taxID, name, email string) cnpja.Office {
	o := cnpja.Office{
		TaxID:     taxID,
		Company:   cnpja.CompanyInfo{Name: name},
		Founded:   "2026-08-29",
		TradeName: "",
		Address: cnpja.Address{
			Street:   "Rua das Flores",
			Number:   "100",
			District: "Centro",
			City:     "São Paulo",
			State:    "SP",
			Zip:      "01001000",
		},
		MainActivity: cnpja.MainActivity{Text: "Padaria"},
		Situation:    "ATIVA",
	}
	if email != "" {
		o.Emails = []cnpja.Email{{Address: email}}
	}
	return o
}

func TestRun_EndToEnd(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	// One record is already in the ledger.
	_, err := led.Insert(ctx, model.Company{
		TaxID:        "11444777000161",
		LegalName:    "Mercearia do Bairro LTDA",
		City:         "São Paulo",
		State:        "SP",
		FoundingDate: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		Status:       "ATIVA",
	}, "crm-0", true)
	require.NoError(t, err)

	offices := []cnpja.Office{
		office("11222333000181", "Padaria Central LTDA", "contato@padariacentral.com.br"),
		office("11444777000161", "Mercearia do Bairro LTDA", "contato@mercearia.com.br"),
		office("11111111111111", "Fantasma ME", "x@fantasma.com.br"),
	}

	registry := new(mockRegistryClient)
	registry.On("Search", mock.Anything, mock.MatchedBy(func(q cnpja.Query) bool {
		return q.State == "SP" && q.Limit == 10 && q.FoundedGTE != ""
	})).Return(offices, nil)

	crm := new(mockCRMClient)
	crm.On("CreateLead", mock.Anything, mock.MatchedBy(func(p fourc.LeadPayload) bool {
		return p.Company.TaxID == "11222333000181"
	})).Return(&fourc.CreateResult{ID: "crm-1"}, nil)

	notifier := new(mockNotifierClient)
	notifier.On("SendEmail", mock.Anything, mock.MatchedBy(func(m gclick.Message) bool {
		return len(m.To) == 1 && m.To[0].Email == "contato@padariacentral.com.br"
	})).Return(&gclick.SendResult{MessageID: "msg-1"}, nil)

	p := New(testConfig(), led, registry, crm, notifier)
	summary, err := p.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Found)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Duplicated)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, summary.Found, summary.Processed+summary.Duplicated+summary.Failed)
	assert.Equal(t, model.RunStatusCompleted, summary.Status)
	assert.NotEmpty(t, summary.RunID)

	rec, err := led.GetByTaxID(ctx, "11222333000181")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "crm-1", rec.CRMLeadID)
	assert.True(t, rec.EmailSent)
	assert.Equal(t, model.LeadStatusProcessed, rec.Status)

	stats, err := led.Stats(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalLeads)

	registry.AssertExpectations(t)
	crm.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestRun_NoRecords(t *testing.T) {
	led := newTestLedger(t)

	registry := new(mockRegistryClient)
	registry.On("Search", mock.Anything, mock.Anything).Return([]cnpja.Office{}, nil)

	crm := new(mockCRMClient)
	notifier := new(mockNotifierClient)

	p := New(testConfig(), led, registry, crm, notifier)
	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Found)
	assert.Equal(t, model.RunStatusCompleted, summary.Status)
	crm.AssertNotCalled(t, "CreateLead", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
}

func TestRun_RegistrySearchFails(t *testing.T) {
	led := newTestLedger(t)

	registry := new(mockRegistryClient)
	registry.On("Search", mock.Anything, mock.Anything).
		Return(nil, &gateway.CallError{Service: "cnpja", StatusCode: 500})

	p := New(testConfig(), led, registry, new(mockCRMClient), new(mockNotifierClient))
	summary, err := p.Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, model.RunStatusFailed, summary.Status)
	assert.Equal(t, 0, summary.Found)
}

func TestRun_AuthErrorAborts(t *testing.T) {
	led := newTestLedger(t)

	registry := new(mockRegistryClient)
	registry.On("Search", mock.Anything, mock.Anything).Return([]cnpja.Office{
		office("11222333000181", "Padaria Central LTDA", "contato@padariacentral.com.br"),
	}, nil)

	crm := new(mockCRMClient)
	crm.On("CreateLead", mock.Anything, mock.Anything).
		Return(nil, &gateway.AuthError{Service: "fourc", Message: "invalid token"})

	p := New(testConfig(), led, registry, crm, new(mockNotifierClient))
	summary, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, gateway.IsAuth(err))

	assert.Equal(t, model.RunStatusFailed, summary.Status)
	assert.Equal(t, 1, summary.Found)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, summary.Found, summary.Processed+summary.Duplicated+summary.Failed)
}

func TestRun_EmailFailureStillProcessed(t *testing.T) {
	led := newTestLedger(t)

	registry := new(mockRegistryClient)
	registry.On("Search", mock.Anything, mock.Anything).Return([]cnpja.Office{
		office("11222333000181", "Padaria Central LTDA", "contato@padariacentral.com.br"),
	}, nil)

	crm := new(mockCRMClient)
	crm.On("CreateLead", mock.Anything, mock.Anything).Return(&fourc.CreateResult{ID: "crm-1"}, nil)

	notifier := new(mockNotifierClient)
	notifier.On("SendEmail", mock.Anything, mock.Anything).
		Return(nil, &gateway.CallError{Service: "gclick", StatusCode: 400, Body: "bad template"})

	p := New(testConfig(), led, registry, crm, notifier)
	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Failed)

	rec, err := led.GetByTaxID(context.Background(), "11222333000181")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.False(t, rec.EmailSent)
	assert.Equal(t, model.LeadStatusProcessed, rec.Status)
}

func TestRun_NoEmailSkipsOutreach(t *testing.T) {
	led := newTestLedger(t)

	registry := new(mockRegistryClient)
	registry.On("Search", mock.Anything, mock.Anything).Return([]cnpja.Office{
		office("11222333000181", "Padaria Central LTDA", ""),
	}, nil)

	crm := new(mockCRMClient)
	crm.On("CreateLead", mock.Anything, mock.Anything).Return(&fourc.CreateResult{ID: "crm-1"}, nil)

	notifier := new(mockNotifierClient)

	p := New(testConfig(), led, registry, crm, notifier)
	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	notifier.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)

	rec, err := led.GetByTaxID(context.Background(), "11222333000181")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.False(t, rec.EmailSent)
}

func TestRun_ConcurrentWorkers(t *testing.T) {
	led := newTestLedger(t)
	cfg := testConfig()
	cfg.Pipeline.Workers = 4

	offices := []cnpja.Office{
		office("11222333000181", "Padaria Central LTDA", "contato@padariacentral.com.br"),
		office("11444777000161", "Mercearia do Bairro LTDA", "contato@mercearia.com.br"),
	}

	registry := new(mockRegistryClient)
	registry.On("Search", mock.Anything, mock.Anything).Return(offices, nil)

	crm := new(mockCRMClient)
	crm.On("CreateLead", mock.Anything, mock.Anything).Return(&fourc.CreateResult{ID: "crm-x"}, nil)

	notifier := new(mockNotifierClient)
	notifier.On("SendEmail", mock.Anything, mock.Anything).Return(&gclick.SendResult{MessageID: "msg-x"}, nil)

	p := New(cfg, led, registry, crm, notifier)
	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Found)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, model.RunStatusCompleted, summary.Status)
}

func TestLeadPayload(t *testing.T) {
	p := New(testConfig(), nil, nil, nil, nil)

	payload := p.leadPayload(model.Company{
		TaxID:        "11222333000181",
		LegalName:    "Padaria Central LTDA",
		TradeName:    "Padaria Central",
		Email:        "contato@padariacentral.com.br",
		Phone:        "+55 11 40028922",
		Address:      "Rua das Flores, nº 100, Centro",
		City:         "São Paulo",
		State:        "SP",
		Zip:          "01001-000",
		FoundingDate: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
		MainActivity: "Padaria",
		Status:       "ATIVA",
	})

	assert.Equal(t, "CNPJá Automation", payload.Source)
	assert.Equal(t, "new", payload.Status)
	assert.Equal(t, "medium", payload.Priority)
	assert.Equal(t, "11222333000181", payload.Company.TaxID)
	assert.Equal(t, "Padaria Central LTDA", payload.Company.Name)
	assert.Equal(t, "2026-08-29", payload.Company.OpeningDate)
	assert.Equal(t, []string{"automacao", "cnpja", "empresa-nova"}, payload.Tags)
	assert.Equal(t, "11.222.333/0001-81", payload.CustomFields["cnpj_formatado"])
	assert.Equal(t, "2026-08-29", payload.CustomFields["data_abertura"])
}
