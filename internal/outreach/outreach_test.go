package outreach

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikasa-digital/leads-cli/internal/model"
)

func testOptions() Options {
	return Options{
		SenderEmail: "contato@ikasa.com.br",
		SenderName:  "Ikasa Contabilidade",
		TemplateID:  "novo-lead",
	}
}

func testCompany() model.Company {
	return model.Company{
		TaxID:        "11222333000181",
		LegalName:    "Padaria Central LTDA",
		TradeName:    "Padaria Central",
		Email:        "contato@padariacentral.com.br",
		FoundingDate: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
	}
}

func TestSubject(t *testing.T) {
	got := Subject(testCompany())
	assert.Equal(t, "Oportunidade de Parceria - Padaria Central LTDA", got)
}

func TestBuildMessage(t *testing.T) {
	msg, err := BuildMessage(testCompany(), testOptions())
	require.NoError(t, err)

	require.Len(t, msg.To, 1)
	assert.Equal(t, "contato@padariacentral.com.br", msg.To[0].Email)
	assert.Equal(t, "Padaria Central", msg.To[0].Name)

	assert.Equal(t, "Oportunidade de Parceria - Padaria Central LTDA", msg.Subject)
	assert.Equal(t, "contato@ikasa.com.br", msg.Sender.Email)
	assert.Equal(t, "Ikasa Contabilidade", msg.Sender.Name)
	assert.Equal(t, "novo-lead", msg.TemplateID)
	assert.Equal(t, []string{"automacao", "lead", "contabil"}, msg.Tags)

	assert.True(t, msg.Tracking.Opens)
	assert.True(t, msg.Tracking.Clicks)
	assert.True(t, msg.Tracking.Unsubscribe)

	assert.Equal(t, "11222333000181", msg.CustomData["cnpj"])
	assert.Equal(t, "cnpja_automation", msg.CustomData["fonte"])
	assert.Equal(t, "2026-08-29", msg.CustomData["data_captacao"])
}

func TestBuildMessage_Body(t *testing.T) {
	msg, err := BuildMessage(testCompany(), testOptions())
	require.NoError(t, err)

	assert.Contains(t, msg.HTMLContent, "Parabéns pela abertura da Padaria Central!")
	assert.Contains(t, msg.HTMLContent, "Este e-mail foi enviado para contato@padariacentral.com.br")
	assert.Contains(t, msg.HTMLContent, "{{unsubscribe_url}}")
	assert.Contains(t, msg.HTMLContent, "Agendar Consulta Gratuita")
}

func TestBuildMessage_NoEmail(t *testing.T) {
	c := testCompany()
	c.Email = ""

	_, err := BuildMessage(c, testOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no email address")
}

func TestBuildMessage_NoTradeName(t *testing.T) {
	c := testCompany()
	c.TradeName = ""

	msg, err := BuildMessage(c, testOptions())
	require.NoError(t, err)
	assert.Equal(t, "Padaria Central LTDA", msg.To[0].Name)
	assert.Contains(t, msg.HTMLContent, "Parabéns pela abertura da Padaria Central LTDA!")
}
