// Package outreach builds the personalized first-contact email sent to
// newly opened companies.
package outreach

import (
	"strings"
	"text/template"

	"github.com/rotisserie/eris"

	"github.com/ikasa-digital/leads-cli/internal/model"
	"github.com/ikasa-digital/leads-cli/pkg/gclick"
)

// Options carries the sender identity and template configuration.
type Options struct {
	SenderEmail string
	SenderName  string
	TemplateID  string
}

// Subject returns the personalized subject line.
func Subject(c model.Company) string {
	return "Oportunidade de Parceria - " + c.LegalName
}

// BuildMessage assembles the full dispatch request for one company.
// The company must have an email address.
func BuildMessage(c model.Company, opts Options) (gclick.Message, error) {
	if c.Email == "" {
		return gclick.Message{}, eris.New("outreach: company has no email address")
	}

	body, err := renderBody(c)
	if err != nil {
		return gclick.Message{}, err
	}

	return gclick.Message{
		To: []gclick.Recipient{{
			Email: c.Email,
			Name:  c.DisplayName(),
		}},
		Subject:     Subject(c),
		HTMLContent: body,
		Sender: gclick.Sender{
			Email: opts.SenderEmail,
			Name:  opts.SenderName,
		},
		TemplateID: opts.TemplateID,
		Tags:       []string{"automacao", "lead", "contabil"},
		Tracking: gclick.Tracking{
			Opens:       true,
			Clicks:      true,
			Unsubscribe: true,
		},
		CustomData: map[string]string{
			"cnpj":          c.TaxID,
			"fonte":         "cnpja_automation",
			"data_captacao": c.FoundingDate.Format("2006-01-02"),
		},
	}, nil
}

var bodyTmpl = template.Must(template.New("outreach").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Ikasa Contabilidade</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2 style="color: #2c5aa0;">Parabéns pela abertura da {{.Name}}!</h2>

		<p>Olá,</p>

		<p>Soubemos que a <strong>{{.Name}}</strong> foi recentemente constituída e gostaríamos de parabenizá-los por este importante passo!</p>

		<p>A <strong>Ikasa Contabilidade</strong> é especializada em atender empresas em início de atividade, oferecendo:</p>

		<ul>
			<li>Contabilidade completa e personalizada</li>
			<li>Assessoria fiscal e tributária</li>
			<li>Folha de pagamento e eSocial</li>
			<li>Consultoria empresarial</li>
			<li>Suporte completo para MEI, ME e EPP</li>
		</ul>

		<div style="background-color: #f8f9fa; padding: 15px; border-left: 4px solid #2c5aa0; margin: 20px 0;">
			<p style="margin: 0;"><strong>Primeira consulta GRATUITA</strong></p>
			<p style="margin: 5px 0 0 0;">Análise completa da sua situação fiscal e tributária</p>
		</div>

		<div style="text-align: center; margin: 30px 0;">
			<a href="https://ikasa.com.br/contato"
			   style="background-color: #2c5aa0; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">
				Agendar Consulta Gratuita
			</a>
		</div>

		<p>Estamos ansiosos para fazer parte do sucesso da {{.Name}}!</p>

		<p>Atenciosamente,<br>
		<strong>Equipe Ikasa Contabilidade</strong></p>

		<hr style="margin: 30px 0; border: none; border-top: 1px solid #eee;">

		<div style="font-size: 12px; color: #666; text-align: center;">
			<p>Este e-mail foi enviado para {{.Email}}</p>
			<p>Se não deseja mais receber nossos e-mails, <a href="{{"{{unsubscribe_url}}"}}">clique aqui</a></p>
		</div>
	</div>
</body>
</html>
`))

type bodyData struct {
	Name  string
	Email string
}

func renderBody(c model.Company) (string, error) {
	var b strings.Builder
	err := bodyTmpl.Execute(&b, bodyData{
		Name:  c.DisplayName(),
		Email: c.Email,
	})
	if err != nil {
		return "", eris.Wrap(err, "outreach: render body")
	}
	return b.String(), nil
}
