package notify

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/cashdesk/internal/model"
)

const countReportTemplate = `<h1>Reporte de Conteo de Operador</h1>
<p>El operador <strong>{{.OperatorName}}</strong> ha guardado un nuevo conteo.</p>
<hr>
<h2>Detalles de la Planilla</h2>
<ul>
<li><strong>Número de Planilla:</strong> {{.InvoiceNumber}}</li>
<li><strong>Cliente:</strong> {{.ClientName}}</li>
</ul>
<h2>Desglose del Conteo</h2>
<table border="1" cellpadding="5" cellspacing="0" style="border-collapse: collapse; width: 300px;">
<tr><td><strong>Denominación</strong></td><td style="text-align: right;"><strong>Cantidad</strong></td></tr>
{{- range .Lines}}
<tr><td>{{.Label}}</td><td style="text-align: right;">{{count .Count}}</td></tr>
{{- end}}
<tr><td>Monedas</td><td style="text-align: right;">$ {{pesos .Coins}}</td></tr>
</table>
<h2>Totales</h2>
<ul>
<li><strong>Total Contado:</strong> ${{pesos .TotalCounted}}</li>
<li><strong>Discrepancia:</strong> <strong style="color: {{if .Discrepancy.IsZero}}green{{else}}red{{end}};">${{pesos .Discrepancy}}</strong></li>
</ul>
<p><strong>Observaciones del Operador:</strong> {{if .Observations}}{{.Observations}}{{else}}N/A{{end}}</p>
<br>
<p><em>Este es un correo automático del sistema EAGLE 3.0.</em></p>
`

// CountReport содержит данные письма о сохранённом пересчёте.
type CountReport struct {
	InvoiceNumber string
	ClientName    string
	OperatorName  string
	Lines         []model.DenominationLine
	Coins         decimal.Decimal
	TotalCounted  decimal.Decimal
	Discrepancy   decimal.Decimal
	Observations  string
}

// NewCountReport собирает данные письма из пересчёта и сведений о планилле.
func NewCountReport(details model.CountDetails, sub model.CountSubmission, discrepancy decimal.Decimal) CountReport {
	return CountReport{
		InvoiceNumber: details.InvoiceNumber,
		ClientName:    details.ClientName,
		OperatorName:  details.OperatorName,
		Lines:         sub.Denominations().Lines(),
		Coins:         sub.Coins,
		TotalCounted:  sub.TotalCounted,
		Discrepancy:   discrepancy,
		Observations:  sub.Observations,
	}
}

// Subject возвращает тему письма: при расхождении она отличается.
func (r CountReport) Subject() string {
	if !r.Discrepancy.IsZero() {
		return "Discrepancia en Planilla: " + r.InvoiceNumber
	}
	return "Nuevo Conteo de Operador: Planilla " + r.InvoiceNumber
}

// Template формирует HTML-тело письма о пересчёте.
type Template struct {
	tpl *template.Template
}

// NewTemplate разбирает шаблон письма. Пустая строка означает шаблон по умолчанию.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = countReportTemplate
	}
	parsed, err := template.New("count-report").Funcs(template.FuncMap{
		"pesos": model.FormatPesos,
		"count": model.FormatCount,
	}).Parse(tpl)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &Template{tpl: parsed}, nil
}

// Render применяет шаблон к данным пересчёта. Пользовательские значения экранируются.
func (t *Template) Render(r CountReport) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("count report template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}
