package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

// OrderItemLine is one purchased photo in a confirmation email.
type OrderItemLine struct {
	Title string
	Price string
}

// OrderConfirmation carries the data rendered into the order email.
type OrderConfirmation struct {
	BuyerName  string
	BuyerEmail string
	OrderID    string
	Total      string
	Items      []OrderItemLine
	OrdersURL  string
}

var orderConfirmationHTML = template.Must(template.New("order_html").Parse(`<h2>Olá, {{.BuyerName}}!</h2>
<p>Seu pagamento do pedido <strong>{{.OrderID}}</strong> foi aprovado.</p>
<ul>
{{- range .Items}}
  <li>{{.Title}} - R$ {{.Price}}</li>
{{- end}}
</ul>
<p>Total: <strong>R$ {{.Total}}</strong></p>
{{- if .OrdersURL}}
<p><a href="{{.OrdersURL}}">Baixar minhas fotos</a></p>
{{- end}}
`))

var orderConfirmationText = texttemplate.Must(texttemplate.New("order_text").Parse(`Olá, {{.BuyerName}}!
Seu pagamento do pedido {{.OrderID}} foi aprovado.
{{range .Items}}- {{.Title}}: R$ {{.Price}}
{{end}}Total: R$ {{.Total}}
{{if .OrdersURL}}Baixe suas fotos em {{.OrdersURL}}
{{end}}`))

// RenderOrderConfirmation builds the confirmation message for a paid order.
func RenderOrderConfirmation(data OrderConfirmation) (Message, error) {
	var html, text bytes.Buffer
	if err := orderConfirmationHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render order html: %w", err)
	}
	if err := orderConfirmationText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render order text: %w", err)
	}
	return Message{
		ToName:    data.BuyerName,
		ToEmail:   data.BuyerEmail,
		Subject:   "Pedido confirmado - GT Clicks",
		PlainText: text.String(),
		HTML:      html.String(),
	}, nil
}
