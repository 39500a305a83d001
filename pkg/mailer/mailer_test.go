package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/require"

	"github.com/gtclicks/ledger-backend/pkg/config"
)

type fakeSendClient struct {
	sent []*mail.SGMailV3
	resp *rest.Response
	err  error
}

func (f *fakeSendClient) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestSendgridSenderBuildsSingleEmail(t *testing.T) {
	fake := &fakeSendClient{resp: &rest.Response{StatusCode: 202}}
	sender := &SendgridSender{client: fake, from: mail.NewEmail("GT Clicks", "no-reply@gtclicks.com.br")}

	err := sender.Send(context.Background(), Message{
		ToName:    "Ana",
		ToEmail:   "ana@example.com",
		Subject:   "Pedido confirmado",
		PlainText: "ok",
		HTML:      "<p>ok</p>",
	})
	require.NoError(t, err)
	require.Len(t, fake.sent, 1)

	email := fake.sent[0]
	require.Equal(t, "no-reply@gtclicks.com.br", email.From.Address)
	require.Equal(t, "Pedido confirmado", email.Subject)
	require.Len(t, email.Personalizations, 1)
	require.Equal(t, "ana@example.com", email.Personalizations[0].To[0].Address)
}

func TestSendgridSenderReportsFailures(t *testing.T) {
	sender := &SendgridSender{client: &fakeSendClient{resp: &rest.Response{StatusCode: 401, Body: "unauthorized"}}, from: mail.NewEmail("", "a@b.c")}
	err := sender.Send(context.Background(), Message{ToEmail: "x@y.z"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 401")

	sender = &SendgridSender{client: &fakeSendClient{err: errors.New("dial")}, from: mail.NewEmail("", "a@b.c")}
	require.Error(t, sender.Send(context.Background(), Message{ToEmail: "x@y.z"}))

	require.ErrorIs(t, sender.Send(context.Background(), Message{}), errRecipientRequired)
}

func TestNewSendgridRequiresKey(t *testing.T) {
	_, err := NewSendgrid(config.SendgridConfig{})
	require.ErrorIs(t, err, errAPIKeyRequired)

	sender, err := NewSendgrid(config.SendgridConfig{APIKey: "SG.x", DefaultFrom: "no-reply@gtclicks.com.br", FromName: "GT Clicks"})
	require.NoError(t, err)
	require.Equal(t, "GT Clicks", sender.from.Name)
}

func TestRenderOrderConfirmation(t *testing.T) {
	msg, err := RenderOrderConfirmation(OrderConfirmation{
		BuyerName:  "Ana",
		BuyerEmail: "ana@example.com",
		OrderID:    "order-1",
		Total:      "150.00",
		Items:      []OrderItemLine{{Title: "Pôr do sol", Price: "100.00"}, {Title: "Largada", Price: "50.00"}},
		OrdersURL:  "https://gtclicks.com.br/pedidos",
	})
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", msg.ToEmail)
	require.Contains(t, msg.HTML, "order-1")
	require.Contains(t, msg.HTML, "R$ 150.00")
	require.Contains(t, msg.PlainText, "- Largada: R$ 50.00")
	require.Contains(t, msg.PlainText, "https://gtclicks.com.br/pedidos")
}
