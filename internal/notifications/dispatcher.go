package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/mailer"
)

const (
	photographerDashboardPath = "/dashboard/fotografo/financeiro"
	buyerOrdersPath           = "/meus-pedidos"
)

type userLookup interface {
	FindBuyer(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type noticeWriter interface {
	Insert(ctx context.Context, n *models.Notification) error
}

type DispatcherParams struct {
	Store   noticeWriter
	Users   userLookup
	Mailer  mailer.Sender
	Logger  *logger.Logger
	BaseURL string
}

// Dispatcher writes in-app notifications and sends transactional email.
type Dispatcher struct {
	store   noticeWriter
	users   userLookup
	mailer  mailer.Sender
	logg    *logger.Logger
	baseURL string
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("notification store required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	sender := params.Mailer
	if sender == nil {
		sender = mailer.NopSender{}
	}
	return &Dispatcher{
		store:   params.Store,
		users:   params.Users,
		mailer:  sender,
		logg:    params.Logger,
		baseURL: strings.TrimRight(params.BaseURL, "/"),
	}, nil
}

func (d *Dispatcher) SaleRecorded(ctx context.Context, notice SaleNotice) {
	ctx = d.logg.WithOrderID(ctx, notice.OrderID.String())
	title := "Nova venda!"
	message := fmt.Sprintf("Você vendeu %s e recebeu R$ %s.", describePhotos(notice.PhotoTitles), notice.Credited.StringFixed(2))
	d.create(ctx, notice.PhotographerUserID, enums.NotificationTypeSale, title, message, photographerDashboardPath)
}

func (d *Dispatcher) OrderApproved(ctx context.Context, notice OrderApprovedNotice) {
	ctx = d.logg.WithOrderID(ctx, notice.OrderID.String())
	message := fmt.Sprintf("O pagamento do pedido %s foi aprovado. Suas fotos já estão disponíveis.", shortID(notice.OrderID))
	d.create(ctx, notice.BuyerID, enums.NotificationTypeOrderApproved, "Pagamento aprovado", message, buyerOrdersPath)

	buyer, err := d.users.FindBuyer(ctx, notice.BuyerID)
	if err != nil {
		d.logg.Error(ctx, "notifications.buyer_lookup_failed", err)
		return
	}
	if buyer == nil {
		d.logg.Warn(ctx, "notifications.buyer_missing")
		return
	}

	lines := make([]mailer.OrderItemLine, 0, len(notice.Items))
	for _, item := range notice.Items {
		lines = append(lines, mailer.OrderItemLine{Title: item.Title, Price: item.Price.StringFixed(2)})
	}
	msg, err := mailer.RenderOrderConfirmation(mailer.OrderConfirmation{
		BuyerName:  buyer.Name,
		BuyerEmail: buyer.Email,
		OrderID:    notice.OrderID.String(),
		Total:      notice.Total.StringFixed(2),
		Items:      lines,
		OrdersURL:  d.link(buyerOrdersPath),
	})
	if err != nil {
		d.logg.Error(ctx, "notifications.email_render_failed", err)
		return
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		d.logg.Error(ctx, "notifications.email_send_failed", err)
	}
}

func (d *Dispatcher) WithdrawalResolved(ctx context.Context, notice WithdrawalNotice) {
	ctx = d.logg.WithWithdrawalID(ctx, notice.WithdrawalID.String())
	amount := notice.Amount.StringFixed(2)

	var (
		kind    enums.NotificationType
		title   string
		message string
	)
	switch notice.Status {
	case enums.WithdrawalStatusProcessed:
		kind, title = enums.NotificationTypeWithdrawalProcessed, "Saque realizado"
		message = fmt.Sprintf("Seu saque de R$ %s foi enviado via PIX.", amount)
	case enums.WithdrawalStatusCancelled:
		kind, title = enums.NotificationTypeWithdrawalCancelled, "Saque cancelado"
		message = fmt.Sprintf("Seu saque de R$ %s foi cancelado e o valor voltou para o seu saldo.", amount)
	case enums.WithdrawalStatusFailed:
		kind, title = enums.NotificationTypeWithdrawalRejected, "Saque não concluído"
		message = fmt.Sprintf("Não foi possível concluir seu saque de R$ %s. O valor voltou para o seu saldo.", amount)
	default:
		d.logg.Warn(d.logg.WithField(ctx, "status", string(notice.Status)), "notifications.withdrawal_status_ignored")
		return
	}
	if note := strings.TrimSpace(notice.Note); note != "" {
		message = fmt.Sprintf("%s Motivo: %s", message, note)
	}
	d.create(ctx, notice.PhotographerUserID, kind, title, message, photographerDashboardPath)
}

func (d *Dispatcher) create(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, message, path string) {
	if userID == uuid.Nil {
		d.logg.Warn(ctx, "notifications.recipient_missing")
		return
	}
	link := path
	row := &models.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
		Link:    &link,
	}
	if err := d.store.Insert(ctx, row); err != nil {
		d.logg.Error(d.logg.WithField(ctx, "notification_type", string(kind)), "notifications.create_failed", err)
	}
}

func (d *Dispatcher) link(path string) string {
	if d.baseURL == "" {
		return ""
	}
	return d.baseURL + path
}

func describePhotos(titles []string) string {
	switch len(titles) {
	case 0:
		return "uma foto"
	case 1:
		return fmt.Sprintf("a foto %q", titles[0])
	default:
		return fmt.Sprintf("%d fotos", len(titles))
	}
}

func shortID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}
