package notifications

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtclicks/ledger-backend/internal/orders"
	"github.com/gtclicks/ledger-backend/pkg/db/dbtest"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/mailer"
)

type recordingSender struct {
	sent []mailer.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

type failingStore struct{}

func (failingStore) Insert(context.Context, *models.Notification) error {
	return errors.New("insert failed")
}

func newDispatcher(t *testing.T, store noticeWriter, users userLookup, sender mailer.Sender, logs *bytes.Buffer) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(DispatcherParams{
		Store:   store,
		Users:   users,
		Mailer:  sender,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: logs}),
		BaseURL: "https://gtclicks.com.br/",
	})
	require.NoError(t, err)
	return d
}

func TestDispatcherOrderApprovedWritesNoticeAndEmail(t *testing.T) {
	client := dbtest.New(t)
	buyer := dbtest.CreateBuyer(t, client.DB())
	sender := &recordingSender{}
	d := newDispatcher(t, NewStore(client.DB()), orders.NewRepository(client.DB()), sender, &bytes.Buffer{})
	orderID := uuid.New()

	d.OrderApproved(context.Background(), OrderApprovedNotice{
		OrderID: orderID,
		BuyerID: buyer.ID,
		Total:   decimal.RequireFromString("150"),
		Items: []OrderLine{
			{Title: "Sunset", Price: decimal.RequireFromString("100")},
			{Title: "Dunes", Price: decimal.RequireFromString("50")},
		},
	})

	var rows []models.Notification
	require.NoError(t, client.DB().Where("user_id = ?", buyer.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.NotificationTypeOrderApproved, rows[0].Type)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, buyer.Email, msg.ToEmail)
	assert.Contains(t, msg.PlainText, "Sunset: R$ 100.00")
	assert.Contains(t, msg.PlainText, "Total: R$ 150.00")
	assert.Contains(t, msg.HTML, "https://gtclicks.com.br/meus-pedidos")
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	client := dbtest.New(t)
	buyer := dbtest.CreateBuyer(t, client.DB())
	logs := &bytes.Buffer{}
	sender := &recordingSender{err: errors.New("sendgrid down")}
	d := newDispatcher(t, failingStore{}, orders.NewRepository(client.DB()), sender, logs)

	assert.NotPanics(t, func() {
		d.OrderApproved(context.Background(), OrderApprovedNotice{OrderID: uuid.New(), BuyerID: buyer.ID, Total: decimal.NewFromInt(10)})
		d.SaleRecorded(context.Background(), SaleNotice{PhotographerUserID: uuid.New(), OrderID: uuid.New(), Credited: decimal.NewFromInt(8)})
	})
	assert.Contains(t, logs.String(), "notifications.create_failed")
	assert.Contains(t, logs.String(), "notifications.email_send_failed")
}

func TestDispatcherWithdrawalMessages(t *testing.T) {
	client := dbtest.New(t)
	d := newDispatcher(t, NewStore(client.DB()), orders.NewRepository(client.DB()), nil, &bytes.Buffer{})
	userID := uuid.New()
	ctx := context.Background()

	d.WithdrawalResolved(ctx, WithdrawalNotice{PhotographerUserID: userID, WithdrawalID: uuid.New(), Amount: decimal.NewFromInt(50), Status: enums.WithdrawalStatusProcessed})
	d.WithdrawalResolved(ctx, WithdrawalNotice{PhotographerUserID: userID, WithdrawalID: uuid.New(), Amount: decimal.NewFromInt(50), Status: enums.WithdrawalStatusCancelled, Note: "dados bancários inválidos"})
	d.WithdrawalResolved(ctx, WithdrawalNotice{PhotographerUserID: userID, WithdrawalID: uuid.New(), Amount: decimal.NewFromInt(50), Status: enums.WithdrawalStatusFailed})
	d.WithdrawalResolved(ctx, WithdrawalNotice{PhotographerUserID: userID, WithdrawalID: uuid.New(), Amount: decimal.NewFromInt(50), Status: enums.WithdrawalStatusPending})

	var rows []models.Notification
	require.NoError(t, client.DB().Where("user_id = ?", userID).Order("created_at ASC").Find(&rows).Error)
	require.Len(t, rows, 3)

	types := map[enums.NotificationType]string{}
	for _, row := range rows {
		types[row.Type] = row.Message
	}
	assert.Contains(t, types[enums.NotificationTypeWithdrawalProcessed], "R$ 50.00")
	assert.Contains(t, types[enums.NotificationTypeWithdrawalCancelled], "Motivo: dados bancários inválidos")
	assert.Contains(t, types, enums.NotificationTypeWithdrawalRejected)
}

func TestNewDispatcherValidates(t *testing.T) {
	_, err := NewDispatcher(DispatcherParams{})
	assert.Error(t, err)
}

func TestDescribePhotos(t *testing.T) {
	assert.Equal(t, "uma foto", describePhotos(nil))
	assert.Equal(t, `a foto "Sunset"`, describePhotos([]string{"Sunset"}))
	assert.Equal(t, "2 fotos", describePhotos([]string{"a", "b"}))
}
