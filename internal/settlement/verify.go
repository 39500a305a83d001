package settlement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/internal/orders"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/mercadopago"
)

// PaymentSearcher finds an approved provider payment for an order reference.
type PaymentSearcher interface {
	FindApprovedByReference(ctx context.Context, externalReference string) (*mercadopago.Payment, error)
}

// VerifyInput asks to reconcile an order against the provider on demand.
type VerifyInput struct {
	OrderID     uuid.UUID
	RequesterID uuid.UUID
	IsAdmin     bool
}

// Verifier reconciles orders whose webhook never arrived by searching the
// provider for an approved payment and settling through the normal path.
type Verifier struct {
	settler  *Service
	orders   orders.Repository
	searcher PaymentSearcher
}

// NewVerifier builds a verifier. A nil searcher yields CodeDependency on use.
func NewVerifier(settler *Service, repo orders.Repository, searcher PaymentSearcher) *Verifier {
	return &Verifier{settler: settler, orders: repo, searcher: searcher}
}

func (v *Verifier) VerifyPayment(ctx context.Context, input VerifyInput) (*orders.VerifyResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := v.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !input.IsAdmin && order.BuyerID != input.RequesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
	}

	result := &orders.VerifyResult{OrderID: order.ID, Status: string(order.Status)}
	if order.Status == enums.OrderStatusPaid {
		result.Message = "order already paid"
		return result, nil
	}
	if v.searcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider not configured")
	}

	payment, err := v.searcher.FindApprovedByReference(ctx, order.ID.String())
	if err != nil {
		return nil, err
	}
	if payment == nil {
		result.Message = "no approved payment found"
		return result, nil
	}

	settled, err := v.settler.Settle(ctx, SettleInput{
		OrderID:           order.ID,
		ExternalPaymentID: payment.ID,
		Provider:          enums.PaymentProviderMercadoPago,
	})
	if err != nil {
		return nil, err
	}
	result.Status = string(enums.OrderStatusPaid)
	result.Settled = settled.Outcome == OutcomeSettled
	if !result.Settled {
		result.Message = "order already paid"
	}
	return result, nil
}
