package payouts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gtclicks/ledger-backend/pkg/asaas"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
)

// DescriptionPrefix tags every outgoing transfer so authorization callbacks
// can be matched back to a withdrawal.
const DescriptionPrefix = "Saque GT Clicks - "

// Description builds the transfer description for a withdrawal.
func Description(withdrawalID uuid.UUID) string {
	return DescriptionPrefix + withdrawalID.String()
}

// ParseDescription extracts the withdrawal id from a transfer description.
// Anything not produced by Description is rejected.
func ParseDescription(description string) (uuid.UUID, bool) {
	trimmed := strings.TrimSpace(description)
	if !strings.HasPrefix(trimmed, DescriptionPrefix) {
		return uuid.Nil, false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(trimmed, DescriptionPrefix))
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// TransferState is the gateway-neutral result of a transfer call.
type TransferState string

const (
	TransferCompleted TransferState = "completed"
	TransferAwaiting  TransferState = "awaiting_authorization"
)

// TransferInput describes one PIX payout.
type TransferInput struct {
	WithdrawalID uuid.UUID
	Amount       decimal.Decimal
	PixKey       string
}

// Transfer is what the gateway reported for a sent transfer.
type Transfer struct {
	ID    string
	State TransferState
}

// TransferGateway sends PIX transfers and reads the platform account balance.
type TransferGateway interface {
	SendPix(ctx context.Context, input TransferInput) (*Transfer, error)
	Balance(ctx context.Context) (decimal.Decimal, error)
}

type asaasClient interface {
	CreatePixTransfer(ctx context.Context, req asaas.TransferRequest) (*asaas.Transfer, error)
	Balance(ctx context.Context) (decimal.Decimal, error)
}

// AsaasGateway adapts the Asaas client. Each call carries its own deadline on
// top of the HTTP client timeout.
type AsaasGateway struct {
	client  asaasClient
	timeout time.Duration
}

func NewAsaasGateway(client asaasClient, timeout time.Duration) *AsaasGateway {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &AsaasGateway{client: client, timeout: timeout}
}

func (g *AsaasGateway) SendPix(ctx context.Context, input TransferInput) (*Transfer, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	transfer, err := g.client.CreatePixTransfer(ctx, asaas.TransferRequest{
		Amount:      input.Amount,
		PixKey:      input.PixKey,
		Description: Description(input.WithdrawalID),
	})
	if err != nil {
		return nil, err
	}
	switch {
	case transfer.Done():
		return &Transfer{ID: transfer.ID, State: TransferCompleted}, nil
	case transfer.AwaitingAuthorization():
		return &Transfer{ID: transfer.ID, State: TransferAwaiting}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeGatewayRejected, "transfer returned status "+transfer.Status).
			WithDetails(map[string]any{"transfer_id": transfer.ID, "status": transfer.Status})
	}
}

func (g *AsaasGateway) Balance(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.client.Balance(ctx)
}
