package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.asaas.com"
	userAgent                   = "GTClicks/1.0"
	responseBodyReadLimit int64 = 64 * 1024
)

// Transfer statuses reported by POST /v3/transfers.
const (
	TransferStatusPending        = "PENDING"
	TransferStatusBankProcessing = "BANK_PROCESSING"
	TransferStatusDone           = "DONE"
	TransferStatusCancelled      = "CANCELLED"
	TransferStatusFailed         = "FAILED"
)

var errAPIKeyRequired = errors.New("asaas api key is required")

// Client wraps the Asaas transfer and finance APIs used for photographer payouts.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API host (sandbox vs production).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds the Asaas client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// TransferRequest describes a PIX transfer to a photographer.
type TransferRequest struct {
	Amount      decimal.Decimal
	PixKey      string
	KeyType     PixKeyType
	Description string
}

// Transfer is the gateway's view of a created transfer.
type Transfer struct {
	ID     string
	Status string
	Value  decimal.Decimal
}

// Done reports whether the money already left the account.
func (t *Transfer) Done() bool {
	return t != nil && t.Status == TransferStatusDone
}

// AwaitingAuthorization reports whether completion arrives through the
// transfer authorization webhook.
func (t *Transfer) AwaitingAuthorization() bool {
	if t == nil {
		return false
	}
	return t.Status == TransferStatusPending || t.Status == TransferStatusBankProcessing
}

type transferBody struct {
	Value             json.Number `json:"value"`
	PixAddressKey     string      `json:"pixAddressKey"`
	PixAddressKeyType PixKeyType  `json:"pixAddressKeyType"`
	Description       string      `json:"description"`
}

// CreatePixTransfer sends a PIX transfer. A 4xx answer is reported as
// CodeGatewayRejected; transport failures and 5xx as CodeDependency.
func (c *Client) CreatePixTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "asaas client not configured")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer amount must be positive")
	}

	keyType := req.KeyType
	if keyType == "" {
		keyType = DetectPixKeyType(req.PixKey)
	}
	key := NormalizePixKey(req.PixKey, keyType)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pix key is empty or invalid")
	}

	payload, err := json.Marshal(transferBody{
		Value:             json.Number(req.Amount.StringFixed(2)),
		PixAddressKey:     key,
		PixAddressKeyType: keyType,
		Description:       req.Description,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal transfer request")
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/v3/transfers", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var apiResp struct {
		ID     string          `json:"id"`
		Status string          `json:"status"`
		Value  decimal.Decimal `json:"value"`
	}
	if err := c.do(httpReq, &apiResp); err != nil {
		return nil, err
	}

	return &Transfer{ID: apiResp.ID, Status: apiResp.Status, Value: apiResp.Value}, nil
}

// Balance returns the account's available balance.
func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	if c == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "asaas client not configured")
	}
	httpReq, err := c.newRequest(ctx, http.MethodGet, "/v3/finance/balance", nil)
	if err != nil {
		return decimal.Zero, err
	}

	var apiResp map[string]json.RawMessage
	if err := c.do(httpReq, &apiResp); err != nil {
		return decimal.Zero, err
	}
	// the field name varies across account types
	for _, field := range []string{"balance", "Balance", "value", "saldo"} {
		raw, ok := apiResp[field]
		if !ok || string(raw) == "null" {
			continue
		}
		var balance decimal.Decimal
		if err := balance.UnmarshalJSON(raw); err != nil {
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode asaas balance")
		}
		return balance, nil
	}
	return decimal.Zero, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build asaas request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("access_token", c.apiKey)
	return httpReq, nil
}

func (c *Client) do(httpReq *http.Request, out any) error {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute asaas request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read asaas response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(body, resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return pkgerrors.New(pkgerrors.CodeGatewayRejected, msg).
				WithDetails(map[string]any{"status": resp.StatusCode})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d", resp.StatusCode), msg)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode asaas response")
	}
	return nil
}

func errorMessage(body []byte, status int) string {
	var apiErr struct {
		Errors []struct {
			Description string `json:"description"`
		} `json:"errors"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if len(apiErr.Errors) > 0 && apiErr.Errors[0].Description != "" {
			return apiErr.Errors[0].Description
		}
		if apiErr.Error != "" {
			return apiErr.Error
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}
