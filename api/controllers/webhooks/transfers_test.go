package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtclicks/ledger-backend/internal/transferauth"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
)

type stubAuthorizer struct {
	token    string
	callback *transferauth.Callback
	event    *transferauth.Event
	decision transferauth.Decision
	eventErr error
}

func (s *stubAuthorizer) Decide(ctx context.Context, token string, cb *transferauth.Callback) transferauth.Decision {
	s.token = token
	s.callback = cb
	return s.decision
}

func (s *stubAuthorizer) HandleEvent(ctx context.Context, token string, event *transferauth.Event) error {
	s.token = token
	s.event = event
	return s.eventErr
}

func TestTransferAuthorizationReturnsDecision(t *testing.T) {
	auth := &stubAuthorizer{decision: transferauth.Decision{Status: transferauth.StatusApproved}}
	body := `{"type":"TRANSFER","transfer":{"id":"tr_1","value":50,"description":"Saque GTClicks"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas/transfer-authorization", strings.NewReader(body))
	req.Header.Set(TransferTokenHeader, "secret")
	rec := httptest.NewRecorder()

	TransferAuthorization(auth, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "secret", auth.token)
	require.NotNil(t, auth.callback)
	assert.Equal(t, "tr_1", auth.callback.Transfer.ID)

	var decision transferauth.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, transferauth.StatusApproved, decision.Status)
}

func TestTransferAuthorizationMalformedBodyStillAnswers200(t *testing.T) {
	auth := &stubAuthorizer{decision: transferauth.Decision{Status: transferauth.StatusRefused, RefuseReason: "invalid payload or type is not TRANSFER"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas/transfer-authorization", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	TransferAuthorization(auth, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, auth.callback)
	var decision transferauth.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, transferauth.StatusRefused, decision.Status)
}

func TestTransferAuthorizationWithoutHandlerRefuses(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas/transfer-authorization", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	TransferAuthorization(nil, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var decision transferauth.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, transferauth.StatusRefused, decision.Status)
}

func TestTransferEvents(t *testing.T) {
	body := `{"event":"TRANSFER_FAILED","transfer":{"id":"tr_2","value":10}}`

	t.Run("acknowledged", func(t *testing.T) {
		auth := &stubAuthorizer{}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas/transfer-events", strings.NewReader(body))
		req.Header.Set(TransferTokenHeader, "secret")
		rec := httptest.NewRecorder()
		TransferEvents(auth, testLogger())(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, auth.event)
		assert.Equal(t, transferauth.EventTransferFailed, auth.event.Event)
	})

	t.Run("bad token", func(t *testing.T) {
		auth := &stubAuthorizer{eventErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook token")}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas/transfer-events", strings.NewReader(body))
		rec := httptest.NewRecorder()
		TransferEvents(auth, testLogger())(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas/transfer-events", strings.NewReader("nope"))
		rec := httptest.NewRecorder()
		TransferEvents(&stubAuthorizer{}, testLogger())(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
