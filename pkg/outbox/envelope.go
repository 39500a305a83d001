package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ActorKind string

const (
	ActorGateway ActorKind = "gateway"
	ActorAdmin   ActorKind = "admin"
	ActorSystem  ActorKind = "system"
)

// Actor records what caused a ledger movement: a gateway callback, an admin
// decision or the payout engine itself.
type Actor struct {
	Kind ActorKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
}

func GatewayActor(provider string) *Actor {
	return &Actor{Kind: ActorGateway, ID: provider}
}

func AdminActor(adminID uuid.UUID) *Actor {
	return &Actor{Kind: ActorAdmin, ID: adminID.String()}
}

func SystemActor() *Actor {
	return &Actor{Kind: ActorSystem}
}

// PayloadEnvelope is the JSON stored in outbox_events.payload. EventID is the
// outbox row id, so subscribers can dedupe redeliveries on it.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *Actor          `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
