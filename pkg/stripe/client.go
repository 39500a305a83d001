// Package stripe verifies payment intent webhooks. The ledger never calls the
// Stripe API, so only the signing secret is needed.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/gtclicks/ledger-backend/pkg/config"
	"github.com/gtclicks/ledger-backend/pkg/logger"
)

var (
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = errors.New(`stripe environment must be "test" or "live"`)
	errLivemodeMismatch = errors.New("stripe event livemode does not match environment")
)

type Client struct {
	secret    string
	live      bool
	tolerance time.Duration
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	switch env := strings.ToLower(strings.TrimSpace(cfg.Env)); env {
	case "", "test", "live":
	default:
		return nil, fmt.Errorf("%w, got %q", errInvalidStripeEnv, env)
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errSecretRequired
	}
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}

	c := &Client{secret: secret, live: cfg.Live(), tolerance: tolerance}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "livemode", c.live), "stripe.verifier_ready")
	}
	return c, nil
}

// ConstructEvent checks the Stripe-Signature header and rejects events from
// the other environment, so test-mode payments never settle live orders.
func (c *Client) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if c == nil || c.secret == "" {
		return stripe.Event{}, errSecretRequired
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.secret, webhook.ConstructEventOptions{
		Tolerance:                c.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, err
	}
	if event.Livemode != c.live {
		return stripe.Event{}, errLivemodeMismatch
	}
	return event, nil
}
