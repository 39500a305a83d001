package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gtclicks/ledger-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "gtclicks-prod"}

	assert.Equal(t, "projects/gtclicks-prod/topics/ledger", c.topicName("ledger"))
	assert.Equal(t, "projects/gtclicks-prod/subscriptions/audit", c.subscriptionName(" audit "))
	assert.Equal(t, "projects/other/topics/ledger", c.topicName("projects/other/topics/ledger"))
	assert.Empty(t, c.topicName(""))
	assert.Empty(t, (&Client{}).topicName("ledger"), "no project, no name")
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{LedgerTopic: "x"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{LedgerTopic: " "}, nil)
	assert.ErrorIs(t, err, errTopicRequired)
}

func TestNilClientHelpers(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("ledger"))
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
}
