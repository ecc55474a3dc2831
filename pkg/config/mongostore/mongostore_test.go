package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRequiresAllCoordinates(t *testing.T) {
	_, err := New(context.Background(), "mongodb://localhost:27017", "ham", "", "agent-1")
	assert.Error(t, err)
}

func TestNewGivesUpWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := New(ctx, "mongodb://127.0.0.1:1", "ham", "agent_configs", "agent-1")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestConnectBackOffIsBounded(t *testing.T) {
	b := ConnectBackOff()
	assert.Equal(t, 30*time.Second, b.MaxElapsedTime)
	assert.LessOrEqual(t, b.MaxInterval, 5*time.Second)
}
