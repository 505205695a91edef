package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"field-dispatch/internal/entities"
	"field-dispatch/internal/events"
	"field-dispatch/pkg/eventbus"
)

func TestOutboxRelayRepublishesStaleMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var (
		mu       sync.Mutex
		received []events.TaskEvent
	)
	env.bus.Subscribe("task.created", func(ctx context.Context, event eventbus.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event.(events.TaskEvent))
		return nil
	})

	id := env.createTask(t, env.tech)
	env.bus.Wait()
	mu.Lock()
	require.Len(t, received, 1, "delivered once right after commit")
	received = nil
	mu.Unlock()

	broken := &entities.OutboxMessage{ID: uuid.New(), EventType: "task.created", Payload: json.RawMessage(`{"type":`)}
	require.NoError(t, env.outbox.Insert(ctx, nil, broken))

	relay := NewOutboxRelay(env.outbox, env.bus, testDispatchConfig, zap.NewNop())
	relay.now = env.clock.Now

	published, err := relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, published, "nothing is older than the grace period yet")

	env.clock.Advance(2 * time.Minute)
	published, err = relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, published, "task.created and task.assigned; the broken row is not publishable")
	env.bus.Wait()

	mu.Lock()
	require.Len(t, received, 1)
	assert.Equal(t, id, received[0].Task.ID)
	mu.Unlock()

	env.outbox.mu.Lock()
	assert.Equal(t, 1, env.outbox.messages[broken.ID].Attempts)
	require.NotNil(t, env.outbox.messages[broken.ID].LastError)
	env.outbox.mu.Unlock()

	published, err = relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, published, "claimed rows wait out the grace period again")
}

func TestOutboxRelayGivesUpAfterMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createTask(t, env.tech)

	relay := NewOutboxRelay(env.outbox, env.bus, testDispatchConfig, zap.NewNop())
	relay.now = env.clock.Now

	for i := 0; i < testDispatchConfig.MaxAttempts; i++ {
		env.clock.Advance(2 * time.Minute)
		published, err := relay.RelayOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, published, "pass %d", i+1)
	}

	env.clock.Advance(time.Hour)
	published, err := relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, published)
}
