// internal/events/bus_test.go
package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 8)
	defer bus.Shutdown(context.Background())

	var mu sync.Mutex
	var got []Stage
	done := make(chan struct{}, 2)
	bus.SubscribeFunc(LaunchStage, func(_ context.Context, e Event) error {
		mu.Lock()
		got = append(got, e.(LaunchStageEvent).Stage)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	require.NoError(t, bus.Publish(NewLaunchStage("l1", StageMintKey, nil)))
	require.NoError(t, bus.Publish(NewLaunchStage("l1", StageMetadata, map[string]string{"source": "inline"})))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []Stage{StageMintKey, StageMetadata}, got)
}

func TestPublishSyncJoinsHandlerErrors(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 1)
	defer bus.Shutdown(context.Background())

	boom := errors.New("boom")
	bus.SubscribeFunc(LaunchFailed, func(context.Context, Event) error { return boom })
	bus.SubscribeFunc(LaunchFailed, func(context.Context, Event) error { return nil })

	err := bus.PublishSync(context.Background(), NewLaunchFailed("l1", StageSubmit, errors.New("rpc")))
	assert.ErrorIs(t, err, boom)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 1)
	defer bus.Shutdown(context.Background())

	calls := 0
	sub := bus.SubscribeFunc(LaunchCompleted, func(context.Context, Event) error {
		calls++
		return nil
	})
	assert.Equal(t, 1, bus.Stats().HandlersPerType[LaunchCompleted])

	sub.Unsubscribe()
	require.NoError(t, bus.PublishSync(context.Background(), NewLaunchCompleted("l1", "m", "a", "s")))
	assert.Zero(t, calls)
	assert.Zero(t, bus.Stats().HandlersPerType[LaunchCompleted])
}

func TestPublishAfterShutdown(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 1)
	require.NoError(t, bus.Shutdown(context.Background()))

	err := bus.Publish(NewLaunchStarted("l1", "payer", "Test", "TST", 0))
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestEventConstructors(t *testing.T) {
	e := NewLaunchCompleted("id", "mint", "ata", "sig")
	assert.Equal(t, LaunchCompleted, e.Type())
	assert.Equal(t, "id", e.LaunchID)
	assert.False(t, e.Timestamp().IsZero())
}

func TestForLaunchFiltersByLaunchID(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 4)
	defer bus.Shutdown(context.Background())

	var stages []Stage
	bus.Subscribe(LaunchStage, ForLaunch("wanted", HandlerFunc(func(_ context.Context, e Event) error {
		stages = append(stages, e.(LaunchStageEvent).Stage)
		return nil
	})))

	ctx := context.Background()
	require.NoError(t, bus.PublishSync(ctx, NewLaunchStage("other", StageBuild, nil)))
	require.NoError(t, bus.PublishSync(ctx, NewLaunchStage("wanted", StageSubmit, nil)))
	assert.Equal(t, []Stage{StageSubmit}, stages)
}
