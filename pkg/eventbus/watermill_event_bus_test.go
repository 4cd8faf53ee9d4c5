package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/curator/pkg/channels/gochannel"
	"github.com/dukex/curator/pkg/events"
	"github.com/dukex/curator/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)

	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan *events.ArtifactReleased, 1)

	require.NoError(t, bus.Handle(events.ArtifactReleasedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.ArtifactReleased)

		return nil
	}))

	require.NoError(t, bus.Subscribe(t.Context()))

	artifact := models.Canonical{URL: "http://example.org/Library/a", Version: "1.0.0"}
	released := events.ArtifactReleased{
		BaseEvent:    events.NewBaseEvent(events.ArtifactReleasedEvent, artifact, "tx-1"),
		Components:   []string{artifact.String()},
		Dependencies: 2,
	}

	require.NoError(t, bus.Publish(t.Context(), released.Key(), released))

	select {
	case got := <-received:
		assert.Equal(t, released.ID, got.ID)
		assert.Equal(t, 2, got.Dependencies)
		assert.Equal(t, "tx-1", got.TransactionID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
