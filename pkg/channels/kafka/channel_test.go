package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/curator/pkg/events"
	"github.com/stretchr/testify/assert"
)

func TestBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "env-1:9092,env-2:9092")

	assert.Equal(t, []string{"a:9092", "b:9092"}, Brokers(" a:9092, ,b:9092"))
	assert.Equal(t, []string{"env-1:9092", "env-2:9092"}, Brokers(""))

	t.Setenv("KAFKA_BROKERS", "")
	assert.Empty(t, Brokers(""))
}

func TestCreateChannel_NoBrokers(t *testing.T) {
	_, _, err := CreateChannel(watermill.NopLogger{}, "curator", nil)
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestPartitionKey(t *testing.T) {
	msg := message.NewMessage("1", nil)
	msg.Metadata.Set(events.EventMetadataKey, "http://example.org/Library/a")

	key, err := partitionKey(events.Topic, msg)
	assert.NoError(t, err)
	assert.Equal(t, "http://example.org/Library/a", key)
}
