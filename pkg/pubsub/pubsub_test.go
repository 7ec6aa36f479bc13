package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelToTopic(t *testing.T) {
	topic, err := channelToTopic("chat:notify")
	require.NoError(t, err)
	assert.Equal(t, "chat-notify", topic)

	_, err = channelToTopic(":::")
	assert.Error(t, err)
}

func TestChatNotifyChannel(t *testing.T) {
	assert.Equal(t, "chat:notify", ChatNotifyChannel(""))
	assert.Equal(t, "coach:notify", ChatNotifyChannel("coach"))
}

func TestSanitizeGroupID(t *testing.T) {
	assert.Equal(t, "chat-notify", sanitizeGroupID("chat:notify"))
}

func TestNewPubSubNone(t *testing.T) {
	ps, err := NewPubSub(Config{Driver: DriverNone})
	require.NoError(t, err)
	assert.Nil(t, ps)

	_, err = NewPubSub(Config{Driver: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestEventPayloadRoundTrip(t *testing.T) {
	ev, err := NewEvent(EventNewMessageInChat, "node-a", "c1", map[string]string{"conversation_id": "c1"})
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, ev.UnmarshalPayload(&out))
	assert.Equal(t, "c1", out["conversation_id"])
	assert.Equal(t, "node-a", ev.Origin)
}

// Requires a local Redis; skipped otherwise.
func TestRedisPubSubDelivers(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping: redis unavailable: %v", err)
	}

	ps := NewRedisPubSubFromClient(client)
	defer ps.Close()

	subCtx, subCancel := context.WithCancel(context.Background())
	defer subCancel()

	ch, err := ps.Subscribe(subCtx, "test:notify")
	require.NoError(t, err)

	ev, err := NewEvent(EventNewMessageInChat, "node-a", "", map[string]string{"k": "v"})
	require.NoError(t, err)
	require.NoError(t, ps.Publish(ctx, "test:notify", ev))

	select {
	case got := <-ch:
		assert.Equal(t, EventNewMessageInChat, got.Type)
		assert.Equal(t, "node-a", got.Origin)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}
