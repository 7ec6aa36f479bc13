package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachhub/coach-chat/internal/domain"
	"github.com/coachhub/coach-chat/internal/hub"
	"github.com/coachhub/coach-chat/pkg/pubsub"
)

type recordingChannel struct {
	id   string
	fail bool

	mu     sync.Mutex
	pushed []interface{}
}

func (c *recordingChannel) ID() string { return c.id }

func (c *recordingChannel) Push(message interface{}) error {
	if c.fail {
		return errors.New("closed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushed = append(c.pushed, message)
	return nil
}

func (c *recordingChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pushed)
}

// memoryPubSub is an in-process bus shared by several relays.
type memoryPubSub struct {
	mu   sync.Mutex
	subs map[string][]chan *pubsub.Event
}

func newMemoryPubSub() *memoryPubSub {
	return &memoryPubSub{subs: make(map[string][]chan *pubsub.Event)}
}

func (m *memoryPubSub) Publish(_ context.Context, channel string, event *pubsub.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs[channel] {
		ch <- event
	}
	return nil
}

func (m *memoryPubSub) Subscribe(_ context.Context, channel string) (<-chan *pubsub.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *pubsub.Event, 16)
	m.subs[channel] = append(m.subs[channel], ch)
	return ch, nil
}

func (m *memoryPubSub) Unsubscribe(_ context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs[channel] {
		close(ch)
	}
	delete(m.subs, channel)
	return nil
}

func (m *memoryPubSub) Close() error { return nil }

func testEvent() *domain.NewMessageEvent {
	return domain.NewMessageEventFor(&domain.Message{
		ID:             "m1",
		ConversationID: "c1",
		Timestamp:      time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
}

func TestNotifyPushesToEveryDevice(t *testing.T) {
	registry := hub.NewRegistry()
	phone := &recordingChannel{id: "phone"}
	laptop := &recordingChannel{id: "laptop"}
	author := &recordingChannel{id: "author"}
	stranger := &recordingChannel{id: "stranger"}
	registry.Register("t1", "bob", phone)
	registry.Register("t2", "bob", laptop)
	registry.Register("t3", "ann", author)
	registry.Register("t4", "eve", stranger)

	NewNotifier(registry, nil).NotifyNewMessage(context.Background(), []string{"ann", "bob"}, testEvent())

	assert.Equal(t, 1, phone.count())
	assert.Equal(t, 1, laptop.count())
	assert.Equal(t, 1, author.count())
	assert.Zero(t, stranger.count())

	ev, ok := phone.pushed[0].(*domain.NewMessageEvent)
	require.True(t, ok)
	assert.Equal(t, "c1", ev.ConversationID)
	assert.Equal(t, "m1", ev.MessageID)
	assert.Equal(t, domain.MsgTypeNewMessageInChat, ev.Type)
}

func TestDeliverLocalSkipsFailedChannels(t *testing.T) {
	registry := hub.NewRegistry()
	dead := &recordingChannel{id: "dead", fail: true}
	live := &recordingChannel{id: "live"}
	registry.Register("t1", "bob", dead)
	registry.Register("t2", "bob", live)

	n := DeliverLocal(context.Background(), registry, []string{"bob", "nobody"}, testEvent())
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, live.count())
}

func TestRelayDeliversOnOtherNodesOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := newMemoryPubSub()

	regA, regB := hub.NewRegistry(), hub.NewRegistry()
	onA := &recordingChannel{id: "on-a"}
	onB := &recordingChannel{id: "on-b"}
	regA.Register("ta", "bob", onA)
	regB.Register("tb", "bob", onB)

	relayA := NewRelay(bus, "chat", "node-a", regA, time.Second)
	relayB := NewRelay(bus, "chat", "node-b", regB, time.Second)
	require.NoError(t, relayA.Start(ctx))
	require.NoError(t, relayB.Start(ctx))

	NewNotifier(regA, relayA).NotifyNewMessage(ctx, []string{"bob"}, testEvent())

	assert.Eventually(t, func() bool { return onB.count() == 1 }, time.Second, 10*time.Millisecond)
	// Node A delivered locally and ignores its own relayed copy.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, onA.count())

	require.NoError(t, relayA.Stop(ctx))
}
