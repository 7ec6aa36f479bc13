package notify

import (
	"context"
	"time"

	"github.com/coachhub/coach-chat/internal/domain"
	"github.com/coachhub/coach-chat/internal/hub"
	"github.com/coachhub/coach-chat/pkg/log"
	"github.com/coachhub/coach-chat/pkg/pubsub"
)

// RelayPayload is what travels between instances on the notify channel.
type RelayPayload struct {
	Recipients []string                `json:"recipients"`
	Event      *domain.NewMessageEvent `json:"event"`
}

// Relay forwards new-message events between instances so a recipient
// connected to another node is still notified. Each node skips the events
// it published itself, having delivered them locally already.
type Relay struct {
	ps             pubsub.PubSub
	channel        string
	nodeID         string
	registry       *hub.Registry
	publishTimeout time.Duration
}

// NewRelay creates a relay over ps publishing on the prefix's notify channel.
func NewRelay(ps pubsub.PubSub, prefix, nodeID string, registry *hub.Registry, publishTimeout time.Duration) *Relay {
	if publishTimeout <= 0 {
		publishTimeout = 2 * time.Second
	}
	return &Relay{
		ps:             ps,
		channel:        pubsub.ChatNotifyChannel(prefix),
		nodeID:         nodeID,
		registry:       registry,
		publishTimeout: publishTimeout,
	}
}

// Publish sends event to the other instances. Errors are logged only.
func (r *Relay) Publish(ctx context.Context, recipientIDs []string, event *domain.NewMessageEvent) {
	l := log.Ctx(ctx)

	ev, err := pubsub.NewEvent(pubsub.EventNewMessageInChat, r.nodeID, event.ConversationID, RelayPayload{
		Recipients: recipientIDs,
		Event:      event,
	})
	if err != nil {
		l.Error().Err(err).Msg("failed to encode relay event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.publishTimeout)
	defer cancel()
	if err := r.ps.Publish(ctx, r.channel, ev); err != nil {
		l.Warn().Err(err).
			Str(log.FieldConversationID, event.ConversationID).
			Str(log.FieldMessageID, event.MessageID).
			Msg("failed to relay new message event")
	}
}

// Start subscribes to the notify channel and delivers events from other
// instances until ctx ends. The subscription is confirmed before Start
// returns.
func (r *Relay) Start(ctx context.Context) error {
	events, err := r.ps.Subscribe(ctx, r.channel)
	if err != nil {
		return err
	}
	go r.consume(ctx, events)
	return nil
}

func (r *Relay) consume(ctx context.Context, events <-chan *pubsub.Event) {
	l := log.L().With().Str("channel", r.channel).Logger()
	ctx = log.WithLogger(ctx, l)

	for ev := range events {
		if ev.Origin == r.nodeID || ev.Type != pubsub.EventNewMessageInChat {
			continue
		}
		var payload RelayPayload
		if err := ev.UnmarshalPayload(&payload); err != nil || payload.Event == nil {
			l.Warn().Err(err).Str("origin", ev.Origin).Msg("dropping malformed relay event")
			continue
		}
		n := DeliverLocal(ctx, r.registry, payload.Recipients, payload.Event)
		l.Debug().
			Str("origin", ev.Origin).
			Str(log.FieldConversationID, payload.Event.ConversationID).
			Int("delivered", n).
			Msg("relayed new message delivered")
	}
}

// Stop removes the subscription.
func (r *Relay) Stop(ctx context.Context) error {
	return r.ps.Unsubscribe(ctx, r.channel)
}
