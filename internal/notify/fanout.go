package notify

import (
	"context"

	"github.com/coachhub/coach-chat/internal/domain"
	"github.com/coachhub/coach-chat/internal/hub"
	"github.com/coachhub/coach-chat/pkg/log"
)

// Notifier pushes new-message events to every live channel of the
// recipients on this instance and, when a relay is configured, hands the
// event to other instances. Delivery is best effort: failures are logged
// and never returned.
type Notifier struct {
	registry *hub.Registry
	relay    *Relay
}

// NewNotifier creates a notifier. relay may be nil for a single instance.
func NewNotifier(registry *hub.Registry, relay *Relay) *Notifier {
	return &Notifier{registry: registry, relay: relay}
}

// NotifyNewMessage implements service.Notifier.
func (n *Notifier) NotifyNewMessage(ctx context.Context, recipientIDs []string, event *domain.NewMessageEvent) {
	delivered := DeliverLocal(ctx, n.registry, recipientIDs, event)

	l := log.Ctx(ctx)
	l.Debug().
		Str(log.FieldConversationID, event.ConversationID).
		Str(log.FieldMessageID, event.MessageID).
		Int("delivered", delivered).
		Msg("new message fan-out")

	if n.relay != nil {
		n.relay.Publish(ctx, recipientIDs, event)
	}
}

// DeliverLocal pushes event to every channel registered for the recipients
// and returns how many pushes were accepted. Pushes never block.
func DeliverLocal(ctx context.Context, registry *hub.Registry, recipientIDs []string, event *domain.NewMessageEvent) int {
	l := log.Ctx(ctx)
	delivered := 0
	for _, userID := range recipientIDs {
		for ch := range registry.LookupByUser(userID) {
			if err := ch.Push(event); err != nil {
				l.Warn().Err(err).
					Str(log.FieldUserID, userID).
					Str(log.FieldClientID, ch.ID()).
					Str(log.FieldConversationID, event.ConversationID).
					Msg("failed to push new message event")
				continue
			}
			delivered++
		}
	}
	return delivered
}
