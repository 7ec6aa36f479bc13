package hub

import (
	"context"

	"github.com/coachhub/coach-chat/pkg/log"
)

// Hub owns the set of open connections and the token registry. Connection
// lifecycle goes through Run; logins write straight into the sharded
// registry.
type Hub struct {
	clients    map[string]*Client // clientID -> client, owned by Run
	registry   *Registry
	register   chan *Client
	unregister chan *Client
	count      chan chan int
	done       chan struct{}
}

// NewHub creates a hub around registry.
func NewHub(registry *Registry) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		registry:   registry,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Registry returns the token registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run processes connection lifecycle events until ctx ends, then closes
// every remaining client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	l := log.L()

	for {
		select {
		case client := <-h.register:
			h.clients[client.ID()] = client
			l.Debug().Str(log.FieldClientID, client.ID()).Msg("client registered")

		case client := <-h.unregister:
			if _, ok := h.clients[client.ID()]; ok {
				delete(h.clients, client.ID())
				removed := h.registry.UnregisterChannel(client)
				client.close()
				l.Debug().Str(log.FieldClientID, client.ID()).Int("tokens", removed).Msg("client unregistered")
			}

		case reply := <-h.count:
			reply <- len(h.clients)

		case <-ctx.Done():
			for id, client := range h.clients {
				h.registry.UnregisterChannel(client)
				client.close()
				delete(h.clients, id)
			}
			l.Info().Msg("hub stopped")
			return
		}
	}
}

// Register adds a freshly connected client.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Unregister removes a client and every token bound to it.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		h.registry.UnregisterChannel(client)
		client.close()
	}
}

// LogIn binds token and userID to client in the registry. A client that logs
// in again with a new token drops its previous one.
func (h *Hub) LogIn(client *Client, token, userID string) {
	if prev := client.bind(token, userID); prev != "" {
		h.registry.Unregister(prev)
	}
	h.registry.Register(token, userID, client)
	// The connection may have dropped while logging in.
	if client.isClosed() {
		h.registry.Unregister(token)
	}
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}
