package websocket

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/videostream/videostream_server/internal/earnings"
)

const broadcastBufferSize = 256

// Hub tracks connected creators and fans earnings updates out to every
// connection a creator has open.
type Hub struct {
	clients    map[*Client]bool
	byUser     map[string][]*Client // user id -> clients
	register   chan *Client
	unregister chan *Client
	broadcast  chan earnings.CreatorEarnings
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byUser:     make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan earnings.CreatorEarnings, broadcastBufferSize),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled. Clients
// notice the shutdown through done and close their own connections.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case snapshot := <-h.broadcast:
			h.sendToUser(snapshot)
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.RLock()
	defer h.mu.RUnlock()
	log.Info().
		Int("totalClients", len(h.clients)).
		Msg("[WS] Hub stopped")
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.byUser[client.user.ID] = append(h.byUser[client.user.ID], client)

	log.Info().
		Str("userId", client.user.ID).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	close(client.send)

	userClients := h.byUser[client.user.ID]
	for i, c := range userClients {
		if c == client {
			h.byUser[client.user.ID] = append(userClients[:i], userClients[i+1:]...)
			break
		}
	}
	if len(h.byUser[client.user.ID]) == 0 {
		delete(h.byUser, client.user.ID)
	}

	log.Info().
		Str("userId", client.user.ID).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Client unregistered")
}

func (h *Hub) sendToUser(snapshot earnings.CreatorEarnings) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.byUser[snapshot.CreatorID]
	if len(clients) == 0 {
		return
	}

	msg := &EarningsMessage{
		Type:               MessageTypeEarningsUpdated,
		Earnings:           snapshot,
		AvailableForPayout: snapshot.AvailableForPayout(),
	}

	for _, client := range clients {
		select {
		case client.send <- msg:
		default:
			log.Warn().
				Str("userId", client.user.ID).
				Msg("[WS] Client send buffer full, dropping message")
		}
	}

	log.Debug().
		Str("userId", snapshot.CreatorID).
		Int("recipients", len(clients)).
		Msg("[WS] Earnings update sent")
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// NotifyEarnings queues snapshot for the creator's open connections. It
// never blocks the caller; updates are dropped when the hub is backed up.
func (h *Hub) NotifyEarnings(snapshot earnings.CreatorEarnings) {
	select {
	case h.broadcast <- snapshot:
	default:
		log.Warn().
			Str("userId", snapshot.CreatorID).
			Msg("[WS] Broadcast queue full, dropping earnings update")
	}
}

func (h *Hub) GetStats() (totalClients, totalUsers int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients), len(h.byUser)
}
