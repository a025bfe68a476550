// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package realtime

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/nutricoach/nutricoach/internal/logging"
	"github.com/nutricoach/nutricoach/internal/metrics"
)

// ErrBroadcastQueueFull reports that the hub's broadcast buffer was
// full and the message was dropped.
var ErrBroadcastQueueFull = errors.New("realtime: broadcast queue full")

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown
	// path (e.g. SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline
	// was exceeded during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub maintains the set of active clients and fans broadcast messages
// out to the subscribers of each channel.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Broadcast implements Publisher by enqueueing the message for the
// serve loop. It never blocks: when the buffer is full the message is
// dropped, counted, and reported as an error so a wrapping breaker can
// observe sustained downstream pressure.
func (h *Hub) Broadcast(_ context.Context, channel, event string, data any) error {
	msg := Message{Channel: channel, Event: event, Data: data}
	select {
	case h.broadcast <- msg:
		return nil
	default:
		metrics.RecordBroadcast(event, "dropped")
		logging.Warn().
			Str("channel", channel).
			Str("event", event).
			Msg("broadcast queue full, dropping message")
		return ErrBroadcastQueueFull
	}
}

// Serve runs the hub until the context is canceled. It is designed
// for suture supervision: on cancellation all clients are closed and
// ctx.Err() is returned so the supervisor stops rather than restarts.
//
// DETERMINISM: Uses priority-based selection to ensure predictable
// behavior when multiple channels are ready simultaneously:
// - Priority 1: Context cancellation (shutdown)
// - Priority 2: Client lifecycle events (Register/Unregister)
// - Priority 3: Broadcast messages
// This ensures client state is always consistent before messages are
// delivered.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		// Priority 1: Check for shutdown (non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle client lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
			// No lifecycle events pending
		}

		// Priority 3: Handle broadcast messages or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.RealtimeClients.Set(float64(total))
	logging.Info().
		Str("channel", client.channel).
		Int("total_clients", total).
		Msg("realtime client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.closeSend()
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.RealtimeClients.Set(float64(total))
	logging.Info().
		Str("channel", client.channel).
		Int("total_clients", total).
		Msg("realtime client disconnected")
}

// broadcastToClients delivers a message to every subscriber of its
// channel in a deterministic order.
// DETERMINISM: Clients are sorted by their monotonically increasing ID
// so delivery order is reproducible across runs and in tests.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	// Track clients to remove (can't modify map during iteration)
	var toRemove []*Client

	delivered := 0
	for _, client := range clients {
		if !client.subscribed(message.Channel) {
			continue
		}
		switch client.trySend(message) {
		case sendOK:
			delivered++
		case sendFull:
			// Send buffer full, the client is stuck; drop it.
			toRemove = append(toRemove, client)
		case sendClosed:
			// Already closed elsewhere; removal happens via Unregister.
		}
	}

	for _, client := range toRemove {
		client.closeSend()
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		metrics.RealtimeClients.Set(float64(len(h.clients)))
	}

	metrics.RecordBroadcast(message.Event, "ok")
	logging.Debug().
		Str("channel", message.Channel).
		Str("event", message.Event).
		Int("delivered", delivered).
		Msg("realtime broadcast")
}

// closeAllClients closes all connected clients in ID order. Called
// during shutdown to ensure clean termination.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		client.closeSend()
		delete(h.clients, client)
	}
	metrics.RealtimeClients.Set(0)
}

// logGracefulShutdown closes all clients and logs structured shutdown
// information. ctx.Err() is not logged as an error because context
// cancellation is expected behavior during graceful shutdown.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.ClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "realtime-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("realtime hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
