// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nutricoach/nutricoach/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64 KB; inbound frames are ping-sized
)

// clientIDCounter generates unique, monotonically increasing IDs.
// DETERMINISM: IDs give broadcasts a stable delivery order.
var clientIDCounter atomic.Uint64

// Client is a middleman between one websocket connection and the hub.
// A client subscribes to exactly one channel; an empty channel
// receives every broadcast.
type Client struct {
	id      uint64
	hub     *Hub
	conn    *websocket.Conn
	channel string
	send    chan Message

	// mu guards closed. The read pump can race the hub closing send
	// (stuck-client shedding, shutdown), so every send and the close
	// itself go through trySend/closeSend.
	mu     sync.Mutex
	closed bool
}

// sendResult reports the outcome of a non-blocking send.
type sendResult int

const (
	sendOK sendResult = iota
	sendFull
	sendClosed
)

// NewClient creates a Client subscribed to the given channel.
func NewClient(hub *Hub, conn *websocket.Conn, channel string) *Client {
	return &Client{
		id:      clientIDCounter.Add(1),
		hub:     hub,
		conn:    conn,
		channel: channel,
		send:    make(chan Message, 64),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// subscribed reports whether the client should receive a message
// published on the given channel.
func (c *Client) subscribed(channel string) bool {
	return channel == "" || c.channel == "" || c.channel == channel
}

// trySend enqueues a message without blocking.
func (c *Client) trySend(msg Message) sendResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return sendClosed
	}
	select {
	case c.send <- msg:
		return sendOK
	default:
		return sendFull
	}
}

// closeSend closes the send channel exactly once. Safe to call from
// the hub while the read pump is still running.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			break
		}

		// Clients only ever send ping frames. Pong replies that do not
		// fit, or arrive after the hub dropped the client, are discarded.
		if msg.Event == EventPing {
			_ = c.trySend(Message{Event: EventPong})
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Error().Err(err).Msg("failed to write close message")
				}
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
