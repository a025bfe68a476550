// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package realtime

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/nutricoach/nutricoach/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "disabled",
		Output: io.Discard,
	})
}

// setupHub creates and serves a hub for the duration of the test.
func setupHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(10 * time.Millisecond)
	return hub
}

// createTestClient creates a client without a live connection.
func createTestClient(hub *Hub, channel string) *Client {
	return &Client{
		id:      clientIDCounter.Add(1),
		hub:     hub,
		channel: channel,
		send:    make(chan Message, 64),
	}
}

// registerClient registers a client and waits for the serve loop.
func registerClient(hub *Hub, client *Client) {
	hub.Register <- client
	time.Sleep(20 * time.Millisecond)
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}
	if hub.clients == nil || hub.broadcast == nil || hub.Register == nil || hub.Unregister == nil {
		t.Fatal("hub channels not initialized")
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("new hub has %d clients, want 0", hub.ClientCount())
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := setupHub(t)

	client := createTestClient(hub, UserChannel("ana"))
	registerClient(hub, client)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("after register: %d clients, want 1", got)
	}

	hub.Unregister <- client
	time.Sleep(20 * time.Millisecond)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("after unregister: %d clients, want 0", got)
	}
	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatal("unexpected message on send channel")
		}
	default:
		t.Fatal("send channel not closed after unregister")
	}
}

func TestHubBroadcastReachesChannelSubscribers(t *testing.T) {
	hub := setupHub(t)

	ana := createTestClient(hub, UserChannel("ana"))
	bruno := createTestClient(hub, UserChannel("bruno"))
	all := createTestClient(hub, "")
	registerClient(hub, ana)
	registerClient(hub, bruno)
	registerClient(hub, all)

	if err := hub.Broadcast(context.Background(), UserChannel("ana"), EventDashboardUpdated, map[string]string{"user": "ana"}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	select {
	case msg := <-ana.send:
		if msg.Event != EventDashboardUpdated {
			t.Fatalf("ana got event %q, want %q", msg.Event, EventDashboardUpdated)
		}
		if msg.Channel != UserChannel("ana") {
			t.Fatalf("ana got channel %q", msg.Channel)
		}
	default:
		t.Fatal("ana did not receive the broadcast")
	}

	select {
	case msg := <-bruno.send:
		t.Fatalf("bruno received %q on foreign channel", msg.Event)
	default:
	}

	select {
	case <-all.send:
	default:
		t.Fatal("wildcard subscriber did not receive the broadcast")
	}
}

func TestHubEmptyChannelReachesEveryone(t *testing.T) {
	hub := setupHub(t)

	ana := createTestClient(hub, UserChannel("ana"))
	bruno := createTestClient(hub, UserChannel("bruno"))
	registerClient(hub, ana)
	registerClient(hub, bruno)

	if err := hub.Broadcast(context.Background(), "", EventPlanUpdated, nil); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	for _, client := range []*Client{ana, bruno} {
		select {
		case msg := <-client.send:
			if msg.Event != EventPlanUpdated {
				t.Fatalf("got event %q, want %q", msg.Event, EventPlanUpdated)
			}
		default:
			t.Fatalf("client %d missed the global broadcast", client.ID())
		}
	}
}

func TestHubBroadcastQueueFull(t *testing.T) {
	// Not served: nothing drains the broadcast buffer.
	hub := NewHub()

	var err error
	for i := 0; i < cap(hub.broadcast)+1; i++ {
		err = hub.Broadcast(context.Background(), "", EventPlanUpdated, nil)
	}
	if !errors.Is(err, ErrBroadcastQueueFull) {
		t.Fatalf("overflow error = %v, want ErrBroadcastQueueFull", err)
	}
}

func TestHubStuckClientDropped(t *testing.T) {
	hub := setupHub(t)

	stuck := createTestClient(hub, "")
	stuck.send = make(chan Message) // unbuffered, nothing reads it
	registerClient(hub, stuck)

	if err := hub.Broadcast(context.Background(), "", EventDiaryProcessed, nil); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("stuck client not removed: %d clients", got)
	}
}

func TestHubServeShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()
	time.Sleep(10 * time.Millisecond)

	client := createTestClient(hub, UserChannel("ana"))
	registerClient(hub, client)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("%d clients remain after shutdown", got)
	}
	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatal("unexpected message on send channel")
		}
	default:
		t.Fatal("client send channel not closed on shutdown")
	}
}

func TestLogPublisherAlwaysSucceeds(t *testing.T) {
	var pub Publisher = LogPublisher{}
	if err := pub.Broadcast(context.Background(), UserChannel("ana"), EventPlanUpdated, map[string]int{"calories": 1900}); err != nil {
		t.Fatalf("LogPublisher.Broadcast: %v", err)
	}
}

// failingPublisher fails every broadcast.
type failingPublisher struct{ calls int }

func (f *failingPublisher) Broadcast(context.Context, string, string, any) error {
	f.calls++
	return errors.New("downstream gone")
}

func TestBreakerPublisherOpensAfterSustainedFailures(t *testing.T) {
	failing := &failingPublisher{}
	pub := NewBreakerPublisher("test-breaker-open", failing)

	for i := 0; i < 10; i++ {
		if err := pub.Broadcast(context.Background(), "", EventDashboardUpdated, nil); err == nil {
			t.Fatalf("broadcast %d unexpectedly succeeded", i)
		}
	}

	if pub.State() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", pub.State())
	}

	before := failing.calls
	err := pub.Broadcast(context.Background(), "", EventDashboardUpdated, nil)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("open-circuit error = %v, want ErrOpenState", err)
	}
	if failing.calls != before {
		t.Fatal("open circuit still forwarded the broadcast")
	}
}

func TestBreakerPublisherPassesThroughWhenHealthy(t *testing.T) {
	pub := NewBreakerPublisher("test-breaker-healthy", LogPublisher{})

	for i := 0; i < 20; i++ {
		if err := pub.Broadcast(context.Background(), UserChannel("ana"), EventPlanUpdated, nil); err != nil {
			t.Fatalf("broadcast %d failed: %v", i, err)
		}
	}
	if pub.State() != gobreaker.StateClosed {
		t.Fatalf("breaker state = %v, want closed", pub.State())
	}
}

func TestUserChannel(t *testing.T) {
	if got := UserChannel("ana"); got != "user:ana" {
		t.Fatalf("UserChannel = %q, want %q", got, "user:ana")
	}
}

func TestClientSubscription(t *testing.T) {
	hub := NewHub()
	cases := []struct {
		name    string
		client  string
		channel string
		want    bool
	}{
		{"exact match", "user:ana", "user:ana", true},
		{"different user", "user:ana", "user:bruno", false},
		{"wildcard client", "", "user:ana", true},
		{"global broadcast", "user:ana", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := createTestClient(hub, tc.client)
			if got := c.subscribed(tc.channel); got != tc.want {
				t.Fatalf("subscribed(%q) with client channel %q = %v, want %v", tc.channel, tc.client, got, tc.want)
			}
		})
	}
}

func TestSendAfterCloseIsDropped(t *testing.T) {
	hub := NewHub()
	client := createTestClient(hub, "user:ana")

	if got := client.trySend(Message{Event: EventPong}); got != sendOK {
		t.Fatalf("trySend before close = %v, want sendOK", got)
	}

	client.closeSend()

	// The read pump's pong reply can race the hub closing the channel;
	// a late send must be dropped, not panic.
	if got := client.trySend(Message{Event: EventPong}); got != sendClosed {
		t.Errorf("trySend after close = %v, want sendClosed", got)
	}

	// Closing twice (shedding then shutdown) must also be safe.
	client.closeSend()
}

func TestBroadcastSkipsClosedClient(t *testing.T) {
	hub := setupHub(t)

	open := createTestClient(hub, "user:ana")
	stale := createTestClient(hub, "user:ana")
	registerClient(hub, open)
	registerClient(hub, stale)

	stale.closeSend()

	if err := hub.Broadcast(context.Background(), "user:ana", EventDashboardUpdated, nil); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	select {
	case msg := <-open.send:
		if msg.Event != EventDashboardUpdated {
			t.Errorf("event = %q, want %q", msg.Event, EventDashboardUpdated)
		}
	default:
		t.Error("open client did not receive the broadcast")
	}
}
