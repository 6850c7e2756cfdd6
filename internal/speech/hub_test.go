package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/speakai-labs/speakai/internal/config"
	"github.com/speakai-labs/speakai/internal/domain"
)

func testSpeechConfig() config.SpeechConfig {
	return config.SpeechConfig{Rate: 0.8, Pitch: 1.0, Volume: 1.0}
}

// newSocketPair returns the server and client halves of a live websocket.
func newSocketPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		conns <- c
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	client, _, err := websocket.Dial(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close(websocket.StatusNormalClosure, "")
	})

	select {
	case server := <-conns:
		return server, client
	case <-ctx.Done():
		t.Fatal("timed out waiting for server socket")
		return nil, nil
	}
}

func readOutbound(t *testing.T, c *websocket.Conn) outboundMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	var msg outboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	return msg
}

func TestSpeakDeliversToConnectedSocket(t *testing.T) {
	hub := NewHub(testSpeechConfig())
	server, client := newSocketPair(t)

	hub.Register("u1", server)
	hub.Speak("u1", "Hello there!")

	msg := readOutbound(t, client)
	if msg.Type != "speak" {
		t.Errorf("Expected type speak, got %s", msg.Type)
	}
	if msg.Text != "Hello there!" {
		t.Errorf("Expected text, got %q", msg.Text)
	}
	if msg.Rate != 0.8 || msg.Pitch != 1.0 || msg.Volume != 1.0 {
		t.Errorf("Expected synthesis params stamped, got rate=%v pitch=%v volume=%v", msg.Rate, msg.Pitch, msg.Volume)
	}
}

func TestSessionChangedDeliversSnapshot(t *testing.T) {
	hub := NewHub(testSpeechConfig())
	server, client := newSocketPair(t)

	hub.Register("u1", server)
	hub.SessionChanged("u1", domain.Snapshot{
		LoggedIn:   true,
		Revision:   1,
		Mode:       domain.ModeFreeform,
		Transcript: []domain.Message{},
	})

	msg := readOutbound(t, client)
	if msg.Type != "state" {
		t.Errorf("Expected type state, got %s", msg.Type)
	}
	if msg.Session == nil || !msg.Session.LoggedIn {
		t.Errorf("Expected logged-in snapshot, got %+v", msg.Session)
	}
}

func TestSessionChangedDropsStaleRevisions(t *testing.T) {
	hub := NewHub(testSpeechConfig())
	server, client := newSocketPair(t)
	hub.Register("u1", server)

	push := func(rev uint64) {
		hub.SessionChanged("u1", domain.Snapshot{
			LoggedIn:   true,
			Revision:   rev,
			Transcript: []domain.Message{},
		})
	}
	push(2)
	push(1) // arrives late; delivering it would roll the client back
	push(3)

	if msg := readOutbound(t, client); msg.Session == nil || msg.Session.Revision != 2 {
		t.Fatalf("Expected revision 2 first, got %+v", msg.Session)
	}
	if msg := readOutbound(t, client); msg.Session == nil || msg.Session.Revision != 3 {
		t.Fatalf("Expected revision 3 next with the stale push dropped, got %+v", msg.Session)
	}
}

func TestSendWithoutSocketDegradesSilently(t *testing.T) {
	hub := NewHub(testSpeechConfig())

	// Must not panic or block.
	hub.Speak("nobody", "hello")
	hub.SessionChanged("nobody", domain.Snapshot{})
}

func TestConnectedAndUnregister(t *testing.T) {
	hub := NewHub(testSpeechConfig())
	server, _ := newSocketPair(t)

	if hub.Connected("u1") {
		t.Error("Expected no socket before register")
	}
	hub.Register("u1", server)
	if !hub.Connected("u1") {
		t.Error("Expected socket after register")
	}
	hub.Unregister("u1", server)
	if hub.Connected("u1") {
		t.Error("Expected no socket after unregister")
	}
}

func TestRegisterReplacesExistingSocket(t *testing.T) {
	hub := NewHub(testSpeechConfig())
	server1, client1 := newSocketPair(t)
	server2, client2 := newSocketPair(t)

	hub.Register("u1", server1)
	hub.Register("u1", server2)

	// The replaced socket is closed; the client's next read fails.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := client1.Read(ctx); err == nil {
		t.Error("Expected replaced socket to be closed")
	}

	hub.Speak("u1", "still here")
	if msg := readOutbound(t, client2); msg.Text != "still here" {
		t.Errorf("Expected delivery to the new socket, got %q", msg.Text)
	}

	// Unregistering the stale socket must not evict the new one.
	hub.Unregister("u1", server1)
	if !hub.Connected("u1") {
		t.Error("Stale unregister must not remove the active socket")
	}
}
