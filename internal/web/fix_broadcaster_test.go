package web

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"navic-ng/internal/gps"
)

func TestFixBroadcaster_SubscribeGetsLast(t *testing.T) {
	b := NewFixBroadcaster()
	_ = b.PublishFix(gps.Snapshot{Sentence: "GNRMC"})

	id, ch := b.Subscribe(1)
	defer b.Unsubscribe(id)
	select {
	case snap := <-ch:
		if snap.Sentence != "GNRMC" {
			t.Fatalf("sentence=%q", snap.Sentence)
		}
	default:
		t.Fatalf("expected replay of last snapshot")
	}
}

func TestFixBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewFixBroadcaster()
	id, ch := b.Subscribe(1)

	for i := 0; i < 10; i++ {
		if err := b.PublishFix(gps.Snapshot{}); err != nil {
			t.Fatalf("PublishFix: %v", err)
		}
	}
	if len(ch) != 1 {
		t.Fatalf("buffered=%d want 1", len(ch))
	}
	b.Unsubscribe(id)
	if _, ok := <-ch; !ok {
		// drained value first
		t.Fatalf("expected buffered value before close")
	}
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after Unsubscribe")
	}
	if b.Subscribers() != 0 {
		t.Fatalf("subscribers=%d", b.Subscribers())
	}
}

func TestFixBroadcaster_NilSafe(t *testing.T) {
	var b *FixBroadcaster
	if err := b.PublishFix(gps.Snapshot{}); err != nil {
		t.Fatalf("PublishFix: %v", err)
	}
	if _, ch := b.Subscribe(1); ch != nil {
		t.Fatalf("nil broadcaster returned a channel")
	}
	b.Unsubscribe(0)
}

func TestFixWebSocket_StreamsSnapshots(t *testing.T) {
	b := NewFixBroadcaster()
	ts := httptest.NewServer(Handler(NewStatus(), Options{Fixes: b}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/fix/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(3 * time.Second)
	for b.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	sats := 7
	_ = b.PublishFix(gps.Snapshot{Valid: true, Sentence: "GNGGA", Satellites: &sats})

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var got gps.Snapshot
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if !got.Valid || got.Sentence != "GNGGA" || got.Satellites == nil || *got.Satellites != 7 {
		t.Fatalf("got=%+v", got)
	}

	conn.Close()
	deadline = time.Now().Add(3 * time.Second)
	for b.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("handler did not unsubscribe after close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
