package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/distributed_lab/logan/v3"
)

var testUpgrader = websocket.Upgrader{}

// feedServer upgrades, records the subscribe frame, pushes the given
// frames, then holds the connection open in silence.
func feedServer(t *testing.T, subscribed chan<- subscribeFrame, frames ...Notification) string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub subscribeFrame
		if err = conn.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub

		for _, frame := range frames {
			if err = conn.WriteJSON(frame); err != nil {
				return
			}
		}

		// block until the client goes away
		conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestFeedSubscribesOnConnect(t *testing.T) {
	subscribed := make(chan subscribeFrame, 1)
	endpoint := feedServer(t, subscribed)

	_, err := NewFeed("test", endpoint, time.Second, New(logan.New()), logan.New())
	require.NoError(t, err)

	select {
	case sub := <-subscribed:
		assert.Equal(t, subscribeFrame{Op: "subscribe", Topic: inventoryTopic}, sub)
	case <-time.After(2 * time.Second):
		t.Fatal("no subscribe frame received")
	}
}

func TestFeedConnectFailureIsFatal(t *testing.T) {
	_, err := NewFeed("test", "ws://127.0.0.1:1/inv", 100*time.Millisecond, New(logan.New()), logan.New())
	assert.Error(t, err)
}

func TestFeedDispatchesNotifications(t *testing.T) {
	d := New(logan.New())
	got := make(chan Notification, 1)
	d.Register("addr-1", func(n Notification) { got <- n })

	subscribed := make(chan subscribeFrame, 1)
	endpoint := feedServer(t, subscribed, Notification{
		TxID: "tx-1",
		Vout: []map[string]int64{{"addr-1": 100}},
	})

	feed, err := NewFeed("test", endpoint, time.Second, d, logan.New())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	select {
	case n := <-got:
		assert.Equal(t, "tx-1", n.TxID)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not dispatched")
	}
}

func TestFeedStopsOnCancelWhileBlocked(t *testing.T) {
	subscribed := make(chan subscribeFrame, 1)
	endpoint := feedServer(t, subscribed)

	feed, err := NewFeed("test", endpoint, time.Second, New(logan.New()), logan.New())
	require.NoError(t, err)
	<-subscribed

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		feed.Run(ctx)
		close(done)
	}()

	// the feed is silent, so the listen loop sits in a blocking read
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop after cancellation")
	}
}
