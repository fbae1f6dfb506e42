package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// fakeRPC 确认每个 accountSubscribe，然后为每个订阅推送一条通知
func fakeRPC(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var req rpcRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.Method != "accountSubscribe" {
				continue
			}
			subID := 100 + req.ID
			_ = conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": subID})
			_ = conn.WriteJSON(map[string]any{
				"jsonrpc": "2.0",
				"method":  "accountNotification",
				"params": map[string]any{
					"subscription": subID,
					"result": map[string]any{
						"context": map[string]any{"slot": 1000 + req.ID},
						"value":   map[string]any{"lamports": 1},
					},
				},
			})
			// 未知订阅号的通知应被忽略
			_ = conn.WriteJSON(map[string]any{
				"jsonrpc": "2.0",
				"method":  "accountNotification",
				"params":  map[string]any{"subscription": 999, "result": map[string]any{"context": map[string]any{"slot": 1}}},
			})
		}
	}))
}

func TestPoolFeedEmitsTouchedEvents(t *testing.T) {
	srv := fakeRPC(t)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	feed := NewPoolFeed(url, []Watch{
		{Venue: "raydium", PoolID: "amm1", Account: "Acc1"},
		{Venue: "orca", PoolID: "whirl1", Account: "Acc2"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	got := map[string]uint64{}
	for len(got) < 2 {
		select {
		case ev, ok := <-ch:
			require.True(t, ok)
			got[ev.Venue+"/"+ev.PoolID] = ev.Slot
			assert.False(t, ev.ReceivedAt.IsZero())
		case <-ctx.Done():
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, map[string]uint64{"raydium/amm1": 1001, "orca/whirl1": 1002}, got)

	cancel()
	for range ch {
	}
}

func TestPoolFeedReconnects(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if n == 1 {
			// 第一次连接直接断开
			_ = conn.Close()
			return
		}
		defer conn.Close()
		var req rpcRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		_ = conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": 7})
		_ = conn.WriteJSON(map[string]any{
			"jsonrpc": "2.0",
			"method":  "accountNotification",
			"params":  map[string]any{"subscription": 7, "result": map[string]any{"context": map[string]any{"slot": 42}}},
		})
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	feed := NewPoolFeed("ws"+strings.TrimPrefix(srv.URL, "http"), []Watch{{Venue: "orca", PoolID: "p", Account: "A"}})
	feed.SetRetryConfig(RetryConfig{InitialDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.EqualValues(t, 42, ev.Slot)
	case <-ctx.Done():
		t.Fatal("no event after reconnect")
	}
}

func TestPoolFeedRequiresWatches(t *testing.T) {
	_, err := NewPoolFeed("ws://localhost:1", nil).Subscribe(context.Background())
	assert.Error(t, err)
	_, err = NewPoolFeed("", []Watch{{Account: "A"}}).Subscribe(context.Background())
	assert.Error(t, err)
}
