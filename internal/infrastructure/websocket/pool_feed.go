package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
)

// Watch 订阅的池账户
type Watch struct {
	Venue   string
	PoolID  string
	Account string
}

// RetryConfig 重连退避
type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

var DefaultRetryConfig = RetryConfig{
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcMessage struct {
	ID     *int            `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Params *struct {
		Subscription int64 `json:"subscription"`
		Result       struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
		} `json:"result"`
	} `json:"params"`
}

// PoolFeed 通过 JSON-RPC accountSubscribe 订阅池账户变化
// 每次账户通知产生一个 PoolTouched 事件；断线后按指数退避重连并重新订阅
type PoolFeed struct {
	url     string
	watches []Watch
	retry   RetryConfig
	dialer  *websocket.Dialer
}

func NewPoolFeed(url string, watches []Watch) *PoolFeed {
	return &PoolFeed{
		url:     strings.TrimSpace(url),
		watches: watches,
		retry:   DefaultRetryConfig,
		dialer:  websocket.DefaultDialer,
	}
}

// SetRetryConfig 设置重连参数
func (f *PoolFeed) SetRetryConfig(cfg RetryConfig) {
	f.retry = cfg
}

func (f *PoolFeed) Name() string { return "account-subscribe" }

func (f *PoolFeed) Subscribe(ctx context.Context) (<-chan model.PoolTouched, error) {
	if f.url == "" {
		return nil, errors.New("pool feed url empty")
	}
	if len(f.watches) == 0 {
		return nil, errors.New("pool feed has no accounts to watch")
	}
	out := make(chan model.PoolTouched, 256)
	go f.run(ctx, out)
	return out, nil
}

func (f *PoolFeed) run(ctx context.Context, out chan<- model.PoolTouched) {
	defer close(out)

	backoff := f.retry.InitialDelay
	for {
		if ctx.Err() != nil {
			return
		}

		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := f.dialer.DialContext(cctx, f.url, nil)
		cancel()
		if err != nil {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws dial failed")
			if !sleep(ctx, backoff) {
				return
			}
			backoff = minDur(backoff*2, f.retry.MaxDelay)
			continue
		}

		backoff = f.retry.InitialDelay
		log.Info().Str("feed", f.Name()).Int("accounts", len(f.watches)).Msg("ws connected")

		err = f.session(ctx, conn, out)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}

		log.Warn().Str("feed", f.Name()).Err(err).Msg("ws disconnected, reconnecting")
		if !sleep(ctx, backoff) {
			return
		}
		backoff = minDur(backoff*2, f.retry.MaxDelay)
	}
}

// session 订阅全部账户并转发通知，直到连接出错或 ctx 取消
func (f *PoolFeed) session(ctx context.Context, conn *websocket.Conn, out chan<- model.PoolTouched) error {
	for i, w := range f.watches {
		req := rpcRequest{
			JSONRPC: "2.0",
			ID:      i + 1,
			Method:  "accountSubscribe",
			Params:  []any{w.Account, map[string]string{"encoding": "base64", "commitment": "confirmed"}},
		}
		if err := conn.WriteJSON(req); err != nil {
			return err
		}
	}

	var mu sync.Mutex
	subs := make(map[int64]Watch, len(f.watches))

	return readLoop(ctx, conn, func(b []byte) {
		var msg rpcMessage
		if err := json.Unmarshal(b, &msg); err != nil {
			log.Debug().Str("feed", f.Name()).Err(err).Msg("json unmarshal failed")
			return
		}

		// 订阅确认：id -> subscription id
		if msg.ID != nil && len(msg.Result) > 0 {
			var subID int64
			if err := json.Unmarshal(msg.Result, &subID); err != nil {
				return
			}
			idx := *msg.ID - 1
			if idx < 0 || idx >= len(f.watches) {
				return
			}
			mu.Lock()
			subs[subID] = f.watches[idx]
			mu.Unlock()
			return
		}

		if msg.Method != "accountNotification" || msg.Params == nil {
			return
		}
		mu.Lock()
		w, ok := subs[msg.Params.Subscription]
		mu.Unlock()
		if !ok {
			return
		}

		ev := model.PoolTouched{
			Venue:      w.Venue,
			PoolID:     w.PoolID,
			Slot:       msg.Params.Result.Context.Slot,
			ReceivedAt: time.Now(),
		}
		select {
		case out <- ev:
		case <-ctx.Done():
		default:
			log.Debug().Str("feed", f.Name()).Str("pool", w.PoolID).Msg("event dropped, consumer slow")
		}
	})
}

func readLoop(ctx context.Context, conn *websocket.Conn, onMsg func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(25 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			onMsg(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
			// 等待读协程退出，之后不会再回调 onMsg
			<-errCh
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

var _ port.PoolEventFeed = (*PoolFeed)(nil)
