package primary

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
	"github.com/aristath/ashare-screener/internal/sources"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	streamWriteWait        = 10 * time.Second
	streamDialTimeout      = 30 * time.Second
	streamBaseReconnect    = 5 * time.Second
	streamMaxReconnect     = 5 * time.Minute
	streamMaxLoggedRetries = 10
	streamCacheStale       = 5 * time.Second // quotes move fast; a poll-fallback threshold far tighter than the teacher's market-status one
)

// wsQuote is one pushed row on the quote stream, same field set as the
// rt_quote poll so RealtimeQuotes can treat both sources interchangeably.
type wsQuote struct {
	TSCode string  `json:"ts_code"`
	Date   string  `json:"trade_date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Price  float64 `json:"price"`
	Vol    float64 `json:"vol"`
	Amount float64 `json:"amount"`
}

// quoteStream is an optional push transport backing RealtimeQuotes: a
// long-lived websocket connection to the vendor's quote gateway, a
// thread-safe cache updated by a background read loop, and an
// exponential-backoff reconnect loop, with one channel (quotes) and one
// cache shape (domain.Candle).
type quoteStream struct {
	url        string
	httpClient *http.Client
	log        zerolog.Logger

	mu           sync.RWMutex
	conn         *websocket.Conn
	connCtx      context.Context
	cancelFunc   context.CancelFunc
	connected    bool
	reconnecting bool
	stopped      bool
	stopChan     chan struct{}

	codes []string // subscription list; empty means "all"

	cacheMu    sync.RWMutex
	cache      map[string]domain.Candle
	lastUpdate time.Time
}

// streamHTTP1Client forces HTTP/1.1 via ALPN so the websocket upgrade
// handshake isn't negotiated away to HTTP/2 by a front proxy.
func streamHTTP1Client() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			TLSClientConfig: &tls.Config{
				NextProtos: []string{"http/1.1"},
			},
			ForceAttemptHTTP2: false,
		},
	}
}

func newQuoteStream(url string, log zerolog.Logger) *quoteStream {
	return &quoteStream{
		url:        url,
		httpClient: streamHTTP1Client(),
		log:        log.With().Str("component", "primary-quote-stream").Logger(),
		cache:      make(map[string]domain.Candle),
		stopChan:   make(chan struct{}),
	}
}

// start dials once; on failure it hands off to the reconnect loop rather
// than blocking the caller.
func (qs *quoteStream) start() {
	if err := qs.connect(); err != nil {
		qs.log.Warn().Err(err).Msg("initial quote stream connection failed, retrying in background")
		go qs.reconnectLoop()
		return
	}
	qs.mu.RLock()
	ctx := qs.connCtx
	qs.mu.RUnlock()
	go qs.readLoop(ctx)
}

func (qs *quoteStream) stop() {
	qs.mu.Lock()
	if qs.stopped {
		qs.mu.Unlock()
		return
	}
	qs.stopped = true
	qs.mu.Unlock()
	close(qs.stopChan)
	qs.disconnect()
}

func (qs *quoteStream) connect() error {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(context.Background(), streamDialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, qs.url, &websocket.DialOptions{HTTPClient: qs.httpClient})
	if err != nil {
		return fmt.Errorf("dial quote stream: %w", err)
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	qs.conn = conn
	qs.connCtx = connCtx
	qs.cancelFunc = connCancel
	qs.connected = true

	if err := qs.subscribe(connCtx); err != nil {
		connCancel()
		conn.Close(websocket.StatusNormalClosure, "subscribe failed")
		qs.conn, qs.connCtx, qs.cancelFunc, qs.connected = nil, nil, nil, false
		return fmt.Errorf("subscribe to quote stream: %w", err)
	}
	return nil
}

func (qs *quoteStream) disconnect() {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	if qs.conn == nil {
		return
	}
	if qs.cancelFunc != nil {
		qs.cancelFunc()
	}
	qs.conn.Close(websocket.StatusNormalClosure, "")
	qs.conn, qs.connCtx, qs.connected = nil, nil, false
}

func (qs *quoteStream) subscribe(ctx context.Context) error {
	msg := map[string]any{"channel": "quotes"}
	if len(qs.codes) > 0 {
		msg["ts_codes"] = strings.Join(qs.codes, ",")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteWait)
	defer cancel()
	return qs.conn.Write(writeCtx, websocket.MessageText, data)
}

func (qs *quoteStream) readLoop(ctx context.Context) {
	defer func() {
		qs.mu.RLock()
		stopped := qs.stopped
		qs.mu.RUnlock()
		if !stopped {
			go qs.reconnectLoop()
		}
	}()

	for {
		select {
		case <-qs.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		qs.mu.RLock()
		conn := qs.conn
		qs.mu.RUnlock()
		if conn == nil {
			return
		}

		msgType, raw, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				qs.log.Info().Msg("quote stream closed normally")
			case ctx.Err() != nil:
				qs.log.Debug().Msg("quote stream read cancelled")
			default:
				qs.log.Error().Err(err).Msg("quote stream read error")
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}
		if err := qs.handleMessage(raw); err != nil {
			qs.log.Error().Err(err).Msg("failed to handle quote stream message")
		}
	}
}

func (qs *quoteStream) handleMessage(raw []byte) error {
	var rows []wsQuote
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("decode quote push: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	qs.cacheMu.Lock()
	defer qs.cacheMu.Unlock()
	for _, r := range rows {
		code, _ := sources.SplitTSCode(r.TSCode)
		if code == "" {
			continue
		}
		qs.cache[code] = domain.Candle{
			Code: code, Date: r8ToISO(r.Date),
			Open: r.Open, High: r.High, Low: r.Low, Close: r.Price,
			Volume: sources.LotsToShares(r.Vol), Amount: sources.ThousandYuanToYuan(r.Amount),
		}
	}
	qs.lastUpdate = time.Now()
	return nil
}

func (qs *quoteStream) reconnectLoop() {
	qs.mu.Lock()
	if qs.reconnecting || qs.stopped {
		qs.mu.Unlock()
		return
	}
	qs.reconnecting = true
	qs.mu.Unlock()
	defer func() {
		qs.mu.Lock()
		qs.reconnecting = false
		qs.mu.Unlock()
	}()

	attempt := 0
	for {
		select {
		case <-qs.stopChan:
			return
		default:
		}
		qs.mu.RLock()
		stopped := qs.stopped
		qs.mu.RUnlock()
		if stopped {
			return
		}

		attempt++
		delay := calculateBackoff(attempt)
		if attempt <= streamMaxLoggedRetries {
			qs.log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("reconnecting quote stream")
		}

		select {
		case <-time.After(delay):
		case <-qs.stopChan:
			return
		}

		if err := qs.connect(); err != nil {
			qs.log.Error().Err(err).Int("attempt", attempt).Msg("quote stream reconnect failed")
			continue
		}

		qs.log.Info().Int("attempt", attempt).Msg("quote stream reconnected")
		qs.mu.RLock()
		ctx := qs.connCtx
		qs.mu.RUnlock()
		go qs.readLoop(ctx)
		return
	}
}

func calculateBackoff(attempt int) time.Duration {
	delay := float64(streamBaseReconnect) * math.Pow(2, float64(attempt-1))
	if delay > float64(streamMaxReconnect) {
		delay = float64(streamMaxReconnect)
	}
	return time.Duration(delay)
}

// snapshot returns the cached quotes for codes (all cached quotes if codes
// is empty), and whether the cache is fresh enough to trust instead of
// falling back to a poll.
func (qs *quoteStream) snapshot(codes []string) ([]domain.Candle, bool) {
	qs.cacheMu.RLock()
	defer qs.cacheMu.RUnlock()

	fresh := !qs.lastUpdate.IsZero() && time.Since(qs.lastUpdate) <= streamCacheStale
	if !fresh || len(qs.cache) == 0 {
		return nil, false
	}

	if len(codes) == 0 {
		out := make([]domain.Candle, 0, len(qs.cache))
		for _, c := range qs.cache {
			out = append(out, c)
		}
		return out, true
	}

	out := make([]domain.Candle, 0, len(codes))
	for _, code := range codes {
		c, ok := qs.cache[code]
		if !ok {
			return nil, false // partial cache miss: fall back to a poll for a consistent snapshot
		}
		out = append(out, c)
	}
	return out, true
}

func (qs *quoteStream) isConnected() bool {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	return qs.connected
}
