package primary

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestStream() *quoteStream {
	return newQuoteStream("wss://push.tushare.pro/quotes", zerolog.Nop())
}

func TestHandleMessageUpdatesCache(t *testing.T) {
	qs := newTestStream()
	raw := []byte(`[{"ts_code":"600519.SH","trade_date":"20260731","open":1700,"high":1720,"low":1690,"price":1710,"vol":1200,"amount":2040000}]`)

	if err := qs.handleMessage(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	quotes, ok := qs.snapshot([]string{"600519"})
	if !ok {
		t.Fatalf("expected a fresh snapshot after a push")
	}
	if len(quotes) != 1 || quotes[0].Code != "600519" {
		t.Fatalf("expected one quote for 600519, got %+v", quotes)
	}
	if quotes[0].Close != 1710 {
		t.Fatalf("expected close 1710, got %v", quotes[0].Close)
	}
}

func TestHandleMessageIgnoresEmptyPush(t *testing.T) {
	qs := newTestStream()
	if err := qs.handleMessage([]byte(`[]`)); err != nil {
		t.Fatalf("unexpected error on empty push: %v", err)
	}
	if _, ok := qs.snapshot(nil); ok {
		t.Fatalf("expected no fresh snapshot before any quote has arrived")
	}
}

func TestHandleMessageRejectsMalformedPush(t *testing.T) {
	qs := newTestStream()
	if err := qs.handleMessage([]byte(`not json`)); err == nil {
		t.Fatalf("expected an error decoding a malformed push")
	}
}

func TestSnapshotFallsBackOnPartialCacheMiss(t *testing.T) {
	qs := newTestStream()
	raw := []byte(`[{"ts_code":"600519.SH","trade_date":"20260731","price":1710}]`)
	if err := qs.handleMessage(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := qs.snapshot([]string{"600519", "000001"}); ok {
		t.Fatalf("expected snapshot to report a miss when a requested code isn't cached yet")
	}
	if quotes, ok := qs.snapshot([]string{"600519"}); !ok || len(quotes) != 1 {
		t.Fatalf("expected a fresh single-code snapshot, got quotes=%+v ok=%v", quotes, ok)
	}
}

func TestSnapshotGoesStaleOverTime(t *testing.T) {
	qs := newTestStream()
	raw := []byte(`[{"ts_code":"600519.SH","trade_date":"20260731","price":1710}]`)
	if err := qs.handleMessage(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	qs.cacheMu.Lock()
	qs.lastUpdate = time.Now().Add(-streamCacheStale * 2)
	qs.cacheMu.Unlock()

	if _, ok := qs.snapshot(nil); ok {
		t.Fatalf("expected a stale cache to report no fresh snapshot")
	}
}

func TestCalculateBackoffGrowsExponentiallyAndCaps(t *testing.T) {
	if got := calculateBackoff(1); got != streamBaseReconnect {
		t.Fatalf("expected attempt 1 to use the base delay, got %v", got)
	}
	if got := calculateBackoff(2); got != streamBaseReconnect*2 {
		t.Fatalf("expected attempt 2 to double the base delay, got %v", got)
	}
	if got := calculateBackoff(20); got != streamMaxReconnect {
		t.Fatalf("expected a large attempt count to cap at the max delay, got %v", got)
	}
}

func TestIsConnectedFalseBeforeDial(t *testing.T) {
	qs := newTestStream()
	if qs.isConnected() {
		t.Fatalf("expected a freshly constructed stream to report disconnected")
	}
}
