// Package router implements SourceRouter: preferred-then-by-success-rate
// adapter selection, a bounded TTL result cache, and per-source
// health rollup, grounded on the rate-limited request-queue style the
// vendor SDK client uses for its own call serialization.
package router

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
	"github.com/aristath/ashare-screener/internal/sources"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const maxCacheEntries = 1000

type cacheEntry struct {
	payload  []byte
	storedAt time.Time
	key      string
}

type health struct {
	successful int
	failed     int
	noData     int
	lastLatency time.Duration
}

func (h health) successRate() float64 {
	denom := h.successful + h.failed
	if denom == 0 {
		return 1
	}
	return float64(h.successful) / float64(denom)
}

func (h health) state() domain.HealthState {
	if h.successful+h.failed == 0 {
		return domain.HealthHealthy
	}
	rate := h.successRate()
	switch {
	case rate >= 0.95:
		return domain.HealthHealthy
	case rate >= 0.80:
		return domain.HealthDegraded
	default:
		return domain.HealthUnavailable
	}
}

// Router selects an adapter per capability call: the preferred adapter
// first, then every other registered adapter by descending success rate.
// There is no separate fallback list, and adapters are tried whatever their
// health state. It caches successful (non-empty) results with a TTL and
// records a health sample per attempt.
type Router struct {
	mu       sync.Mutex
	adapters map[string]sources.Adapter
	order    []string // registration order, used as the success-rate tie-break
	health   map[string]health
	cache    map[string]*cacheEntry
	cacheLRU []string // oldest-first key order for eviction
	ttl      time.Duration
	log      zerolog.Logger
}

// New constructs a Router over the given adapters, registered in the order
// supplied; that order breaks ties between adapters of equal success rate.
func New(ttl time.Duration, log zerolog.Logger, adapters ...sources.Adapter) *Router {
	r := &Router{
		adapters: make(map[string]sources.Adapter, len(adapters)),
		health:   make(map[string]health, len(adapters)),
		cache:    make(map[string]*cacheEntry),
		ttl:      ttl,
		log:      log.With().Str("component", "source-router").Logger(),
	}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
		r.order = append(r.order, a.Name())
	}
	return r
}

// candidateOrder returns adapter names to try: preferred first (if set and
// registered), then the rest by descending success rate, registration order
// breaking ties.
func (r *Router) candidateOrder(preferred string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(r.order))
	var out []string
	if preferred != "" {
		if _, ok := r.adapters[preferred]; ok {
			out = append(out, preferred)
			seen[preferred] = true
		}
	}

	rest := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return r.health[rest[i]].successRate() > r.health[rest[j]].successRate()
	})
	return append(out, rest...)
}

func (r *Router) recordSample(name string, sample domain.HealthSample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.health[name]
	switch sample.ResultType {
	case domain.ResultSuccess:
		h.successful++
	case domain.ResultNoData:
		h.noData++
	default:
		h.failed++
	}
	h.lastLatency = time.Duration(sample.LatencyMS) * time.Millisecond
	r.health[name] = h
}

// HealthReport is the point-in-time rollup Router.Health returns per source.
type HealthReport struct {
	Name        string
	State       domain.HealthState
	SuccessRate float64
	Successful  int
	Failed      int
	NoData      int
}

// Health returns the current rollup for every registered adapter.
func (r *Router) Health() []HealthReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]HealthReport, 0, len(r.order))
	for _, name := range r.order {
		h := r.health[name]
		out = append(out, HealthReport{
			Name: name, State: h.state(), SuccessRate: h.successRate(),
			Successful: h.successful, Failed: h.failed, NoData: h.noData,
		})
	}
	return out
}

func cacheKey(capability sources.Capability, args ...any) string {
	return fmt.Sprintf("%s:%v", capability, args)
}

func (r *Router) cacheGet(key string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.storedAt) > r.ttl {
		delete(r.cache, key)
		r.removeFromLRU(key)
		return nil, false
	}
	return entry.payload, true
}

func (r *Router) cachePut(key string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cache[key]; !exists {
		if len(r.cacheLRU) >= maxCacheEntries {
			oldest := r.cacheLRU[0]
			r.cacheLRU = r.cacheLRU[1:]
			delete(r.cache, oldest)
		}
		r.cacheLRU = append(r.cacheLRU, key)
	}
	r.cache[key] = &cacheEntry{payload: payload, storedAt: time.Now(), key: key}
}

func (r *Router) removeFromLRU(key string) {
	for i, k := range r.cacheLRU {
		if k == key {
			r.cacheLRU = append(r.cacheLRU[:i], r.cacheLRU[i+1:]...)
			return
		}
	}
}

// call is the shared dispatch loop every typed method below wraps: try
// candidates in order, cache successful non-empty results, record one
// health sample per attempt, and stop at the first deadline expiry.
func call[T any](ctx context.Context, r *Router, capability sources.Capability, preferred string, args []any,
	isEmpty func(T) bool, fn func(context.Context, sources.Adapter) (T, error)) (T, error) {

	var zero T
	key := cacheKey(capability, args...)

	if cached, ok := r.cacheGet(key); ok {
		var out T
		if err := msgpack.Unmarshal(cached, &out); err == nil {
			return out, nil
		}
	}

	for _, name := range r.candidateOrder(preferred) {
		select {
		case <-ctx.Done():
			return zero, domain.NewError(domain.KindTimeout, name, string(capability), ctx.Err())
		default:
		}

		adapter := r.adapters[name]
		start := time.Now()
		result, err := fn(ctx, adapter)
		latency := time.Since(start)

		if err != nil {
			rt := domain.ResultError
			if domain.IsKind(err, domain.KindTimeout) {
				r.recordSample(name, domain.HealthSample{SourceName: name, At: time.Now(), Success: false, LatencyMS: latency.Milliseconds(), ResultType: rt})
				return zero, err
			}
			r.recordSample(name, domain.HealthSample{SourceName: name, At: time.Now(), Success: false, LatencyMS: latency.Milliseconds(), ResultType: rt})
			continue
		}

		if isEmpty(result) {
			r.recordSample(name, domain.HealthSample{SourceName: name, At: time.Now(), Success: true, LatencyMS: latency.Milliseconds(), ResultType: domain.ResultNoData})
			continue
		}

		r.recordSample(name, domain.HealthSample{SourceName: name, At: time.Now(), Success: true, LatencyMS: latency.Milliseconds(), ResultType: domain.ResultSuccess})
		if payload, err := msgpack.Marshal(result); err == nil {
			r.cachePut(key, payload)
		}
		return result, nil
	}

	return zero, domain.NewError(domain.KindUnavailable, "router", string(capability), fmt.Errorf("no adapter produced a result"))
}

