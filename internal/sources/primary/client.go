// Package primary implements the token-gated, full-surface vendor adapter
// (the Tushare-style Pro API: a single HTTP endpoint selected by an "api_name"
// field in the POST body, JSON array-of-arrays rows).
package primary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	rateLimitDelay   = 350 * time.Millisecond
	requestQueueSize = 200
)

type requestJob struct {
	ctx      context.Context
	apiName  string
	params   map[string]any
	fields   string
	resultCh chan requestResult
}

type requestResult struct {
	data apiResponse
	err  error
}

// apiResponse mirrors the vendor's { code, msg, data: { fields, items } }
// envelope; code != 0 signals a vendor-side error (bad token, rate limit).
type apiResponse struct {
	Code int    `json:"code"`
	Msg   string `json:"msg"`
	Data struct {
		Fields []string        `json:"fields"`
		Items  [][]json.RawMessage `json:"items"`
	} `json:"data"`
}

// Client is the low-level, rate-limited transport. One inter-call delay is
// enforced process-wide via a single background worker so bursts of
// concurrent FactorEngine/Ingestion calls can never exceed vendor quota.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	queue    chan requestJob
	stopChan chan struct{}
}

// NewClient constructs a Client and starts its rate-limiting worker. An
// empty token means Available() reports false and every call short-circuits
// with domain.KindUnavailable at the adapter layer.
func NewClient(token string, log zerolog.Logger) *Client {
	c := &Client{
		token:      token,
		baseURL:    "https://api.tushare.pro",
		httpClient: &http.Client{Timeout: 20 * time.Second},
		log:        log.With().Str("component", "primary-source").Logger(),
		queue:      make(chan requestJob, requestQueueSize),
		stopChan:   make(chan struct{}),
	}
	go c.worker()
	return c
}

// Close stops the rate-limiting worker, draining any in-flight jobs first.
func (c *Client) Close() {
	close(c.stopChan)
}

func (c *Client) call(ctx context.Context, apiName string, params map[string]any, fields string) (apiResponse, error) {
	resultCh := make(chan requestResult, 1)
	job := requestJob{ctx: ctx, apiName: apiName, params: params, fields: fields, resultCh: resultCh}

	select {
	case c.queue <- job:
	case <-ctx.Done():
		return apiResponse{}, ctx.Err()
	case <-c.stopChan:
		return apiResponse{}, fmt.Errorf("primary source client closed")
	}

	select {
	case res := <-resultCh:
		return res.data, res.err
	case <-ctx.Done():
		return apiResponse{}, ctx.Err()
	}
}

func (c *Client) worker() {
	var lastCall time.Time
	first := true

	process := func(job requestJob) {
		if !first {
			if elapsed := time.Since(lastCall); elapsed < rateLimitDelay {
				time.Sleep(rateLimitDelay - elapsed)
			}
		}
		first = false
		data, err := c.doRequest(job.ctx, job.apiName, job.params, job.fields)
		lastCall = time.Now()
		job.resultCh <- requestResult{data: data, err: err}
	}

	for {
		select {
		case <-c.stopChan:
			for {
				select {
				case job := <-c.queue:
					process(job)
				default:
					return
				}
			}
		case job := <-c.queue:
			process(job)
		}
	}
}

func (c *Client) doRequest(ctx context.Context, apiName string, params map[string]any, fields string) (apiResponse, error) {
	body, err := json.Marshal(map[string]any{
		"api_name": apiName,
		"token":    c.token,
		"params":   params,
		"fields":   fields,
	})
	if err != nil {
		return apiResponse{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return apiResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apiResponse{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return apiResponse{}, errRateLimited
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return apiResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if out.Code != 0 {
		return apiResponse{}, fmt.Errorf("vendor error %d: %s", out.Code, out.Msg)
	}
	return out, nil
}

var errRateLimited = fmt.Errorf("rate limited")

// jsonRawRow is one undecoded field value of a response row.
type jsonRawRow = json.RawMessage

// rows converts each apiResponse item into a field->value map keyed by the
// response's declared field names.
func (r apiResponse) rows() []map[string]jsonRawRow {
	out := make([]map[string]jsonRawRow, len(r.Data.Items))
	for i, item := range r.Data.Items {
		row := make(map[string]jsonRawRow, len(r.Data.Fields))
		for j, f := range r.Data.Fields {
			if j < len(item) {
				row[f] = item[j]
			}
		}
		out[i] = row
	}
	return out
}

func rawString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return fmt.Sprintf("%v", f)
	}
	return ""
}

func rawFloat(v json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f
	}
	return 0
}

func rawFloatPtr(v json.RawMessage) *float64 {
	if len(v) == 0 || string(v) == "null" {
		return nil
	}
	f := rawFloat(v)
	return &f
}
