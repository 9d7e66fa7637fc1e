// Package indexer contains the REST clients the vaults use to read chain
// state and submit transactions. Every client is rate limited, and failures
// are classified so callers can tell retryable errors from rejections.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Klingon-tech/klingnet-vault/internal/log"
	"github.com/Klingon-tech/klingnet-vault/internal/metrics"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// Defaults for Options fields left zero.
const (
	DefaultTimeout = 15 * time.Second
	DefaultRPS     = 10
	DefaultBurst   = 20

	maxBody = 8 << 20
)

// Options tune a client.
type Options struct {
	Timeout    time.Duration
	RPS        float64
	Burst      int
	HTTPClient *http.Client
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RPS <= 0 {
		o.RPS = DefaultRPS
	}
	if o.Burst <= 0 {
		o.Burst = DefaultBurst
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	return o
}

// TxStatus is the on-chain state of a submitted transaction.
type TxStatus int

const (
	TxPending TxStatus = iota
	TxSuccess
	TxFailed
)

// String returns the status name.
func (s TxStatus) String() string {
	switch s {
	case TxSuccess:
		return "success"
	case TxFailed:
		return "failed"
	default:
		return "pending"
	}
}

// HTTPError is a non-2xx response that is not worth retrying.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

// IsAlreadyKnown reports whether a broadcast was rejected because the node
// already has the transaction.
func IsAlreadyKnown(err error) bool {
	var he *HTTPError
	if !errors.As(err, &he) {
		return false
	}
	body := strings.ToLower(he.Body)
	return strings.Contains(body, "already") &&
		(strings.Contains(body, "mempool") || strings.Contains(body, "accepted") || strings.Contains(body, "exists"))
}

type restClient struct {
	name    string
	base    string
	http    *http.Client
	limiter *rate.Limiter
}

func newREST(name, base string, opts Options) *restClient {
	opts = opts.withDefaults()
	return &restClient{
		name:    name,
		base:    strings.TrimRight(base, "/"),
		http:    opts.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
	}
}

type request struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
}

// do performs req and decodes a 2xx JSON body into out. Transport errors,
// 429 and 5xx are transient; other non-2xx statuses become *HTTPError.
func (c *restClient) do(ctx context.Context, req request, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.IndexerRequests.WithLabelValues(c.name, req.op, metrics.Result(err)).Inc()
		metrics.Observe(metrics.IndexerLatency.WithLabelValues(c.name, req.op), start)
		if err != nil {
			log.Indexer.Debug().Err(err).Str("indexer", c.name).Str("op", req.op).Msg("Request failed")
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.base+req.path, req.body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return vaulterr.Transient(fmt.Errorf("%s %s: %w", c.name, req.op, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return vaulterr.Transient(fmt.Errorf("%s %s: read body: %w", c.name, req.op, err))
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return vaulterr.Transient(&HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return vaulterr.Transient(fmt.Errorf("%s %s: decode: %w", c.name, req.op, err))
	}
	return nil
}

// Uint64 decodes from a JSON number or a decimal string. Missing and null
// values decode as zero.
type Uint64 uint64

// UnmarshalJSON implements json.Unmarshaler.
func (u *Uint64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*u = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", s, err)
	}
	*u = Uint64(v)
	return nil
}
