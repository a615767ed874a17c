// Package discovery resolves payment recipients through the x402 discovery
// convention: a GET on a resource URL answers {"recipient": "0x..."}.
package discovery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/heka402/logger"
)

const (
	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 64 << 10
)

// ZeroAddress is returned whenever discovery yields no usable recipient.
var ZeroAddress = common.Address{}.Hex()

type discoveryResponse struct {
	Recipient string `json:"recipient,omitempty"`
}

// Resolver performs x402 recipient discovery.
type Resolver struct {
	client  *http.Client
	timeout time.Duration
	logger  logger.Logger
}

// NewResolver returns a Resolver with the given request timeout.
func NewResolver(timeout time.Duration, l logger.Logger) *Resolver {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if l == nil {
		l = logger.NoopLogger{}
	}
	return &Resolver{
		client:  &http.Client{},
		timeout: timeout,
		logger:  l,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (r *Resolver) WithHTTPClient(c *http.Client) *Resolver {
	r.client = c
	return r
}

// Resolve issues a single GET to url and returns the advertised recipient.
// It never fails: transport errors, bad bodies and missing or malformed
// addresses all fall back to ZeroAddress, so callers that need a real
// recipient must check the result.
func (r *Resolver) Resolve(ctx context.Context, url string) string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		r.fallback(url, "build request", err)
		return ZeroAddress
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.fallback(url, "request failed", err)
		return ZeroAddress
	}
	defer resp.Body.Close()

	var body discoveryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		r.fallback(url, "decode body", err)
		return ZeroAddress
	}

	if !common.IsHexAddress(body.Recipient) {
		r.fallback(url, "no recipient advertised", nil)
		return ZeroAddress
	}

	return common.HexToAddress(body.Recipient).Hex()
}

func (r *Resolver) fallback(url, reason string, err error) {
	fields := map[string]any{"url": url, "reason": reason}
	if err != nil {
		fields["error"] = err.Error()
	}
	r.logger.Warn("x402 discovery fell back to zero address", fields)
}

// IsZero reports whether addr is the zero address.
func IsZero(addr string) bool {
	return common.HexToAddress(addr) == (common.Address{})
}
