// Package prover talks to the external Groth16 proving service. The service
// re-derives the recipient hash and commitment from the raw inputs; this
// package never inspects the returned proof beyond checking that it is
// well formed.
package prover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vitwit/heka402/types"
)

const maxResponseBytes = 1 << 20

// Prover obtains proofs for payment commitments.
type Prover interface {
	RequestProof(ctx context.Context, req ProofRequest) (*types.ProofArtifact, error)
	Status(ctx context.Context) (*types.ProverStatus, error)
}

// ProofRequest is the body of POST /prove. Numbers are decimal strings and
// the recipient is the raw hex address.
type ProofRequest struct {
	Secret    string `json:"secret"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type errorBody struct {
	Error string `json:"error"`
}

var _ Prover = (*HTTPProver)(nil)

// HTTPProver is a Prover backed by the proof server's HTTP API. Requests are
// never retried.
type HTTPProver struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
}

// NewHTTPProver creates a prover client for baseURL. The /prove path is
// appended unless baseURL already ends with it.
func NewHTTPProver(baseURL string, timeout time.Duration) *HTTPProver {
	if timeout <= 0 {
		timeout = types.DefaultProverTimeout
	}
	endpoint := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(endpoint, "/prove") {
		endpoint += "/prove"
	}
	return &HTTPProver{
		endpoint: endpoint,
		client:   &http.Client{},
		timeout:  timeout,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (p *HTTPProver) WithHTTPClient(c *http.Client) *HTTPProver {
	p.client = c
	return p
}

// Endpoint returns the resolved /prove URL.
func (p *HTTPProver) Endpoint() string {
	return p.endpoint
}

// RequestProof implements Prover. Every failure (transport, non-2xx status,
// undecodable or malformed body) is a PROOF_GENERATION_FAILED error carrying
// the upstream message.
func (p *HTTPProver) RequestProof(ctx context.Context, req ProofRequest) (*types.ProofArtifact, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, types.Wrap(types.ErrProofGeneration, 0, err, "encode proof request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, types.Wrap(types.ErrProofGeneration, 0, err, "build proof request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.Wrap(types.ErrProofGeneration, 0, err, "prover request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, types.Wrap(types.ErrProofGeneration, 0, err, "read prover response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, types.NewError(types.ErrProofGeneration, "prover returned %d: %s", resp.StatusCode, upstreamMessage(raw))
	}

	var artifact types.ProofArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, types.Wrap(types.ErrProofGeneration, 0, err, "malformed prover response")
	}
	if err := artifact.Validate(); err != nil {
		return nil, types.Wrap(types.ErrProofGeneration, 0, err, "malformed proof artifact")
	}

	return &artifact, nil
}

// Status implements Prover by calling GET /prove.
func (p *HTTPProver) Status(ctx context.Context) (*types.ProverStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("prover status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prover status: unexpected status %d", resp.StatusCode)
	}

	var status types.ProverStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&status); err != nil {
		return nil, fmt.Errorf("prover status: %w", err)
	}
	return &status, nil
}

func upstreamMessage(raw []byte) string {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Error != "" {
		return eb.Error
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return "proof generation failed"
	}
	return msg
}
