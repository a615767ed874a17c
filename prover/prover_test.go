package prover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/heka402/types"
)

const validArtifact = `{
	"proof": {
		"a": ["1", "2"],
		"b": [["3", "4"], ["5", "6"]],
		"c": ["7", "8"]
	},
	"publicSignals": ["49000000000005270867000000141745096560", "1000000000000000000"]
}`

func TestNewHTTPProverEndpoint(t *testing.T) {
	assert.Equal(t, "http://prover:3001/prove", NewHTTPProver("http://prover:3001", 0).Endpoint())
	assert.Equal(t, "http://prover:3001/prove", NewHTTPProver("http://prover:3001/", 0).Endpoint())
	assert.Equal(t, "http://prover:3001/prove", NewHTTPProver("http://prover:3001/prove", 0).Endpoint())
}

func TestRequestProof(t *testing.T) {
	var got ProofRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/prove", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(validArtifact))
	}))
	defer srv.Close()

	p := NewHTTPProver(srv.URL, time.Second)
	artifact, err := p.RequestProof(context.Background(), ProofRequest{
		Secret:    "12345",
		Recipient: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		Amount:    "1000000000000000000",
	})
	require.NoError(t, err)

	assert.Equal(t, "12345", got.Secret)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", got.Recipient)
	assert.Equal(t, "1000000000000000000", got.Amount)

	assert.Equal(t, [2]string{"1", "2"}, artifact.Proof.A)
	assert.Equal(t, "5", artifact.Proof.B[1][0])
	assert.Len(t, artifact.PublicSignals, 2)
}

func TestRequestProofFailuresAreProofGenerationErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "upstream error", status: http.StatusInternalServerError, body: `{"error":"witness generation failed"}`, message: "witness generation failed"},
		{name: "plain text error", status: http.StatusBadGateway, body: "bad gateway", message: "bad gateway"},
		{name: "undecodable body", status: http.StatusOK, body: "{", message: "malformed prover response"},
		{name: "malformed artifact", status: http.StatusOK, body: `{"proof":{"a":["x","2"]},"publicSignals":["1","2"]}`, message: "malformed proof artifact"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPProver(srv.URL, time.Second).RequestProof(context.Background(), ProofRequest{})
			require.Error(t, err)
			assert.True(t, types.IsCode(err, types.ErrProofGeneration))
			assert.Contains(t, err.Error(), tt.message)
			assert.Equal(t, int32(1), calls.Load(), "prover requests are never retried")
		})
	}
}

func TestRequestProofTimeoutIsRetryable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewHTTPProver(srv.URL, 50*time.Millisecond).RequestProof(context.Background(), ProofRequest{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrProofGeneration))
	assert.True(t, types.IsRetryable(err))
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"status":"ok","message":"circuit loaded"}`))
	}))
	defer srv.Close()

	status, err := NewHTTPProver(srv.URL, time.Second).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "circuit loaded", status.Message)
}

func TestStatusUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPProver(srv.URL, time.Second).Status(context.Background())
	assert.Error(t, err)
}
