package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func serve(status int, body string, calls *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestResolveAdvertisedRecipient(t *testing.T) {
	var calls atomic.Int32
	// x402 resources answer 402 Payment Required with the payment details
	srv := serve(http.StatusPaymentRequired, `{"recipient":"0x70997970c51812dc3a010c7d01b50e0d17dc79c8"}`, &calls)
	defer srv.Close()

	got := NewResolver(time.Second, nil).Resolve(context.Background(), srv.URL)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", got)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, IsZero(got))
}

func TestResolveFallsBackToZeroAddress(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing recipient", body: `{"price":"1"}`},
		{name: "invalid recipient", body: `{"recipient":"0x1234"}`},
		{name: "not json", body: `<html></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(http.StatusOK, tt.body, nil)
			defer srv.Close()

			got := NewResolver(time.Second, nil).Resolve(context.Background(), srv.URL)
			assert.Equal(t, ZeroAddress, got)
			assert.True(t, IsZero(got))
		})
	}
}

func TestResolveUnreachable(t *testing.T) {
	srv := serve(http.StatusOK, `{}`, nil)
	url := srv.URL
	srv.Close()

	assert.Equal(t, ZeroAddress, NewResolver(time.Second, nil).Resolve(context.Background(), url))
	assert.Equal(t, ZeroAddress, NewResolver(time.Second, nil).Resolve(context.Background(), "://bad"))
}
