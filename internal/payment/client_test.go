package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/atelier-labs/commission-api/pkg/errors"
)

func TestClientCaptureSendsIdempotencyKey(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		_ = json.NewEncoder(w).Encode(CaptureOut{Success: true, TransactionRef: "tx-1"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", time.Second)
	out, err := client.Capture(context.Background(), "cp-1", "m1", 50)
	require.NoError(t, err)
	assert.Equal(t, "tx-1", out.TransactionRef)
	assert.Equal(t, "cp-1", gotKey)
}

func TestClientCaptureInsufficientFunds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.Capture(context.Background(), "cp-1", "m1", 50)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInsufficientFunds))
}

func TestClientCaptureProcessorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.Capture(context.Background(), "cp-1", "m1", 50)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDependency))
}
