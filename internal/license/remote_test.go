package license

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appgate/internal/config"
)

func remoteClient(t *testing.T, serverURL string) *RemoteClient {
	t.Helper()

	cfg := config.Default().License
	cfg.VerifyURL = serverURL
	cfg.ProductID = "prod-1"
	cfg.VerifyTimeout = 2 * time.Second

	return NewRemoteClient(cfg, testLogger())
}

func TestVerifySendsFormFields(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"product_id":           r.PostForm.Get("product_id"),
			"license_key":          r.PostForm.Get("license_key"),
			"increment_uses_count": r.PostForm.Get("increment_uses_count"),
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	status := remoteClient(t, server.URL).Verify(context.Background(), "GATE-KEY")

	assert.True(t, status.Passes())
	assert.Equal(t, map[string]string{
		"product_id":           "prod-1",
		"license_key":          "GATE-KEY",
		"increment_uses_count": "false",
	}, gotForm)
}

func TestVerifyOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantState  State
		wantReason Reason
	}{
		{
			name: "success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"success":true,"purchase":{"refunded":false,"disputed":false}}`))
			},
			wantState:  StateValid,
			wantReason: ReasonOK,
		},
		{
			name: "unknown key",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"success":false}`))
			},
			wantState:  StateInvalid,
			wantReason: ReasonKeyMismatch,
		},
		{
			name: "refunded purchase",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"success":true,"purchase":{"refunded":true}}`))
			},
			wantState:  StateInvalid,
			wantReason: ReasonRevoked,
		},
		{
			name: "disputed purchase",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"success":true,"purchase":{"disputed":true}}`))
			},
			wantState:  StateInvalid,
			wantReason: ReasonRevoked,
		},
		{
			name: "service error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantState:  StateUnverifiable,
			wantReason: ReasonRemoteError,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not-json`))
			},
			wantState:  StateUnverifiable,
			wantReason: ReasonRemoteError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			got := remoteClient(t, server.URL).Verify(context.Background(), "GATE-KEY")
			assert.Equal(t, tt.wantState, got.State)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestVerifyTransportFailure(t *testing.T) {
	// Server closed before the call: connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	got := remoteClient(t, server.URL).Verify(context.Background(), "GATE-KEY")
	assert.Equal(t, StateUnverifiable, got.State)
}

func TestVerifyRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	got := remoteClient(t, server.URL).Verify(context.Background(), "GATE-KEY")
	assert.True(t, got.Passes())
	assert.Equal(t, int32(2), calls.Load())
}

func TestVerifyTimeoutFailsClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read detects the
		// client disconnect and cancels the request context.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	cfg := config.Default().License
	cfg.VerifyURL = server.URL
	cfg.ProductID = "prod-1"
	cfg.VerifyTimeout = 100 * time.Millisecond

	got := NewRemoteClient(cfg, testLogger()).Verify(context.Background(), "GATE-KEY")
	assert.Equal(t, StateUnverifiable, got.State)
	assert.False(t, got.Passes())
}
