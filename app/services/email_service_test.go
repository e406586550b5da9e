package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/invitewave/invitewave/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGatewayTestService(t *testing.T, handler http.HandlerFunc) *EmailServiceImpl {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &EmailServiceImpl{
		config: &config.EmailConfig{
			APIKey:      "test-key",
			SenderEmail: "noreply@example.com",
			SenderName:  "Invitewave",
			Timeout:     5 * time.Second,
		},
		client:   server.Client(),
		endpoint: server.URL,
	}
}

func TestEmailServiceSend(t *testing.T) {
	t.Run("created response succeeds", func(t *testing.T) {
		svc := newGatewayTestService(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-key", r.Header.Get("api-key"))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"messageId":"<202608311200.1@example.com>"}`))
		})

		err := svc.Send(context.Background(), "alice@example.com", "Hello", "<p>Hi</p>")
		assert.NoError(t, err)
	})

	t.Run("rejection with empty body still fails", func(t *testing.T) {
		svc := newGatewayTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})

		err := svc.Send(context.Background(), "alice@example.com", "Hello", "<p>Hi</p>")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
		assert.False(t, IsTransient(err))
	})

	t.Run("rejection surfaces the gateway message", func(t *testing.T) {
		svc := newGatewayTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Invalid sender","code":"invalid_parameter"}`))
		})

		err := svc.Send(context.Background(), "alice@example.com", "Hello", "<p>Hi</p>")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid sender")
		assert.False(t, IsTransient(err))
	})

	t.Run("server errors are transient", func(t *testing.T) {
		svc := newGatewayTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		err := svc.Send(context.Background(), "alice@example.com", "Hello", "<p>Hi</p>")
		require.Error(t, err)
		assert.True(t, IsTransient(err))
	})
}
