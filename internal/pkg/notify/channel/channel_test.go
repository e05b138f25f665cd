package channel

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-arcade/conveyor/internal/pkg/notify/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestWebhookChannel_Send(t *testing.T) {
	var got *http.Request
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		body, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	c := NewWebhookChannel(srv.URL, "put", map[string]string{"X-Team": "web"})
	require.NoError(t, c.SetAuth(auth.NewBearerAuth("t0k")))
	require.NoError(t, c.Send(context.Background(), &Message{Kind: "run_finished", Title: "web #1", Status: "failed"}))

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "web", got.Header.Get("X-Team"))
	assert.Equal(t, "Bearer t0k", got.Header.Get("Authorization"))
	assert.NotEmpty(t, got.Header.Get(DeliveryHeader))
	assert.Equal(t, "run_finished", gjson.GetBytes(body, "kind").String())
	assert.Equal(t, "failed", gjson.GetBytes(body, "status").String())
}

func TestWebhookChannel_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookChannel(srv.URL, "", nil).Send(context.Background(), &Message{})
	assert.ErrorContains(t, err, "status 502")

	assert.Error(t, NewWebhookChannel("", "", nil).Validate())
	assert.ErrorContains(t, NewWebhookChannel(srv.URL, "get", nil).Validate(), "unsupported webhook method")
}

func TestSlackChannel_Send(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewSlackChannel(srv.URL, "#deploys", "conveyor")
	require.NoError(t, c.Send(context.Background(), &Message{Title: "deploy succeeded", Text: "web", Status: "succeeded"}))
	assert.Equal(t, "#deploys", gjson.GetBytes(body, "channel").String())
	assert.Equal(t, "#2eb67d", gjson.GetBytes(body, "attachments.0.color").String())

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("invalid_payload"))
	}))
	defer bad.Close()
	assert.ErrorContains(t, NewSlackChannel(bad.URL, "", "").Send(context.Background(), &Message{}), "slack API error")
}
