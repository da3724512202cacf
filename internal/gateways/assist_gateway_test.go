package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assistReply = `{"candidates":[{"content":{"role":"model","parts":[{"text":"Eid Mubarak! Enjoy 50% off this week only."}]}}]}`

func newAssistClient(t *testing.T, baseURL string) *AssistClient {
	t.Helper()
	client, err := NewAssistClient(&AssistConfig{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		InitialDelay: time.Millisecond,
		MaxAttempts:  5,
	})
	require.NoError(t, err)
	return client
}

func TestAssistClient_Draft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, ":generateContent")
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(assistReply))
	}))
	defer server.Close()

	draft, err := newAssistClient(t, server.URL).Draft(context.Background(), "eid sale, 50% off")
	require.NoError(t, err)
	assert.Equal(t, "Eid Mubarak! Enjoy 50% off this week only.", draft)
}

func TestAssistClient_Draft_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(assistReply))
	}))
	defer server.Close()

	draft, err := newAssistClient(t, server.URL).Draft(context.Background(), "eid sale")
	require.NoError(t, err)
	assert.NotEmpty(t, draft)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAssistClient_Draft_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newAssistClient(t, server.URL).Draft(context.Background(), "eid sale")
	require.Error(t, err)
	assert.Equal(t, int32(5), calls.Load())
}

func TestAssistClient_Draft_ClientErrorIsTerminal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid model"}}`))
	}))
	defer server.Close()

	_, err := newAssistClient(t, server.URL).Draft(context.Background(), "eid sale")
	require.Error(t, err)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusBadRequest, transportErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAssistClient_Draft_EmptyReplyIsTerminal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	_, err := newAssistClient(t, server.URL).Draft(context.Background(), "eid sale")
	assert.True(t, errors.Is(err, ErrEmptyDraft))
	assert.Equal(t, int32(1), calls.Load())
}

func TestAssistClient_Draft_UndecodableReplyIsTerminal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`this is not json`))
	}))
	defer server.Close()

	_, err := newAssistClient(t, server.URL).Draft(context.Background(), "eid sale")
	assert.True(t, errors.Is(err, ErrMalformedDraft))
	assert.Equal(t, int32(1), calls.Load())
}

func TestAssistClient_Draft_NotConfigured(t *testing.T) {
	client, err := NewAssistClient(&AssistConfig{})
	require.NoError(t, err)
	assert.False(t, client.Enabled())

	_, err = client.Draft(context.Background(), "eid sale")
	assert.True(t, errors.Is(err, ErrAssistNotConfigured))
}
