package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() Message {
	return Message{
		Email:     "a@x.com",
		Code:      "123456",
		Purpose:   "registration",
		ExpiresAt: time.Date(2025, 1, 1, 12, 5, 0, 0, time.UTC),
	}
}

func TestHTTPDeliverer_PostsJSON(t *testing.T) {
	var got sendCodeRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d, err := NewHTTPDeliverer(HTTPConfig{Endpoint: srv.URL, APIKey: "k", From: "noreply@apartments.test"}, nil)
	require.NoError(t, err)

	require.NoError(t, d.Deliver(context.Background(), testMessage()))
	assert.Equal(t, "k", apiKey)
	assert.Equal(t, "a@x.com", got.To)
	assert.Equal(t, "123456", got.Code)
	assert.Equal(t, "registration", got.Purpose)
	assert.True(t, got.ExpiresAt.Equal(testMessage().ExpiresAt))
}

func TestHTTPDeliverer_ServerErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d, err := NewHTTPDeliverer(HTTPConfig{Endpoint: srv.URL}, nil)
	require.NoError(t, err)

	err = d.Deliver(context.Background(), testMessage())
	assert.True(t, errors.Is(err, ErrUnreachable))
}

func TestHTTPDeliverer_TimeoutIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	d, err := NewHTTPDeliverer(HTTPConfig{Endpoint: srv.URL, Timeout: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, d.Deliver(context.Background(), testMessage()), ErrUnreachable)
}

func TestHTTPDeliverer_BreakerOpensAndShortCircuits(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	d, err := NewHTTPDeliverer(HTTPConfig{
		Endpoint: srv.URL,
		Breaker: BreakerConfig{
			MaxRequests:  1,
			Timeout:      time.Minute,
			FailureRatio: 0.5,
			MinRequests:  2,
		},
	}, logger)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, d.Deliver(context.Background(), testMessage()), ErrUnreachable)
	}
	assert.Equal(t, gobreaker.StateOpen, d.State())

	err = d.Deliver(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.True(t, strings.Contains(logs.String(), "circuit breaker state change"))
}

func TestNewHTTPDeliverer_RequiresEndpoint(t *testing.T) {
	_, err := NewHTTPDeliverer(HTTPConfig{}, nil)
	assert.Error(t, err)
}

func TestLogDeliverer_WritesCode(t *testing.T) {
	var logs bytes.Buffer
	d := NewLogDeliverer(slog.New(slog.NewJSONHandler(&logs, nil)))

	require.NoError(t, d.Deliver(context.Background(), testMessage()))
	assert.Contains(t, logs.String(), `"code":"123456"`)
	assert.Contains(t, logs.String(), `"email":"a@x.com"`)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Deliver(context.Background(), testMessage()))
	second := testMessage()
	second.Code = "654321"
	require.NoError(t, r.Deliver(context.Background(), second))

	last, ok := r.Last("a@x.com")
	require.True(t, ok)
	assert.Equal(t, "654321", last.Code)
	assert.Equal(t, 2, r.Count())

	r.Err = ErrUnreachable
	assert.ErrorIs(t, r.Deliver(context.Background(), testMessage()), ErrUnreachable)
	assert.Equal(t, 2, r.Count())
}
