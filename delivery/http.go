package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the circuit breaker in front of the mail endpoint.
type BreakerConfig struct {
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
	// Interval clears closed-state counts. Zero never clears them.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// FailureRatio trips the breaker once MinRequests have been seen.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns conservative breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// HTTPConfig configures [HTTPDeliverer].
type HTTPConfig struct {
	Endpoint string
	APIKey   string
	From     string
	Timeout  time.Duration
	Breaker  BreakerConfig
}

// HTTPDeliverer posts codes as JSON to a mail relay.
type HTTPDeliverer struct {
	cfg     HTTPConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *slog.Logger
}

type sendCodeRequest struct {
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
	Purpose   string    `json:"purpose"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewHTTPDeliverer(cfg HTTPConfig, logger *slog.Logger) (*HTTPDeliverer, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("delivery endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Breaker == (BreakerConfig{}) {
		cfg.Breaker = DefaultBreakerConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        "otp-delivery",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.Breaker.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.Breaker.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &HTTPDeliverer{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		logger:  logger,
	}, nil
}

// State exposes the breaker state for health reporting.
func (d *HTTPDeliverer) State() gobreaker.State {
	return d.breaker.State()
}

func (d *HTTPDeliverer) Deliver(ctx context.Context, msg Message) error {
	_, err := d.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, d.post(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return nil
}

func (d *HTTPDeliverer) post(ctx context.Context, msg Message) error {
	body, err := json.Marshal(sendCodeRequest{
		From:      d.cfg.From,
		To:        msg.Email,
		Purpose:   msg.Purpose,
		Code:      msg.Code,
		ExpiresAt: msg.ExpiresAt.UTC(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.cfg.APIKey != "" {
		req.Header.Set("api-key", d.cfg.APIKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("relay responded %d", resp.StatusCode)
	}
	return nil
}
