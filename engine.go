package apartments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/khaledahmed0918-sys/Apartments/credentials"
	"github.com/khaledahmed0918-sys/Apartments/delivery"
	"github.com/khaledahmed0918-sys/Apartments/internal"
	internalaudit "github.com/khaledahmed0918-sys/Apartments/internal/audit"
	internalflows "github.com/khaledahmed0918-sys/Apartments/internal/flows"
	"github.com/khaledahmed0918-sys/Apartments/internal/otp"
	"github.com/khaledahmed0918-sys/Apartments/internal/stores"
	"github.com/khaledahmed0918-sys/Apartments/password"
	"github.com/khaledahmed0918-sys/Apartments/session"
)

// Engine runs the authentication operations. Build it with [Builder]; the
// zero value returns ErrEngineNotReady.
type Engine struct {
	config       Config
	credentials  credentials.Store
	sessionStore *session.Store
	pendingStore *stores.PendingStore
	issuer       *otp.Issuer
	deliverer    delivery.Deliverer
	passwordHash *password.Argon2
	validate     *validator.Validate
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	logger       *slog.Logger
	now          func() time.Time
}

// Close flushes buffered audit events and closes the audit sink if it
// holds resources.
func (e *Engine) Close() error {
	if e == nil || e.audit == nil {
		return nil
	}
	return e.audit.Close()
}

// AuditDropped reports audit events lost to a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// Ping checks the Redis connection shared by the session and pending stores.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	latency, err := e.sessionStore.Ping(ctx)
	if err != nil {
		return latency, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return latency, nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricIncInt(id int) {
	e.metricInc(MetricID(id))
}

func (e *Engine) warn(ctx context.Context, msg string, args ...any) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.WarnContext(ctx, msg, args...)
}

func (e *Engine) ready() bool {
	return e != nil && e.credentials != nil && e.sessionStore != nil && e.pendingStore != nil &&
		e.issuer != nil && e.deliverer != nil && e.passwordHash != nil
}

/*
====================================
ERROR MAPPING
====================================
*/

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func mapCredentialError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, credentials.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, credentials.ErrDuplicateEmail):
		return ErrDuplicateEmail
	case isContextErr(err):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// mapPendingError treats a missing or unreadable record as expired: the
// record outlives its code by the configured grace, so absence means the
// code is long gone.
func mapPendingError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrPendingNotFound), errors.Is(err, stores.ErrPendingCorrupt):
		return ErrCodeExpired
	case isContextErr(err):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func mapSessionError(err error) error {
	switch {
	case err == nil:
		return nil
	case isContextErr(err):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func mapDeliveryError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrServerUnreachable, err)
}

func mapPasswordError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, password.ErrPasswordEmpty):
		return &ValidationError{Fields: map[string]string{"password": "required"}}
	case errors.Is(err, password.ErrPasswordTooShort):
		return &ValidationError{Fields: map[string]string{"password": "min"}}
	case errors.Is(err, password.ErrPasswordTooLong):
		return &ValidationError{Fields: map[string]string{"password": "max"}}
	default:
		return err
	}
}

/*
====================================
FLOW DEPENDENCIES
====================================
*/

func flowErrors() internalflows.Errors {
	return internalflows.Errors{
		EngineNotReady:     ErrEngineNotReady,
		Validation:         ErrValidation,
		InvalidCredentials: ErrInvalidCredentials,
		DuplicateEmail:     ErrDuplicateEmail,
		NotFound:           ErrNotFound,
		CodeExpired:        ErrCodeExpired,
		CodeMismatch:       ErrCodeMismatch,
	}
}

func newID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func newPendingID() (string, error) {
	id, err := internal.NewHandleID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (e *Engine) pendingFlowDeps() internalflows.PendingDeps {
	deps := internalflows.PendingDeps{
		TTL:              e.config.OTP.TTL,
		NewPendingID:     newPendingID,
		MapPendingError:  mapPendingError,
		MapDeliveryError: mapDeliveryError,
		Metrics: internalflows.CodeMetrics{
			CodeIssued:      int(MetricCodeIssued),
			CodeExpired:     int(MetricCodeExpired),
			CodeMismatch:    int(MetricCodeMismatch),
			DeliveryFailure: int(MetricDeliveryFailure),
		},
	}

	if e.issuer != nil {
		deps.IssueCode = e.issuer.Issue
		deps.VerifyCode = e.issuer.Verify
	}
	if e.pendingStore != nil {
		deps.SavePending = e.pendingStore.Save
		deps.GetPending = e.pendingStore.Get
		deps.ConsumePending = e.pendingStore.Consume
		deps.DeletePending = e.pendingStore.Delete
	}
	if e.deliverer != nil {
		deps.Deliver = func(ctx context.Context, email, code, purpose string, expiresAt time.Time) error {
			return e.deliverer.Deliver(ctx, delivery.Message{
				Email:     email,
				Code:      code,
				Purpose:   purpose,
				ExpiresAt: expiresAt,
			})
		}
	}

	return deps
}

func (e *Engine) saveSession(ctx context.Context, slot string, u *session.User) error {
	return e.sessionStore.Save(ctx, slot, u)
}

func (e *Engine) hashPassword(pw string) (string, error) {
	return e.passwordHash.Hash(pw)
}

func (e *Engine) verifyPassword(pw, encoded string) (bool, error) {
	return e.passwordHash.Verify(pw, encoded)
}
