package apartments

import (
	"context"
	"errors"
)

// ErrorKind classifies a failed operation for display.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindDuplicateEmail     ErrorKind = "duplicate_email"
	KindNotFound           ErrorKind = "not_found"
	KindExpired            ErrorKind = "expired"
	KindMismatch           ErrorKind = "mismatch"
	KindServerUnreachable  ErrorKind = "server_unreachable"
	KindValidation         ErrorKind = "validation"
	KindFlowState          ErrorKind = "flow_state"
	KindUnavailable        ErrorKind = "unavailable"
	KindCanceled           ErrorKind = "canceled"
	KindInternal           ErrorKind = "internal"
)

// Retryable reports whether re-driving the flow from its current step can
// succeed without waiting for infrastructure to recover.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindInvalidCredentials, KindDuplicateEmail, KindNotFound,
		KindExpired, KindMismatch, KindValidation:
		return true
	default:
		return false
	}
}

// Infrastructure reports whether the failure is outside the user's control.
func (k ErrorKind) Infrastructure() bool {
	return k == KindServerUnreachable || k == KindUnavailable || k == KindInternal
}

// KindOf maps an engine error to its kind. nil maps to KindNone.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrDuplicateEmail):
		return KindDuplicateEmail
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrCodeExpired):
		return KindExpired
	case errors.Is(err, ErrCodeMismatch):
		return KindMismatch
	case errors.Is(err, ErrServerUnreachable):
		return KindServerUnreachable
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrFlowState):
		return KindFlowState
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrEngineNotReady):
		return KindUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

// Result is the outcome of one operation as shown to a user. Message is a
// lookup key, not display text.
type Result struct {
	Success bool              `json:"success"`
	Kind    ErrorKind         `json:"kind,omitempty"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Data    any               `json:"data,omitempty"`
}

// ResultOf wraps the return values of an engine call. Data is dropped on
// failure. Error details other than validation fields are not exposed.
func ResultOf(err error, data any) Result {
	if err == nil {
		return Result{
			Success: true,
			Message: "auth.ok",
			Data:    data,
		}
	}

	kind := KindOf(err)
	res := Result{
		Kind:    kind,
		Message: "auth.error." + string(kind),
	}

	var verr *ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		res.Fields = make(map[string]string, len(verr.Fields))
		for k, v := range verr.Fields {
			res.Fields[k] = v
		}
	}

	return res
}
