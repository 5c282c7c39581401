package apartments

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong
	// password. The two cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNotFound is returned when no account exists for the email.
	ErrNotFound = errors.New("account not found")
	// ErrCodeExpired is returned when a code is submitted after its expiry, or
	// when its pending record no longer exists.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrCodeMismatch is returned when a submitted code differs from the issued one.
	ErrCodeMismatch = errors.New("verification code mismatch")
	// ErrServerUnreachable is returned when the code could not be delivered.
	ErrServerUnreachable = errors.New("delivery server unreachable")
	// ErrStoreUnavailable is returned when account, session or pending storage fails.
	ErrStoreUnavailable = errors.New("storage unavailable")
	// ErrValidation is returned for missing required fields, before any side effect.
	ErrValidation = errors.New("validation failed")
	// ErrFlowState is returned when a flow step is invoked out of order.
	ErrFlowState = errors.New("operation not allowed in current flow state")
	// ErrEngineNotReady is returned when the engine was not built through Builder.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ValidationError lists the fields that failed structural validation. It
// matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error()
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
