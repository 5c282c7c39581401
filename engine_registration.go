package apartments

import (
	"context"
	"fmt"

	"github.com/khaledahmed0918-sys/Apartments/internal"
	internalflows "github.com/khaledahmed0918-sys/Apartments/internal/flows"
)

// BeginRegistration validates req, stores the pending account with its
// password already hashed and sends a code to req.Email. It does not check
// whether the email is taken; CompleteRegistration does, atomically.
//
// A delivery failure returns ErrServerUnreachable and leaves nothing pending.
func (e *Engine) BeginRegistration(ctx context.Context, req RegistrationRequest) (Pending, error) {
	if !e.ready() {
		return Pending{}, ErrEngineNotReady
	}

	issued, err := internalflows.RunBeginRegistration(ctx, internalflows.RegistrationInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}, e.registrationFlowDeps())
	if err != nil {
		return Pending{}, err
	}

	return Pending{
		ID:        issued.ID,
		Purpose:   PurposeRegistration,
		Email:     req.Email,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

// CompleteRegistration checks code against p. A valid code is consumed, the
// account is created and a session is saved for the client in ctx.
// ErrCodeExpired and ErrCodeMismatch change nothing, and after a mismatch the
// same p may be retried. ErrDuplicateEmail means another registration for
// the email finished first.
func (e *Engine) CompleteRegistration(ctx context.Context, p Pending, code string) (SessionUser, error) {
	if !e.ready() {
		return SessionUser{}, ErrEngineNotReady
	}
	if err := checkHandle(p, PurposeRegistration); err != nil {
		return SessionUser{}, err
	}

	user, err := internalflows.RunCompleteRegistration(ctx, p.ID, p.Email, code, e.registrationFlowDeps())
	if err != nil {
		return SessionUser{}, err
	}
	return sessionUserFrom(user), nil
}

func (e *Engine) registrationFlowDeps() internalflows.RegistrationDeps {
	return internalflows.RegistrationDeps{
		Now:                 e.now,
		ClientIDFromContext: ClientIDFromContext,
		Validate: func(in internalflows.RegistrationInput) error {
			return e.validateRegistration(RegistrationRequest{
				Name:     in.Name,
				Email:    in.Email,
				Password: in.Password,
			})
		},
		HashPassword:       e.hashPassword,
		MapPasswordError:   mapPasswordError,
		NewAccountID:       newID,
		InsertAccount:      e.credentials.Insert,
		MapCredentialError: mapCredentialError,
		SaveSession:        e.saveSession,
		MapSessionError:    mapSessionError,
		Pending:            e.pendingFlowDeps(),
		MetricInc:          e.metricIncInt,
		EmitAudit:          e.emitAudit,
		Metrics: internalflows.RegistrationMetrics{
			RegistrationBegin:     int(MetricRegistrationBegin),
			RegistrationSuccess:   int(MetricRegistrationSuccess),
			RegistrationDuplicate: int(MetricRegistrationDuplicate),
			RegistrationFailure:   int(MetricRegistrationFailure),
			SessionCreated:        int(MetricSessionCreated),
		},
		Events: internalflows.RegistrationEvents{
			RegistrationBegin:     auditEventRegistrationBegin,
			RegistrationComplete:  auditEventRegistrationComplete,
			RegistrationDuplicate: auditEventRegistrationDuplicate,
		},
		Errors: flowErrors(),
	}
}

// checkHandle rejects a handle that was never issued, belongs to another
// flow or carries an id this engine could not have produced.
func checkHandle(p Pending, want Purpose) error {
	if p.IsZero() {
		return ErrValidation
	}
	if p.Purpose != want {
		return ErrFlowState
	}
	if _, err := internal.ParseHandleID(p.ID); err != nil {
		return fmt.Errorf("%w: malformed handle", ErrValidation)
	}
	return nil
}
