package apartments

import (
	"context"

	internalflows "github.com/khaledahmed0918-sys/Apartments/internal/flows"
)

// BeginPasswordReset sends a reset code to email. It returns ErrNotFound,
// without issuing anything, when no account has that email.
func (e *Engine) BeginPasswordReset(ctx context.Context, email string) (Pending, error) {
	if !e.ready() {
		return Pending{}, ErrEngineNotReady
	}

	issued, err := internalflows.RunBeginPasswordReset(ctx, email, e.passwordResetFlowDeps())
	if err != nil {
		return Pending{}, err
	}

	return Pending{
		ID:        issued.ID,
		Purpose:   PurposePasswordReset,
		Email:     email,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

// ConfirmResetCode checks code against p without consuming it, so the same
// code is submitted again to FinalizeReset.
func (e *Engine) ConfirmResetCode(ctx context.Context, p Pending, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if err := checkHandle(p, PurposePasswordReset); err != nil {
		return err
	}
	return internalflows.RunConfirmResetCode(ctx, p.ID, p.Email, code, e.passwordResetFlowDeps())
}

// FinalizeReset verifies code again, consumes p, stores newPassword and
// saves a session for the client in ctx. A password rejected by policy
// returns a *ValidationError and leaves p usable.
func (e *Engine) FinalizeReset(ctx context.Context, p Pending, code, newPassword string) (SessionUser, error) {
	if !e.ready() {
		return SessionUser{}, ErrEngineNotReady
	}
	if err := checkHandle(p, PurposePasswordReset); err != nil {
		return SessionUser{}, err
	}

	user, err := internalflows.RunFinalizeReset(ctx, p.ID, p.Email, code, newPassword, e.passwordResetFlowDeps())
	if err != nil {
		return SessionUser{}, err
	}
	return sessionUserFrom(user), nil
}

func (e *Engine) passwordResetFlowDeps() internalflows.PasswordResetDeps {
	return internalflows.PasswordResetDeps{
		ClientIDFromContext: ClientIDFromContext,
		FindAccount:         e.credentials.FindByEmail,
		UpdatePasswordHash:  e.credentials.UpdatePassword,
		MapCredentialError:  mapCredentialError,
		HashPassword:        e.hashPassword,
		MapPasswordError:    mapPasswordError,
		SaveSession:         e.saveSession,
		MapSessionError:     mapSessionError,
		Pending:             e.pendingFlowDeps(),
		MetricInc:           e.metricIncInt,
		EmitAudit:           e.emitAudit,
		Metrics: internalflows.PasswordResetMetrics{
			PasswordResetRequest:        int(MetricPasswordResetRequest),
			PasswordResetConfirmSuccess: int(MetricPasswordResetConfirmSuccess),
			PasswordResetConfirmFailure: int(MetricPasswordResetConfirmFailure),
			PasswordResetSuccess:        int(MetricPasswordResetSuccess),
			SessionCreated:              int(MetricSessionCreated),
		},
		Events: internalflows.PasswordResetEvents{
			PasswordResetRequest:  auditEventPasswordResetRequest,
			PasswordResetConfirm:  auditEventPasswordResetConfirm,
			PasswordResetFinalize: auditEventPasswordResetFinalize,
		},
		Errors: flowErrors(),
	}
}
