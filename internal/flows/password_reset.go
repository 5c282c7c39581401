package flows

import (
	"context"
	"errors"

	"github.com/khaledahmed0918-sys/Apartments/credentials"
	"github.com/khaledahmed0918-sys/Apartments/internal/stores"
	"github.com/khaledahmed0918-sys/Apartments/session"
)

type PasswordResetMetrics struct {
	PasswordResetRequest        int
	PasswordResetConfirmSuccess int
	PasswordResetConfirmFailure int
	PasswordResetSuccess        int
	SessionCreated              int
}

type PasswordResetEvents struct {
	PasswordResetRequest  string
	PasswordResetConfirm  string
	PasswordResetFinalize string
}

// PasswordResetDeps captures password reset flow dependencies.
type PasswordResetDeps struct {
	ClientIDFromContext func(context.Context) string

	FindAccount        func(context.Context, string) (credentials.Record, error)
	UpdatePasswordHash func(context.Context, string, string) error
	IsAccountNotFound  func(error) bool
	MapCredentialError func(error) error

	HashPassword     func(string) (string, error)
	MapPasswordError func(error) error

	SaveSession     func(context.Context, string, *session.User) error
	MapSessionError func(error) error

	Pending PendingDeps

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  Errors
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	normalizeCommon(&deps.MetricInc, &deps.EmitAudit, nil, &deps.ClientIDFromContext)
	normalizePendingDeps(&deps.Pending)
	if deps.IsAccountNotFound == nil {
		deps.IsAccountNotFound = func(err error) bool { return errors.Is(err, credentials.ErrNotFound) }
	}
	if deps.MapCredentialError == nil {
		deps.MapCredentialError = func(err error) error { return err }
	}
	if deps.MapPasswordError == nil {
		deps.MapPasswordError = func(err error) error { return err }
	}
	if deps.MapSessionError == nil {
		deps.MapSessionError = func(err error) error { return err }
	}
}

// RunBeginPasswordReset issues a reset code for a registered email. The
// account must exist before any code is issued.
func RunBeginPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) (Issued, error) {
	normalizePasswordResetDeps(&deps)

	if deps.FindAccount == nil || !deps.Pending.ready() {
		return Issued{}, deps.Errors.EngineNotReady
	}

	if email == "" {
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", "", deps.Errors.Validation, func() map[string]string {
			return map[string]string{"reason": "missing_field"}
		})
		return Issued{}, deps.Errors.Validation
	}

	rec, err := deps.FindAccount(ctx, email)
	if err != nil {
		if deps.IsAccountNotFound(err) {
			deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", email, deps.Errors.NotFound, nil)
			return Issued{}, deps.Errors.NotFound
		}
		mapped := deps.MapCredentialError(err)
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", email, mapped, nil)
		return Issued{}, mapped
	}

	issued, err := issuePending(ctx, stores.PendingRecord{
		Purpose: stores.PurposePasswordReset,
		Email:   rec.Email,
	}, deps.Pending, deps.MetricInc)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, rec.ID, email, err, nil)
		return Issued{}, err
	}

	deps.MetricInc(deps.Metrics.PasswordResetRequest)
	deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, true, rec.ID, email, nil, nil)
	return issued, nil
}

// RunConfirmResetCode checks code without consuming the record.
func RunConfirmResetCode(ctx context.Context, pendingID, email, code string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if !deps.Pending.ready() {
		return deps.Errors.EngineNotReady
	}
	if pendingID == "" || code == "" {
		return deps.Errors.Validation
	}

	if _, err := verifyPending(ctx, pendingID, stores.PurposePasswordReset, email, code, deps.Pending, deps.Errors); err != nil {
		countCodeFailure(err, deps.Pending, deps.Errors, deps.MetricInc)
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, false, "", email, err, nil)
		return err
	}

	deps.MetricInc(deps.Metrics.PasswordResetConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, true, "", email, nil, nil)
	return nil
}

// RunFinalizeReset verifies code again at the point of mutation, consumes the
// record, stores the new password hash and saves a session built from the
// updated account.
func RunFinalizeReset(ctx context.Context, pendingID, email, code, newPassword string, deps PasswordResetDeps) (*session.User, error) {
	normalizePasswordResetDeps(&deps)

	if deps.FindAccount == nil || deps.UpdatePasswordHash == nil || deps.HashPassword == nil || deps.SaveSession == nil || !deps.Pending.ready() {
		return nil, deps.Errors.EngineNotReady
	}
	if pendingID == "" || code == "" || newPassword == "" {
		deps.EmitAudit(ctx, deps.Events.PasswordResetFinalize, false, "", email, deps.Errors.Validation, func() map[string]string {
			return map[string]string{"reason": "missing_field"}
		})
		return nil, deps.Errors.Validation
	}

	// Hash first so a rejected password leaves the record usable.
	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		mapped := deps.MapPasswordError(err)
		deps.EmitAudit(ctx, deps.Events.PasswordResetFinalize, false, "", email, mapped, func() map[string]string {
			return map[string]string{"reason": "password_policy"}
		})
		return nil, mapped
	}
	newPassword = ""

	if _, err := consumePending(ctx, pendingID, stores.PurposePasswordReset, email, code, deps.Pending, deps.Errors); err != nil {
		countCodeFailure(err, deps.Pending, deps.Errors, deps.MetricInc)
		deps.EmitAudit(ctx, deps.Events.PasswordResetFinalize, false, "", email, err, nil)
		return nil, err
	}

	if err := deps.UpdatePasswordHash(ctx, email, hash); err != nil {
		mapped := deps.Errors.NotFound
		if !deps.IsAccountNotFound(err) {
			mapped = deps.MapCredentialError(err)
		}
		deps.EmitAudit(ctx, deps.Events.PasswordResetFinalize, false, "", email, mapped, nil)
		return nil, mapped
	}

	rec, err := deps.FindAccount(ctx, email)
	if err != nil {
		mapped := deps.Errors.NotFound
		if !deps.IsAccountNotFound(err) {
			mapped = deps.MapCredentialError(err)
		}
		deps.EmitAudit(ctx, deps.Events.PasswordResetFinalize, false, "", email, mapped, func() map[string]string {
			return map[string]string{"reason": "reload", "password_updated": "true"}
		})
		return nil, mapped
	}

	deps.MetricInc(deps.Metrics.PasswordResetSuccess)

	user := newSessionUser(rec)
	if err := deps.SaveSession(ctx, deps.ClientIDFromContext(ctx), user); err != nil {
		mapped := deps.MapSessionError(err)
		deps.EmitAudit(ctx, deps.Events.PasswordResetFinalize, false, rec.ID, email, mapped, func() map[string]string {
			return map[string]string{"reason": "session_save", "password_updated": "true"}
		})
		return nil, mapped
	}

	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.EmitAudit(ctx, deps.Events.PasswordResetFinalize, true, rec.ID, email, nil, nil)
	return user, nil
}
