package flows

import (
	"context"
	"errors"

	"github.com/khaledahmed0918-sys/Apartments/credentials"
	"github.com/khaledahmed0918-sys/Apartments/session"
)

type LoginMetrics struct {
	LoginSuccess   int
	LoginFailure   int
	SessionCreated int
}

type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	UpgradeOnLogin bool

	ClientIDFromContext func(context.Context) string

	FindAccount        func(context.Context, string) (credentials.Record, error)
	UpdatePasswordHash func(context.Context, string, string) error
	IsAccountNotFound  func(error) bool
	MapCredentialError func(error) error

	VerifyPassword       func(password, encodedHash string) (bool, error)
	PasswordNeedsUpgrade func(encodedHash string) (bool, error)
	HashPassword         func(string) (string, error)

	SaveSession     func(context.Context, string, *session.User) error
	MapSessionError func(error) error

	Warn      func(context.Context, string, ...any)
	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  Errors
}

func normalizeLoginDeps(deps *LoginDeps) {
	normalizeCommon(&deps.MetricInc, &deps.EmitAudit, &deps.Warn, &deps.ClientIDFromContext)
	if deps.IsAccountNotFound == nil {
		deps.IsAccountNotFound = func(err error) bool { return errors.Is(err, credentials.ErrNotFound) }
	}
	if deps.MapCredentialError == nil {
		deps.MapCredentialError = func(err error) error { return err }
	}
	if deps.MapSessionError == nil {
		deps.MapSessionError = func(err error) error { return err }
	}
}

// RunLogin checks email and password against the credential store and saves
// a session for the calling client. Unknown email and wrong password both
// return Errors.InvalidCredentials.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (*session.User, error) {
	normalizeLoginDeps(&deps)

	if deps.FindAccount == nil || deps.VerifyPassword == nil || deps.SaveSession == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if email == "" || password == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", email, deps.Errors.Validation, func() map[string]string {
			return map[string]string{"reason": "missing_field"}
		})
		return nil, deps.Errors.Validation
	}

	rec, err := deps.FindAccount(ctx, email)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		if deps.IsAccountNotFound(err) {
			deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", email, deps.Errors.InvalidCredentials, func() map[string]string {
				return map[string]string{"reason": "account_not_found"}
			})
			return nil, deps.Errors.InvalidCredentials
		}
		mapped := deps.MapCredentialError(err)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", email, mapped, nil)
		return nil, mapped
	}

	ok, err := deps.VerifyPassword(password, rec.PasswordHash)
	if err != nil || !ok {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, rec.ID, email, deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "password_mismatch"}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	if deps.UpgradeOnLogin && deps.PasswordNeedsUpgrade != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		if needsUpgrade, err := deps.PasswordNeedsUpgrade(rec.PasswordHash); err == nil && needsUpgrade {
			if upgraded, err := deps.HashPassword(password); err == nil {
				if err := deps.UpdatePasswordHash(ctx, rec.Email, upgraded); err != nil {
					deps.Warn(ctx, "password hash upgrade update failed", "error", err)
				}
			} else {
				deps.Warn(ctx, "password hash upgrade generation failed", "error", err)
			}
		}
	}
	password = ""

	user := newSessionUser(rec)
	if err := deps.SaveSession(ctx, deps.ClientIDFromContext(ctx), user); err != nil {
		mapped := deps.MapSessionError(err)
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, rec.ID, email, mapped, func() map[string]string {
			return map[string]string{"reason": "session_save"}
		})
		return nil, mapped
	}

	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, rec.ID, email, nil, nil)

	return user, nil
}

func newSessionUser(rec credentials.Record) *session.User {
	name := make([]string, len(rec.Name))
	copy(name, rec.Name)
	return &session.User{
		ID:       rec.ID,
		Name:     name,
		Email:    rec.Email,
		Verified: true,
		JoinedAt: rec.JoinedAt.UnixMilli(),
	}
}
