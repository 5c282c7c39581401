package flows

import (
	"context"
	"errors"

	"github.com/khaledahmed0918-sys/Apartments/session"
)

type SessionMetrics struct {
	Logout         int
	SessionRestore int
	SessionMissing int
}

type SessionEvents struct {
	Logout         string
	SessionRestore string
}

// SessionDeps captures logout and restore dependencies.
type SessionDeps struct {
	ClientIDFromContext func(context.Context) string

	GetSession      func(context.Context, string) (*session.User, error)
	ClearSession    func(context.Context, string) error
	MapSessionError func(error) error

	Warn      func(context.Context, string, ...any)
	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics SessionMetrics
	Events  SessionEvents
	Errors  Errors
}

func normalizeSessionDeps(deps *SessionDeps) {
	normalizeCommon(&deps.MetricInc, &deps.EmitAudit, &deps.Warn, &deps.ClientIDFromContext)
	if deps.MapSessionError == nil {
		deps.MapSessionError = func(err error) error { return err }
	}
}

// RunLogout clears the calling client's session slot. Logging out without a
// session succeeds.
func RunLogout(ctx context.Context, deps SessionDeps) error {
	normalizeSessionDeps(&deps)

	if deps.ClearSession == nil {
		return deps.Errors.EngineNotReady
	}

	slot := deps.ClientIDFromContext(ctx)
	if err := deps.ClearSession(ctx, slot); err != nil {
		mapped := deps.MapSessionError(err)
		deps.EmitAudit(ctx, deps.Events.Logout, false, "", "", mapped, nil)
		return mapped
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, "", "", nil, nil)
	return nil
}

// RunRestoreSession returns the calling client's saved session. It never
// fails: a missing, unreadable or corrupt record reports no session, and a
// corrupt one is cleared.
func RunRestoreSession(ctx context.Context, deps SessionDeps) (*session.User, bool) {
	normalizeSessionDeps(&deps)

	if deps.GetSession == nil {
		return nil, false
	}

	slot := deps.ClientIDFromContext(ctx)
	user, err := deps.GetSession(ctx, slot)
	if err != nil {
		deps.MetricInc(deps.Metrics.SessionMissing)
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
		case errors.Is(err, session.ErrSessionCorrupt):
			deps.Warn(ctx, "discarding corrupt session", "slot", slot, "error", err)
			if deps.ClearSession != nil {
				if clearErr := deps.ClearSession(ctx, slot); clearErr != nil {
					deps.Warn(ctx, "clearing corrupt session failed", "slot", slot, "error", clearErr)
				}
			}
		default:
			deps.Warn(ctx, "session restore failed", "slot", slot, "error", err)
		}
		return nil, false
	}

	deps.MetricInc(deps.Metrics.SessionRestore)
	deps.EmitAudit(ctx, deps.Events.SessionRestore, true, user.ID, user.Email, nil, nil)
	return user, true
}
