package apartments

import (
	"context"

	internalflows "github.com/khaledahmed0918-sys/Apartments/internal/flows"
)

// Logout clears the session of the client in ctx. Logging out with no
// session succeeds.
func (e *Engine) Logout(ctx context.Context) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return internalflows.RunLogout(ctx, e.sessionFlowDeps())
}

// RestoreSession returns the saved session of the client in ctx. Storage
// failures are logged and reported as no session.
func (e *Engine) RestoreSession(ctx context.Context) (SessionUser, bool) {
	if !e.ready() {
		return SessionUser{}, false
	}
	user, ok := internalflows.RunRestoreSession(ctx, e.sessionFlowDeps())
	if !ok {
		return SessionUser{}, false
	}
	return sessionUserFrom(user), true
}

// DiscardPending abandons p. Its code stops working immediately. Discarding
// an unknown or already used handle succeeds.
func (e *Engine) DiscardPending(ctx context.Context, p Pending) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if p.IsZero() {
		return nil
	}
	if err := e.pendingStore.Delete(ctx, p.ID); err != nil {
		mapped := mapPendingError(err)
		e.emitAudit(ctx, auditEventPendingDiscarded, false, "", p.Email, mapped, nil)
		return mapped
	}
	e.metricInc(MetricPendingDiscarded)
	e.emitAudit(ctx, auditEventPendingDiscarded, true, "", p.Email, nil, func() map[string]string {
		return map[string]string{"purpose": string(p.Purpose)}
	})
	return nil
}

// Accounts lists registered accounts in registration order.
func (e *Engine) Accounts(ctx context.Context) ([]Account, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	recs, err := e.credentials.List(ctx)
	if err != nil {
		return nil, mapCredentialError(err)
	}
	out := make([]Account, 0, len(recs))
	for _, rec := range recs {
		out = append(out, accountFromRecord(rec))
	}
	return out, nil
}

func (e *Engine) sessionFlowDeps() internalflows.SessionDeps {
	return internalflows.SessionDeps{
		ClientIDFromContext: ClientIDFromContext,
		GetSession:          e.sessionStore.Get,
		ClearSession:        e.sessionStore.Clear,
		MapSessionError:     mapSessionError,
		Warn:                e.warn,
		MetricInc:           e.metricIncInt,
		EmitAudit:           e.emitAudit,
		Metrics: internalflows.SessionMetrics{
			Logout:         int(MetricLogout),
			SessionRestore: int(MetricSessionRestored),
			SessionMissing: int(MetricSessionMissing),
		},
		Events: internalflows.SessionEvents{
			Logout:         auditEventLogout,
			SessionRestore: auditEventSessionRestore,
		},
		Errors: flowErrors(),
	}
}
