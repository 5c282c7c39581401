package apartments

import (
	"context"

	internalflows "github.com/khaledahmed0918-sys/Apartments/internal/flows"
)

// Login checks email and password and, on success, saves a session for the
// client in ctx. An unknown email and a wrong password both return
// ErrInvalidCredentials and leave any existing session unchanged.
func (e *Engine) Login(ctx context.Context, email, password string) (SessionUser, error) {
	if !e.ready() {
		return SessionUser{}, ErrEngineNotReady
	}

	start := e.now()
	user, err := internalflows.RunLogin(ctx, email, password, e.loginFlowDeps())
	if e.metrics != nil {
		e.metrics.Observe(MetricLoginLatency, e.now().Sub(start))
	}
	if err != nil {
		return SessionUser{}, err
	}
	return sessionUserFrom(user), nil
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	return internalflows.LoginDeps{
		UpgradeOnLogin:       e.config.Password.UpgradeOnLogin,
		ClientIDFromContext:  ClientIDFromContext,
		FindAccount:          e.credentials.FindByEmail,
		UpdatePasswordHash:   e.credentials.UpdatePassword,
		MapCredentialError:   mapCredentialError,
		VerifyPassword:       e.verifyPassword,
		PasswordNeedsUpgrade: e.passwordHash.NeedsUpgrade,
		HashPassword:         e.hashPassword,
		SaveSession:          e.saveSession,
		MapSessionError:      mapSessionError,
		Warn:                 e.warn,
		MetricInc:            e.metricIncInt,
		EmitAudit:            e.emitAudit,
		Metrics: internalflows.LoginMetrics{
			LoginSuccess:   int(MetricLoginSuccess),
			LoginFailure:   int(MetricLoginFailure),
			SessionCreated: int(MetricSessionCreated),
		},
		Events: internalflows.LoginEvents{
			LoginSuccess: auditEventLoginSuccess,
			LoginFailure: auditEventLoginFailure,
		},
		Errors: flowErrors(),
	}
}
