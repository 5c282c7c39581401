package flows

import (
	"context"
	"errors"
	"time"

	"github.com/khaledahmed0918-sys/Apartments/credentials"
	"github.com/khaledahmed0918-sys/Apartments/internal/stores"
	"github.com/khaledahmed0918-sys/Apartments/session"
)

// RegistrationInput is the flow-local sign-up payload.
type RegistrationInput struct {
	Name     []string
	Email    string
	Password string
}

type RegistrationMetrics struct {
	RegistrationBegin     int
	RegistrationSuccess   int
	RegistrationDuplicate int
	RegistrationFailure   int
	SessionCreated        int
}

type RegistrationEvents struct {
	RegistrationBegin     string
	RegistrationComplete  string
	RegistrationDuplicate string
}

// RegistrationDeps captures registration flow dependencies.
type RegistrationDeps struct {
	Now                 func() time.Time
	ClientIDFromContext func(context.Context) string

	Validate           func(RegistrationInput) error
	HashPassword       func(string) (string, error)
	MapPasswordError   func(error) error
	NewAccountID       func() (string, error)
	InsertAccount      func(context.Context, credentials.Record) error
	IsDuplicateEmail   func(error) bool
	MapCredentialError func(error) error

	SaveSession     func(context.Context, string, *session.User) error
	MapSessionError func(error) error

	Pending PendingDeps

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RegistrationMetrics
	Events  RegistrationEvents
	Errors  Errors
}

func normalizeRegistrationDeps(deps *RegistrationDeps) {
	normalizeCommon(&deps.MetricInc, &deps.EmitAudit, nil, &deps.ClientIDFromContext)
	normalizePendingDeps(&deps.Pending)
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MapPasswordError == nil {
		deps.MapPasswordError = func(err error) error { return err }
	}
	if deps.IsDuplicateEmail == nil {
		deps.IsDuplicateEmail = func(err error) bool { return errors.Is(err, credentials.ErrDuplicateEmail) }
	}
	if deps.MapCredentialError == nil {
		deps.MapCredentialError = func(err error) error { return err }
	}
	if deps.MapSessionError == nil {
		deps.MapSessionError = func(err error) error { return err }
	}
}

// RunBeginRegistration validates in, stores a registration record carrying
// the hashed password and delivers its code. Email availability is decided
// at completion by the store's atomic insert.
func RunBeginRegistration(ctx context.Context, in RegistrationInput, deps RegistrationDeps) (Issued, error) {
	normalizeRegistrationDeps(&deps)

	if deps.Validate == nil || deps.HashPassword == nil || !deps.Pending.ready() {
		return Issued{}, deps.Errors.EngineNotReady
	}

	if err := deps.Validate(in); err != nil {
		deps.MetricInc(deps.Metrics.RegistrationFailure)
		deps.EmitAudit(ctx, deps.Events.RegistrationBegin, false, "", in.Email, err, func() map[string]string {
			return map[string]string{"reason": "validation"}
		})
		return Issued{}, err
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		mapped := deps.MapPasswordError(err)
		deps.MetricInc(deps.Metrics.RegistrationFailure)
		deps.EmitAudit(ctx, deps.Events.RegistrationBegin, false, "", in.Email, mapped, func() map[string]string {
			return map[string]string{"reason": "password_policy"}
		})
		return Issued{}, mapped
	}
	in.Password = ""

	name := make([]string, len(in.Name))
	copy(name, in.Name)

	issued, err := issuePending(ctx, stores.PendingRecord{
		Purpose:      stores.PurposeRegistration,
		Email:        in.Email,
		Name:         name,
		PasswordHash: hash,
	}, deps.Pending, deps.MetricInc)
	if err != nil {
		deps.MetricInc(deps.Metrics.RegistrationFailure)
		deps.EmitAudit(ctx, deps.Events.RegistrationBegin, false, "", in.Email, err, nil)
		return Issued{}, err
	}

	deps.MetricInc(deps.Metrics.RegistrationBegin)
	deps.EmitAudit(ctx, deps.Events.RegistrationBegin, true, "", in.Email, nil, nil)
	return issued, nil
}

// RunCompleteRegistration consumes the registration record when code is
// valid, creates the account and saves a session for the calling client.
// Expired and mismatched codes change nothing.
func RunCompleteRegistration(ctx context.Context, pendingID, email, code string, deps RegistrationDeps) (*session.User, error) {
	normalizeRegistrationDeps(&deps)

	if deps.NewAccountID == nil || deps.InsertAccount == nil || deps.SaveSession == nil || !deps.Pending.ready() {
		return nil, deps.Errors.EngineNotReady
	}

	if pendingID == "" || code == "" {
		deps.EmitAudit(ctx, deps.Events.RegistrationComplete, false, "", email, deps.Errors.Validation, func() map[string]string {
			return map[string]string{"reason": "missing_field"}
		})
		return nil, deps.Errors.Validation
	}

	record, err := consumePending(ctx, pendingID, stores.PurposeRegistration, email, code, deps.Pending, deps.Errors)
	if err != nil {
		countCodeFailure(err, deps.Pending, deps.Errors, deps.MetricInc)
		deps.MetricInc(deps.Metrics.RegistrationFailure)
		deps.EmitAudit(ctx, deps.Events.RegistrationComplete, false, "", email, err, nil)
		return nil, err
	}

	accountID, err := deps.NewAccountID()
	if err != nil {
		return nil, err
	}

	rec := credentials.Record{
		ID:           accountID,
		Name:         record.Name,
		Email:        record.Email,
		PasswordHash: record.PasswordHash,
		JoinedAt:     deps.Now().UTC(),
	}

	if err := deps.InsertAccount(ctx, rec); err != nil {
		if deps.IsDuplicateEmail(err) {
			deps.MetricInc(deps.Metrics.RegistrationDuplicate)
			deps.EmitAudit(ctx, deps.Events.RegistrationDuplicate, false, "", email, deps.Errors.DuplicateEmail, nil)
			return nil, deps.Errors.DuplicateEmail
		}
		mapped := deps.MapCredentialError(err)
		deps.MetricInc(deps.Metrics.RegistrationFailure)
		deps.EmitAudit(ctx, deps.Events.RegistrationComplete, false, "", email, mapped, nil)
		return nil, mapped
	}

	deps.MetricInc(deps.Metrics.RegistrationSuccess)

	user := newSessionUser(rec)
	if err := deps.SaveSession(ctx, deps.ClientIDFromContext(ctx), user); err != nil {
		mapped := deps.MapSessionError(err)
		deps.EmitAudit(ctx, deps.Events.RegistrationComplete, false, rec.ID, email, mapped, func() map[string]string {
			return map[string]string{"reason": "session_save", "account_created": "true"}
		})
		return nil, mapped
	}

	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.EmitAudit(ctx, deps.Events.RegistrationComplete, true, rec.ID, email, nil, nil)
	return user, nil
}
