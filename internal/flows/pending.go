package flows

import (
	"context"
	"errors"
	"time"

	"github.com/khaledahmed0918-sys/Apartments/internal/otp"
	"github.com/khaledahmed0918-sys/Apartments/internal/stores"
)

// Errors carries the engine sentinels a flow may return.
type Errors struct {
	EngineNotReady     error
	Validation         error
	InvalidCredentials error
	DuplicateEmail     error
	NotFound           error
	CodeExpired        error
	CodeMismatch       error
}

// CodeMetrics carries metric ids shared by the code-issuing flows.
type CodeMetrics struct {
	CodeIssued      int
	CodeExpired     int
	CodeMismatch    int
	DeliveryFailure int
}

// Issued describes a stored pending record. It never carries the code.
type Issued struct {
	ID        string
	ExpiresAt time.Time
}

// PendingDeps issues, stores, delivers and checks verification codes.
type PendingDeps struct {
	TTL time.Duration

	NewPendingID func() (string, error)
	IssueCode    func() (otp.Code, error)
	VerifyCode   func(expiresAt time.Time, hash [32]byte, submitted string) otp.Outcome

	SavePending    func(context.Context, string, *stores.PendingRecord, time.Duration) error
	GetPending     func(context.Context, string) (*stores.PendingRecord, error)
	ConsumePending func(context.Context, string, func(*stores.PendingRecord) error) (*stores.PendingRecord, error)
	DeletePending  func(context.Context, string) error

	Deliver func(ctx context.Context, email, code, purpose string, expiresAt time.Time) error

	// MapPendingError turns store failures into engine errors. A missing
	// record must map to the expired error.
	MapPendingError  func(error) error
	MapDeliveryError func(error) error

	Metrics CodeMetrics
}

func (d PendingDeps) ready() bool {
	return d.NewPendingID != nil &&
		d.IssueCode != nil &&
		d.VerifyCode != nil &&
		d.SavePending != nil &&
		d.GetPending != nil &&
		d.ConsumePending != nil &&
		d.DeletePending != nil &&
		d.Deliver != nil
}

func normalizePendingDeps(d *PendingDeps) {
	if d.MapPendingError == nil {
		d.MapPendingError = func(err error) error { return err }
	}
	if d.MapDeliveryError == nil {
		d.MapDeliveryError = func(err error) error { return err }
	}
}

func purposeLabel(p stores.Purpose) string {
	switch p {
	case stores.PurposeRegistration:
		return "registration"
	case stores.PurposePasswordReset:
		return "password-reset"
	default:
		return "unknown"
	}
}

// issuePending stores record under a fresh id and hands the code to the
// deliverer. A record whose code could not be delivered is removed.
func issuePending(ctx context.Context, record stores.PendingRecord, deps PendingDeps, metricInc func(int)) (Issued, error) {
	code, err := deps.IssueCode()
	if err != nil {
		return Issued{}, err
	}
	id, err := deps.NewPendingID()
	if err != nil {
		return Issued{}, err
	}

	record.CodeHash = code.Hash
	record.ExpiresAt = code.ExpiresAt.UnixMilli()

	if err := deps.SavePending(ctx, id, &record, deps.TTL); err != nil {
		return Issued{}, deps.MapPendingError(err)
	}

	if err := deps.Deliver(ctx, record.Email, code.Value, purposeLabel(record.Purpose), code.ExpiresAt); err != nil {
		metricInc(deps.Metrics.DeliveryFailure)
		if delErr := deps.DeletePending(context.WithoutCancel(ctx), id); delErr != nil {
			return Issued{}, errors.Join(deps.MapDeliveryError(err), deps.MapPendingError(delErr))
		}
		return Issued{}, deps.MapDeliveryError(err)
	}

	metricInc(deps.Metrics.CodeIssued)
	return Issued{ID: id, ExpiresAt: code.ExpiresAt}, nil
}

// checkPending decides whether submitted unlocks record for purpose and
// email. A record for another purpose or address reads as a wrong code.
func checkPending(record *stores.PendingRecord, purpose stores.Purpose, email, submitted string, deps PendingDeps, errs Errors) error {
	if record.Purpose != purpose || record.Email != email {
		return errs.CodeMismatch
	}
	switch deps.VerifyCode(time.UnixMilli(record.ExpiresAt), record.CodeHash, submitted) {
	case otp.Valid:
		return nil
	case otp.Expired:
		return errs.CodeExpired
	default:
		return errs.CodeMismatch
	}
}

func countCodeFailure(err error, deps PendingDeps, errs Errors, metricInc func(int)) {
	switch {
	case errors.Is(err, errs.CodeExpired):
		metricInc(deps.Metrics.CodeExpired)
	case errors.Is(err, errs.CodeMismatch):
		metricInc(deps.Metrics.CodeMismatch)
	}
}

// verifyPending reads the record and checks submitted without consuming it.
func verifyPending(ctx context.Context, id string, purpose stores.Purpose, email, submitted string, deps PendingDeps, errs Errors) (*stores.PendingRecord, error) {
	record, err := deps.GetPending(ctx, id)
	if err != nil {
		return nil, deps.MapPendingError(err)
	}
	if err := checkPending(record, purpose, email, submitted, deps, errs); err != nil {
		return nil, err
	}
	return record, nil
}

// consumePending checks submitted and deletes the record in one step. Only
// a valid code removes it, so a typo can be corrected.
func consumePending(ctx context.Context, id string, purpose stores.Purpose, email, submitted string, deps PendingDeps, errs Errors) (*stores.PendingRecord, error) {
	record, err := deps.ConsumePending(ctx, id, func(r *stores.PendingRecord) error {
		return checkPending(r, purpose, email, submitted, deps, errs)
	})
	if err != nil {
		if errors.Is(err, errs.CodeExpired) || errors.Is(err, errs.CodeMismatch) {
			return nil, err
		}
		return nil, deps.MapPendingError(err)
	}
	return record, nil
}

// AuditFunc records one audit event.
type AuditFunc func(ctx context.Context, eventType string, success bool, userID, email string, err error, metadata func() map[string]string)

func normalizeCommon(metricInc *func(int), emit *AuditFunc, warn *func(context.Context, string, ...any), clientID *func(context.Context) string) {
	if *metricInc == nil {
		*metricInc = func(int) {}
	}
	if *emit == nil {
		*emit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if warn != nil && *warn == nil {
		*warn = func(context.Context, string, ...any) {}
	}
	if clientID != nil && *clientID == nil {
		*clientID = func(context.Context) string { return "" }
	}
}
