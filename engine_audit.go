package apartments

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventRegistrationBegin     = "registration_begin"
	auditEventRegistrationComplete  = "registration_complete"
	auditEventRegistrationDuplicate = "registration_duplicate"
	auditEventPasswordResetRequest  = "password_reset_request"
	auditEventPasswordResetConfirm  = "password_reset_confirm"
	auditEventPasswordResetFinalize = "password_reset_finalize"
	auditEventLogout                = "logout"
	auditEventSessionRestore        = "session_restore"
	auditEventPendingDiscarded      = "pending_discarded"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrDuplicate          AuditErrorCode = "duplicate_email"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrCodeExpired        AuditErrorCode = "code_expired"
	auditErrCodeMismatch       AuditErrorCode = "code_mismatch"
	auditErrServerUnreachable  AuditErrorCode = "server_unreachable"
	auditErrValidation         AuditErrorCode = "validation"
	auditErrFlowState          AuditErrorCode = "flow_state"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		ClientID:  ClientIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrDuplicateEmail):
		return auditErrDuplicate
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrCodeExpired):
		return auditErrCodeExpired
	case errors.Is(err, ErrCodeMismatch):
		return auditErrCodeMismatch
	case errors.Is(err, ErrServerUnreachable):
		return auditErrServerUnreachable
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrFlowState):
		return auditErrFlowState
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
