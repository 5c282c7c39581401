package internaldefs

import (
	apartments "github.com/khaledahmed0918-sys/Apartments"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   apartments.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   apartments.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: apartments.MetricLoginSuccess, Name: "apartments_login_success_total", Help: "Successful logins."},
	{ID: apartments.MetricLoginFailure, Name: "apartments_login_failure_total", Help: "Rejected logins."},
	{ID: apartments.MetricRegistrationBegin, Name: "apartments_registration_begin_total", Help: "Registrations that reached code delivery."},
	{ID: apartments.MetricRegistrationSuccess, Name: "apartments_registration_success_total", Help: "Accounts created."},
	{ID: apartments.MetricRegistrationDuplicate, Name: "apartments_registration_duplicate_total", Help: "Registrations rejected because the email was taken."},
	{ID: apartments.MetricRegistrationFailure, Name: "apartments_registration_failure_total", Help: "Registrations rejected for any other reason."},
	{ID: apartments.MetricCodeIssued, Name: "apartments_code_issued_total", Help: "Verification codes delivered."},
	{ID: apartments.MetricCodeExpired, Name: "apartments_code_expired_total", Help: "Verification codes submitted after expiry."},
	{ID: apartments.MetricCodeMismatch, Name: "apartments_code_mismatch_total", Help: "Wrong verification codes submitted."},
	{ID: apartments.MetricDeliveryFailure, Name: "apartments_delivery_failure_total", Help: "Codes that could not be delivered."},
	{ID: apartments.MetricPasswordResetRequest, Name: "apartments_password_reset_request_total", Help: "Password reset codes issued."},
	{ID: apartments.MetricPasswordResetConfirmSuccess, Name: "apartments_password_reset_confirm_success_total", Help: "Reset codes confirmed."},
	{ID: apartments.MetricPasswordResetConfirmFailure, Name: "apartments_password_reset_confirm_failure_total", Help: "Reset codes rejected."},
	{ID: apartments.MetricPasswordResetSuccess, Name: "apartments_password_reset_success_total", Help: "Passwords replaced through reset."},
	{ID: apartments.MetricSessionCreated, Name: "apartments_session_created_total", Help: "Sessions saved."},
	{ID: apartments.MetricSessionRestored, Name: "apartments_session_restored_total", Help: "Sessions restored at startup."},
	{ID: apartments.MetricSessionMissing, Name: "apartments_session_missing_total", Help: "Restores that found no usable session."},
	{ID: apartments.MetricLogout, Name: "apartments_logout_total", Help: "Logouts."},
	{ID: apartments.MetricPendingDiscarded, Name: "apartments_pending_discarded_total", Help: "Pending codes abandoned before use."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: apartments.MetricLoginLatency, Name: "apartments_login_latency_seconds", Help: "Login latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "apartments_audit_dropped_total"

// HistogramBounds are the finite bucket upper bounds in seconds. The last
// engine bucket is +Inf and has no entry.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each engine bucket, +Inf included.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the engine bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, n := range raw {
		running += n
		out[i] = running
	}
	return out
}
