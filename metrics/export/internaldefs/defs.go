package internaldefs

import (
	"github.com/MrEthical07/chatgate"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   chatgate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   chatgate.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for events the audit dispatcher discarded.
const AuditDroppedName = "chatgate_audit_dropped_total"

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: chatgate.MetricRegisterSuccess, Name: "chatgate_register_success_total", Help: "Completed registrations."},
	{ID: chatgate.MetricRegisterDuplicate, Name: "chatgate_register_duplicate_total", Help: "Registrations rejected because the email exists."},
	{ID: chatgate.MetricRegisterWeakPassword, Name: "chatgate_register_weak_password_total", Help: "Registrations rejected by the passphrase policy."},
	{ID: chatgate.MetricRegisterRateLimited, Name: "chatgate_register_rate_limited_total", Help: "Rate-limited registrations."},
	{ID: chatgate.MetricLoginChallengeIssued, Name: "chatgate_login_challenge_issued_total", Help: "Logins that mailed a one-time code."},
	{ID: chatgate.MetricLoginFailure, Name: "chatgate_login_failure_total", Help: "Logins rejected for unknown email or wrong passphrase."},
	{ID: chatgate.MetricLoginRateLimited, Name: "chatgate_login_rate_limited_total", Help: "Rate-limited logins."},
	{ID: chatgate.MetricLoginUnverified, Name: "chatgate_login_unverified_total", Help: "Logins rejected for an unverified email."},
	{ID: chatgate.MetricChallengeSuccess, Name: "chatgate_challenge_success_total", Help: "Accepted one-time codes."},
	{ID: chatgate.MetricChallengeMismatch, Name: "chatgate_challenge_mismatch_total", Help: "Rejected one-time codes."},
	{ID: chatgate.MetricChallengeLocked, Name: "chatgate_challenge_locked_total", Help: "Challenges discarded after too many wrong codes."},
	{ID: chatgate.MetricChallengeMissing, Name: "chatgate_challenge_missing_total", Help: "Code submissions without a pending challenge."},
	{ID: chatgate.MetricSessionCreated, Name: "chatgate_session_created_total", Help: "Created sessions."},
	{ID: chatgate.MetricSessionValidated, Name: "chatgate_session_validated_total", Help: "Successful session validations."},
	{ID: chatgate.MetricSessionExpired, Name: "chatgate_session_expired_total", Help: "Validations of unknown, revoked, or idle sessions."},
	{ID: chatgate.MetricLogout, Name: "chatgate_logout_total", Help: "Single-session logouts."},
	{ID: chatgate.MetricLogoutAll, Name: "chatgate_logout_all_total", Help: "Logout-all operations."},
	{ID: chatgate.MetricEmailVerificationSent, Name: "chatgate_email_verification_sent_total", Help: "Verification links mailed."},
	{ID: chatgate.MetricEmailVerificationSuccess, Name: "chatgate_email_verification_success_total", Help: "Confirmed email addresses."},
	{ID: chatgate.MetricEmailVerificationFailure, Name: "chatgate_email_verification_failure_total", Help: "Rejected verification links."},
	{ID: chatgate.MetricPasswordChangeSuccess, Name: "chatgate_password_change_success_total", Help: "Completed passphrase changes."},
	{ID: chatgate.MetricPasswordChangeFailure, Name: "chatgate_password_change_failure_total", Help: "Rejected passphrase changes."},
	{ID: chatgate.MetricMailFailure, Name: "chatgate_mail_failure_total", Help: "Failed mail deliveries."},
	{ID: chatgate.MetricRateLimitHit, Name: "chatgate_rate_limit_hit_total", Help: "Limiter checks that denied a request."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: chatgate.MetricValidateLatency, Name: "chatgate_validate_latency_seconds", Help: "Session validation latency."},
}

// HistogramBounds are the Prometheus le labels matching the engine buckets.
var HistogramBounds = [chatgate.HistogramBucketCount]string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are instrument-name-safe forms of HistogramBounds.
var HistogramBoundSuffix = [chatgate.HistogramBucketCount]string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// Buckets is one histogram's bucket counts.
type Buckets = [chatgate.HistogramBucketCount]uint64

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) Buckets {
	var out Buckets
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw Buckets) Buckets {
	var out Buckets
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
