package internaldefs

import (
	portalAuth "github.com/MrEthical07/portalAuth"
)

// CounterDef names one Manager counter for export.
type CounterDef struct {
	ID   portalAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one Manager histogram for export.
type HistogramDef struct {
	ID   portalAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: portalAuth.MetricLoginSuccess, Name: "portalauth_login_success_total", Help: "Successful email/password logins."},
	{ID: portalAuth.MetricLoginFailure, Name: "portalauth_login_failure_total", Help: "Failed email/password logins."},
	{ID: portalAuth.MetricStaffLoginSuccess, Name: "portalauth_staff_login_success_total", Help: "Successful staff ID logins."},
	{ID: portalAuth.MetricStaffLoginFailure, Name: "portalauth_staff_login_failure_total", Help: "Failed staff ID logins."},
	{ID: portalAuth.MetricRegisterSuccess, Name: "portalauth_register_success_total", Help: "Successful self-registrations."},
	{ID: portalAuth.MetricRegisterFailure, Name: "portalauth_register_failure_total", Help: "Failed self-registrations."},
	{ID: portalAuth.MetricGoogleSignInSuccess, Name: "portalauth_google_signin_success_total", Help: "Successful Google sign-ins."},
	{ID: portalAuth.MetricGoogleSignInFailure, Name: "portalauth_google_signin_failure_total", Help: "Failed Google sign-ins."},
	{ID: portalAuth.MetricMalformedCredential, Name: "portalauth_malformed_credential_total", Help: "Credentials rejected by the format check."},
	{ID: portalAuth.MetricStartupAuthenticated, Name: "portalauth_startup_authenticated_total", Help: "Validation passes that restored a session."},
	{ID: portalAuth.MetricStartupNoCredential, Name: "portalauth_startup_no_credential_total", Help: "Validation passes with nothing persisted."},
	{ID: portalAuth.MetricStartupRejected, Name: "portalauth_startup_rejected_total", Help: "Validation passes rejected by the authority."},
	{ID: portalAuth.MetricStartupUnreachable, Name: "portalauth_startup_unreachable_total", Help: "Validation passes that could not reach the authority."},
	{ID: portalAuth.MetricStartupCorrupt, Name: "portalauth_startup_corrupt_total", Help: "Validation passes that found unusable persisted state."},
	{ID: portalAuth.MetricRegistrationIncomplete, Name: "portalauth_registration_incomplete_total", Help: "Registration checks reporting an incomplete profile."},
	{ID: portalAuth.MetricRegistrationStatusFailure, Name: "portalauth_registration_status_failure_total", Help: "Registration checks that failed."},
	{ID: portalAuth.MetricStaleResultDiscarded, Name: "portalauth_stale_result_discarded_total", Help: "Remote results dropped because the session changed meanwhile."},
	{ID: portalAuth.MetricLogout, Name: "portalauth_logout_total", Help: "Logout operations."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: portalAuth.MetricRemoteLatency, Name: "portalauth_remote_latency_seconds", Help: "Latency of calls to the remote authority."},
}

// HistogramBounds are the bucket upper bounds in seconds, as exposition
// labels.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundValues are [HistogramBounds] without +Inf, as numbers.
var HistogramBoundValues = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix is the instrument-name-safe form of each bound.
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

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
