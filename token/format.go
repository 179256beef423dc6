package token

import "strings"

const (
	// ReasonEmpty is reported for an empty or whitespace-only credential.
	ReasonEmpty = "empty"
	// ReasonSegmentCount is reported when the credential does not split into
	// exactly three non-empty dot-separated segments.
	ReasonSegmentCount = "wrong segment count"
)

const segmentCount = 3

// Result is the outcome of [ValidateFormat]. Reason is empty when Valid.
type Result struct {
	Valid  bool
	Reason string
}

// ValidateFormat reports whether raw is structurally a three-segment signed
// token (header.payload.signature). Segment contents are not inspected.
func ValidateFormat(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{Reason: ReasonEmpty}
	}

	parts := strings.Split(raw, ".")
	if len(parts) != segmentCount {
		return Result{Reason: ReasonSegmentCount}
	}
	for _, p := range parts {
		if p == "" {
			return Result{Reason: ReasonSegmentCount}
		}
	}

	return Result{Valid: true}
}

// WellFormed is shorthand for ValidateFormat(raw).Valid.
func WellFormed(raw string) bool {
	return ValidateFormat(raw).Valid
}
