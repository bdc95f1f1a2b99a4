package enums

import "fmt"

// SubmissionStatus records how an order submission attempt ended.
type SubmissionStatus string

const (
	// SubmissionStatusAccepted means the order API created the order.
	SubmissionStatusAccepted SubmissionStatus = "accepted"
	// SubmissionStatusRejected means the order API answered with a non-success status.
	SubmissionStatusRejected SubmissionStatus = "rejected"
	// SubmissionStatusFailed means the order API could not be reached.
	SubmissionStatusFailed SubmissionStatus = "failed"
)

var validSubmissionStatuses = []SubmissionStatus{
	SubmissionStatusAccepted,
	SubmissionStatusRejected,
	SubmissionStatusFailed,
}

// String implements fmt.Stringer.
func (s SubmissionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SubmissionStatus.
func (s SubmissionStatus) IsValid() bool {
	for _, candidate := range validSubmissionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubmissionStatus converts raw input into a SubmissionStatus.
func ParseSubmissionStatus(value string) (SubmissionStatus, error) {
	for _, candidate := range validSubmissionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid submission status %q", value)
}
