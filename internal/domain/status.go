package domain

import (
	"fmt"
	"strings"
)

// LinkStatus is the lifecycle status of a dispatch record.
// Dispatch-time values are assigned once when the click is handled; completion-time
// values are assigned once when the survey platform reports the respondent's outcome.
type LinkStatus string

const (
	// Dispatch-time, accept path
	StatusSentToLive LinkStatus = "sent_to_live"
	StatusSentToTest LinkStatus = "sent_to_test"

	// Dispatch-time, reject path
	StatusDuplicateIP           LinkStatus = "duplicate_ip"
	StatusGeoIPMismatch         LinkStatus = "geo_ip_mismatch"
	StatusDuplicateSupplierUser LinkStatus = "duplicate_supplier_user"

	// Completion-time. StatusOverQuota is also recorded at dispatch when the
	// mapping's quota is exhausted.
	StatusComplete         LinkStatus = "complete"
	StatusTerminate        LinkStatus = "terminate"
	StatusQualityTerminate LinkStatus = "quality_terminate"
	StatusOverQuota        LinkStatus = "over_quota"
	StatusSurveyClosed     LinkStatus = "survey_closed"
)

// AllStatuses lists every known status in report column order.
var AllStatuses = []LinkStatus{
	StatusSentToLive,
	StatusSentToTest,
	StatusDuplicateIP,
	StatusGeoIPMismatch,
	StatusDuplicateSupplierUser,
	StatusOverQuota,
	StatusComplete,
	StatusTerminate,
	StatusQualityTerminate,
	StatusSurveyClosed,
}

// IsKnown reports whether s is one of AllStatuses.
func (s LinkStatus) IsKnown() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsActive reports whether a record in this status is still waiting for a completion signal.
func (s LinkStatus) IsActive() bool {
	return s == StatusSentToLive || s == StatusSentToTest
}

// Label returns the human readable column name used in exports.
func (s LinkStatus) Label() string {
	switch s {
	case StatusSentToLive:
		return "Sent To Live"
	case StatusSentToTest:
		return "Sent To Test"
	case StatusDuplicateIP:
		return "Duplicate IP"
	case StatusGeoIPMismatch:
		return "GEO IP Mismatch"
	case StatusDuplicateSupplierUser:
		return "Duplicate Supplier User"
	case StatusOverQuota:
		return "Over Quota"
	case StatusComplete:
		return "Complete"
	case StatusTerminate:
		return "Terminate"
	case StatusQualityTerminate:
		return "Quality Terminate"
	case StatusSurveyClosed:
		return "Survey Closed"
	default:
		return "Unknown"
	}
}

// EndReason is the outcome reported by the survey platform when a respondent leaves the survey.
type EndReason struct {
	Status    LinkStatus
	ShortCode string
}

var endReasons = []struct {
	name   string
	code   string
	reason EndReason
}{
	{"complete", "10", EndReason{Status: StatusComplete, ShortCode: "c"}},
	{"terminate", "20", EndReason{Status: StatusTerminate, ShortCode: "f"}},
	{"quality_terminate", "30", EndReason{Status: StatusQualityTerminate, ShortCode: "t"}},
	{"over_quota", "40", EndReason{Status: StatusOverQuota, ShortCode: "q"}},
	{"survey_closed", "70", EndReason{Status: StatusSurveyClosed, ShortCode: "sc"}},
}

// ParseEndReason accepts either the reason name ("complete") or the numeric
// platform code ("10") and returns the matching EndReason.
func ParseEndReason(raw string) (EndReason, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return EndReason{}, fmt.Errorf("%w: end reason is required", ErrInvalidInput)
	}
	for _, r := range endReasons {
		if value == r.name || value == r.code {
			return r.reason, nil
		}
	}
	return EndReason{}, fmt.Errorf("%w: %q", ErrInvalidReason, raw)
}

// FailureShortCode is the thank-you page code used for dispatch-time rejections.
func FailureShortCode(status LinkStatus) string {
	if status == StatusOverQuota {
		return "q"
	}
	return "f"
}
