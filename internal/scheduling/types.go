package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// EligibilityWindow is the lookback used to decide between NEW and EXISTING
// visits. It is a plain day count with no leap-year adjustment.
const EligibilityWindow = 1825 * 24 * time.Hour

// RequestLayout is the timestamp layout accepted from callers (MM/DD/YYYY HH:MM:SS).
const RequestLayout = "01/02/2006 15:04:05"

// AppointmentType selects the visit length and the eligibility rule.
type AppointmentType string

const (
	AppointmentNew      AppointmentType = "NEW"
	AppointmentExisting AppointmentType = "EXISTING"
)

// Duration is 30 minutes for NEW visits and 15 for EXISTING ones. Unknown
// types are treated as NEW.
func (t AppointmentType) Duration() time.Duration {
	if t == AppointmentExisting {
		return 15 * time.Minute
	}
	return 30 * time.Minute
}

// Normalize upper-cases t and defaults blanks to NEW.
func (t AppointmentType) Normalize() AppointmentType {
	v := AppointmentType(strings.ToUpper(strings.TrimSpace(string(t))))
	if v == "" {
		return AppointmentNew
	}
	return v
}

// FormatError reports a request timestamp that does not match RequestLayout.
type FormatError struct {
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("scheduling: timestamp %q does not match MM/DD/YYYY HH:MM:SS", e.Value)
}

// ParseRequestTime parses a caller-supplied timestamp strictly.
func ParseRequestTime(value string) (time.Time, error) {
	t, err := time.Parse(RequestLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, &FormatError{Value: value}
	}
	return t, nil
}

// Criteria narrows an availability search. Zero-valued text fields are
// ignored; a nil Timestamp skips the day and hour windows.
type Criteria struct {
	AppointmentType AppointmentType
	FirstName       string
	LastName        string
	Location        string
	Specialty       string
	Timestamp       *time.Time
}

// ProviderAvailability is one provider/department pair returned by a search.
type ProviderAvailability struct {
	ProviderID    int            `json:"provider_id"`
	FirstName     string         `json:"first_name"`
	LastName      string         `json:"last_name"`
	Specialty     string         `json:"specialty"`
	Certification string         `json:"certification"`
	Department    DepartmentInfo `json:"department"`
}

// DepartmentInfo is the human-readable contact and hours block of a listing.
type DepartmentInfo struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	Hours       string `json:"hours"`
	Days        string `json:"days"`
}

// BookingRequest asks for a visit with a named provider at a location.
type BookingRequest struct {
	ProviderFirstName string
	ProviderLastName  string
	Location          string
	AppointmentType   AppointmentType
	Timestamp         time.Time
}

// Confirmation describes an accepted booking. Nothing is written back to the
// EHR or the directory.
type Confirmation struct {
	Message         string          `json:"message"`
	Provider        string          `json:"provider"`
	Location        string          `json:"location"`
	AppointmentType AppointmentType `json:"appointment_type"`
	Timestamp       string          `json:"timestamp"`
}

// RejectionKind classifies an expected business-rule rejection.
type RejectionKind string

const (
	RejectionNotAvailable     RejectionKind = "not_available"
	RejectionEligibility      RejectionKind = "eligibility"
	RejectionIdentityMismatch RejectionKind = "identity_mismatch"
)

// RejectionError is a recoverable rejection meant to be read back to the
// patient. Its Error text is the user-facing explanation.
type RejectionError struct {
	Kind    RejectionKind
	Message string
}

func (e *RejectionError) Error() string {
	return e.Message
}

var (
	msgNotAvailable     = "Provider not found or not available at that time. Try again."
	msgMustUseNew       = "Patient has not seen provider in last 5 years. You must schedule a NEW appointment."
	msgMustUseExisting  = "Patient has had an appointment in the last 5 years. You must schedule an EXISTING appointment."
	msgIdentityMismatch = "Patient not found. Make sure you entered the correct name and date of birth."
	msgScheduled        = "Appointment scheduled."
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// mondayWeekday maps Go's Sunday-first weekday onto the directory's Monday = 0.
func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// fractionalHour expresses the clock time of t in hours, e.g. 9:15 is 9.25.
func fractionalHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

func formatDays(start, end int) string {
	name := func(d int) string {
		if d >= 0 && d < len(weekdayNames) {
			return weekdayNames[d]
		}
		return fmt.Sprintf("day %d", d)
	}
	if start == end {
		return name(start)
	}
	return name(start) + "-" + name(end)
}

func formatHours(start, end int) string {
	return fmt.Sprintf("%d:00-%d:00", start, end)
}
