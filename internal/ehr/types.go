package ehr

import (
	"strings"
	"time"
)

// Status is the lifecycle state of an appointment as reported by the EHR.
type Status string

const (
	StatusBooked    Status = "booked"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "noshow"
)

// Referral points the patient at a specialty and optionally a named provider.
type Referral struct {
	Specialty string `json:"specialty"`
	Provider  string `json:"provider,omitempty"`
}

// Appointment is a historical or upcoming visit. Date and Time keep the EHR's
// raw strings; Timestamp derives the combined instant on demand.
type Appointment struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Provider string `json:"provider"`
	Status   Status `json:"status"`
}

// Timestamp parses Date ("MM/DD/YY") and Time ("H:MMam") into a single instant.
func (a Appointment) Timestamp() (time.Time, error) {
	return ParseAppointmentTime(a.Date, a.Time)
}

// WithProvider reports whether the appointment's provider contains name, ignoring case.
func (a Appointment) WithProvider(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	return strings.Contains(strings.ToLower(a.Provider), name)
}

// PatientRecord is the read-only view of one patient fetched from the EHR.
type PatientRecord struct {
	ID               int           `json:"id"`
	Name             string        `json:"name"`
	DateOfBirth      string        `json:"dob"`
	PrimaryCare      string        `json:"pcp"`
	ExternalRecordID string        `json:"ehrId"`
	Referrals        []Referral    `json:"referred_providers"`
	Appointments     []Appointment `json:"appointments"`
}
