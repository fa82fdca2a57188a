package directory

import (
	"context"
	"strings"
)

// Provider is a clinician who can be booked.
type Provider struct {
	ID            int    `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Specialty     string `json:"specialty"`
	Certification string `json:"certification"`
}

// Department is one location where a provider sees patients. Days use
// 0 = Monday; both the day and hour windows are inclusive.
type Department struct {
	ID          int    `json:"id"`
	ProviderID  int    `json:"provider_id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	StartDay    int    `json:"start_day"`
	EndDay      int    `json:"end_day"`
	StartHour   int    `json:"start_hour"`
	EndHour     int    `json:"end_hour"`
}

// Listing pairs a provider with one of their departments.
type Listing struct {
	Provider   Provider
	Department Department
}

// Window restricts a search to departments open for the whole span
// [StartHour, EndHour] on Weekday. Hours are fractional (9.25 = 9:15).
type Window struct {
	Weekday   int
	StartHour float64
	EndHour   float64
}

// Query filters listings. Empty text fields are ignored; set fields match
// case-insensitively and exactly. Location matches the department name.
type Query struct {
	FirstName string
	LastName  string
	Specialty string
	Location  string
	Window    *Window
}

// Matches applies the query to a single listing. Stores that filter in
// process use it so every backend agrees on the rules.
func (q Query) Matches(l Listing) bool {
	if !textMatches(q.FirstName, l.Provider.FirstName) ||
		!textMatches(q.LastName, l.Provider.LastName) ||
		!textMatches(q.Specialty, l.Provider.Specialty) ||
		!textMatches(q.Location, l.Department.Name) {
		return false
	}
	if w := q.Window; w != nil {
		d := l.Department
		if w.Weekday < d.StartDay || w.Weekday > d.EndDay {
			return false
		}
		if w.StartHour < float64(d.StartHour) || w.EndHour > float64(d.EndHour) {
			return false
		}
	}
	return true
}

func textMatches(filter, value string) bool {
	filter = strings.TrimSpace(filter)
	return filter == "" || strings.EqualFold(filter, strings.TrimSpace(value))
}

// Store is the read-only provider/department directory.
type Store interface {
	Search(ctx context.Context, q Query) ([]Listing, error)
}
