package ehr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	appointmentDateRE = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{2})$`)
	appointmentTimeRE = regexp.MustCompile(`^(\d{1,2}):(\d{2})(am|pm)$`)
)

// FormatError reports an appointment date or time that does not match the
// strict EHR layout.
type FormatError struct {
	Field  string
	Value  string
	Layout string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("ehr: invalid appointment %s %q (want %s)", e.Field, e.Value, e.Layout)
}

// ParseAppointmentTime combines an EHR date ("MM/DD/YY", year 20YY) and time
// ("H:MMam" or "H:MMpm", any case) into a UTC instant. 12am is hour 0 and 12pm
// is hour 12.
func ParseAppointmentTime(date, clock string) (time.Time, error) {
	year, month, day, err := parseAppointmentDate(date)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := parseAppointmentClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), nil
}

// FormatAppointmentTime renders t back into the EHR date and time strings.
func FormatAppointmentTime(t time.Time) (date, clock string) {
	return t.Format("01/02/06"), t.Format("3:04pm")
}

func parseAppointmentDate(value string) (year, month, day int, err error) {
	bad := &FormatError{Field: "date", Value: value, Layout: "MM/DD/YY"}

	m := appointmentDateRE.FindStringSubmatch(value)
	if m == nil {
		return 0, 0, 0, bad
	}
	month, _ = strconv.Atoi(m[1])
	day, _ = strconv.Atoi(m[2])
	yy, _ := strconv.Atoi(m[3])
	year = 2000 + yy

	if month < 1 || month > 12 || day < 1 {
		return 0, 0, 0, bad
	}
	// time.Date normalizes overflow (02/30 -> 03/02); reject instead.
	if t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC); t.Day() != day {
		return 0, 0, 0, bad
	}
	return year, month, day, nil
}

func parseAppointmentClock(value string) (hour, minute int, err error) {
	bad := &FormatError{Field: "time", Value: value, Layout: "H:MMam or H:MMpm"}

	m := appointmentTimeRE.FindStringSubmatch(strings.ToLower(value))
	if m == nil {
		return 0, 0, bad
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, 0, bad
	}

	switch {
	case m[3] == "am" && hour == 12:
		hour = 0
	case m[3] == "pm" && hour != 12:
		hour += 12
	}
	return hour, minute, nil
}
