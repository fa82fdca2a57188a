package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/care-coordinator/internal/directory"
	"github.com/wolfman30/care-coordinator/internal/ehr"
	"github.com/wolfman30/care-coordinator/pkg/logging"
)

// PatientSource fetches a patient's current record.
type PatientSource interface {
	GetPatient(ctx context.Context, id string) (*ehr.PatientRecord, error)
}

// Engine evaluates availability and eligibility rules. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	store    directory.Store
	patients PatientSource
	logger   *logging.Logger
}

// NewEngine wires the engine to its read-only collaborators.
func NewEngine(store directory.Store, patients PatientSource, logger *logging.Logger) *Engine {
	if store == nil {
		panic("scheduling: directory store required")
	}
	if patients == nil {
		panic("scheduling: patient source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{store: store, patients: patients, logger: logger}
}

// SearchAvailableProviders returns one entry per provider/department pair
// matching c. The day and hour windows apply only when c.Timestamp is set.
func (e *Engine) SearchAvailableProviders(ctx context.Context, c Criteria) ([]ProviderAvailability, error) {
	q := directory.Query{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Specialty: c.Specialty,
		Location:  c.Location,
	}
	if c.Timestamp != nil {
		start := fractionalHour(*c.Timestamp)
		q.Window = &directory.Window{
			Weekday:   mondayWeekday(*c.Timestamp),
			StartHour: start,
			EndHour:   start + c.AppointmentType.Normalize().Duration().Hours(),
		}
	}

	listings, err := e.store.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("scheduling: search providers: %w", err)
	}

	out := make([]ProviderAvailability, 0, len(listings))
	for _, l := range listings {
		out = append(out, ProviderAvailability{
			ProviderID:    l.Provider.ID,
			FirstName:     l.Provider.FirstName,
			LastName:      l.Provider.LastName,
			Specialty:     l.Provider.Specialty,
			Certification: l.Provider.Certification,
			Department: DepartmentInfo{
				Name:        l.Department.Name,
				PhoneNumber: l.Department.PhoneNumber,
				Address:     l.Department.Address,
				Hours:       formatHours(l.Department.StartHour, l.Department.EndHour),
				Days:        formatDays(l.Department.StartDay, l.Department.EndDay),
			},
		})
	}
	return out, nil
}

// BookAppointment checks availability and eligibility for req. Rule
// violations come back as *RejectionError; transport and record format
// problems as ordinary errors.
func (e *Engine) BookAppointment(ctx context.Context, patientID string, req BookingRequest) (Confirmation, error) {
	apptType := req.AppointmentType.Normalize()
	ts := req.Timestamp

	matches, err := e.SearchAvailableProviders(ctx, Criteria{
		AppointmentType: apptType,
		FirstName:       req.ProviderFirstName,
		LastName:        req.ProviderLastName,
		Location:        req.Location,
		Timestamp:       &ts,
	})
	if err != nil {
		return Confirmation{}, err
	}
	if len(matches) == 0 {
		return Confirmation{}, e.reject(ctx, RejectionNotAvailable, msgNotAvailable)
	}

	patient, err := e.patients.GetPatient(ctx, patientID)
	if err != nil {
		return Confirmation{}, fmt.Errorf("scheduling: load patient: %w", err)
	}

	cutoff := ts.Add(-EligibilityWindow)
	providerName := strings.TrimSpace(req.ProviderFirstName + " " + req.ProviderLastName)

	switch apptType {
	case AppointmentExisting:
		seen, err := anyRecentAppointment(patient.Appointments, cutoff, func(a ehr.Appointment) bool {
			return a.WithProvider(providerName)
		})
		if err != nil {
			return Confirmation{}, err
		}
		if !seen {
			return Confirmation{}, e.reject(ctx, RejectionEligibility, msgMustUseNew)
		}
	case AppointmentNew:
		seen, err := anyRecentAppointment(patient.Appointments, cutoff, nil)
		if err != nil {
			return Confirmation{}, err
		}
		if seen {
			return Confirmation{}, e.reject(ctx, RejectionEligibility, msgMustUseExisting)
		}
	default:
		return Confirmation{}, fmt.Errorf("scheduling: unsupported appointment type %q", req.AppointmentType)
	}

	return Confirmation{
		Message:         msgScheduled,
		Provider:        providerName,
		Location:        matches[0].Department.Name,
		AppointmentType: apptType,
		Timestamp:       ts.Format(RequestLayout),
	}, nil
}

// ConfirmIdentity checks "first last" against the record's name, ignoring
// case, and dob against the record exactly.
func (e *Engine) ConfirmIdentity(ctx context.Context, patientID, firstName, lastName, dob string) (*ehr.PatientRecord, error) {
	patient, err := e.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: load patient: %w", err)
	}
	full := strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName)
	if !strings.EqualFold(strings.TrimSpace(patient.Name), full) || patient.DateOfBirth != strings.TrimSpace(dob) {
		return nil, e.reject(ctx, RejectionIdentityMismatch, msgIdentityMismatch)
	}
	return patient, nil
}

func (e *Engine) reject(ctx context.Context, kind RejectionKind, msg string) error {
	e.logger.DebugContext(ctx, "scheduling request rejected", "kind", string(kind))
	return &RejectionError{Kind: kind, Message: msg}
}

// anyRecentAppointment reports whether an appointment accepted by keep falls
// strictly after cutoff. A nil keep accepts every appointment.
func anyRecentAppointment(appts []ehr.Appointment, cutoff time.Time, keep func(ehr.Appointment) bool) (bool, error) {
	for _, a := range appts {
		if keep != nil && !keep(a) {
			continue
		}
		at, err := a.Timestamp()
		if err != nil {
			return false, fmt.Errorf("scheduling: patient appointment: %w", err)
		}
		if at.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}
