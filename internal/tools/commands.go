package tools

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Tool names as advertised to the model.
const (
	NameConfirmIdentity = "confirm_name_dob"
	NameSearchProviders = "search_available_providers"
	NameBookAppointment = "book_appointment"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Command is one decoded, validated tool invocation. The set of
// implementations is closed: ConfirmIdentity, SearchProviders and
// BookAppointment.
type Command interface {
	ToolName() string
	sealed()
}

// ConfirmIdentity checks the patient's name and date of birth.
type ConfirmIdentity struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	DOB       string `json:"dob" validate:"required"`
}

// SearchProviders looks up provider availability. Every field is optional.
type SearchProviders struct {
	AppointmentType string `json:"appointment_type" validate:"omitempty,oneof=NEW EXISTING"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Location        string `json:"location"`
	Specialty       string `json:"specialty"`
	Timestamp       string `json:"timestamp" validate:"omitempty,datetime=01/02/2006 15:04:05"`
}

// BookAppointment books a visit with a named provider.
type BookAppointment struct {
	ProviderFirstName string `json:"provider_first_name" validate:"required"`
	ProviderLastName  string `json:"provider_last_name" validate:"required"`
	Location          string `json:"location" validate:"required"`
	AppointmentType   string `json:"appointment_type" validate:"required,oneof=NEW EXISTING"`
	Timestamp         string `json:"timestamp" validate:"required,datetime=01/02/2006 15:04:05"`
}

func (ConfirmIdentity) ToolName() string { return NameConfirmIdentity }
func (SearchProviders) ToolName() string { return NameSearchProviders }
func (BookAppointment) ToolName() string { return NameBookAppointment }

func (ConfirmIdentity) sealed() {}
func (SearchProviders) sealed() {}
func (BookAppointment) sealed() {}

func (c *ConfirmIdentity) normalize() {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.DOB = strings.TrimSpace(c.DOB)
}

func (c *SearchProviders) normalize() {
	c.AppointmentType = strings.ToUpper(strings.TrimSpace(c.AppointmentType))
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Location = strings.TrimSpace(c.Location)
	c.Specialty = strings.TrimSpace(c.Specialty)
	c.Timestamp = strings.TrimSpace(c.Timestamp)
}

func (c *BookAppointment) normalize() {
	c.ProviderFirstName = strings.TrimSpace(c.ProviderFirstName)
	c.ProviderLastName = strings.TrimSpace(c.ProviderLastName)
	c.Location = strings.TrimSpace(c.Location)
	c.AppointmentType = strings.ToUpper(strings.TrimSpace(c.AppointmentType))
	c.Timestamp = strings.TrimSpace(c.Timestamp)
}
