package tools

// Parameter describes one argument in the manifest shown to the model.
type Parameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// Definition is one entry of the tool manifest.
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
}

// JSONSchema renders the parameters as a JSON Schema object, the shape every
// model provider accepts for function parameters.
func (d Definition) JSONSchema() map[string]any {
	props := make(map[string]any, len(d.Parameters))
	required := make([]string, 0, len(d.Parameters))
	for _, p := range d.Parameters {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

var appointmentTypes = []string{"NEW", "EXISTING"}

// Definitions returns the full manifest in a stable order.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        NameConfirmIdentity,
			Description: "Confirm the name and date of birth of the patient.",
			Parameters: []Parameter{
				{Name: "first_name", Type: "string", Required: true, Description: "First name of the patient. Case insensitive."},
				{Name: "last_name", Type: "string", Required: true, Description: "Last name of the patient. Case insensitive."},
				{Name: "dob", Type: "string", Required: true, Description: "Date of birth of the patient. Format: MM/DD/YYYY."},
			},
		},
		{
			Name:        NameSearchProviders,
			Description: "Search for available providers and their departments.",
			Parameters: []Parameter{
				{Name: "appointment_type", Type: "string", Enum: appointmentTypes, Description: "Appointment type. Optional. Either NEW or EXISTING. Defaults to NEW."},
				{Name: "first_name", Type: "string", Description: "First name of the provider. Optional. Case insensitive."},
				{Name: "last_name", Type: "string", Description: "Last name of the provider. Optional. Case insensitive."},
				{Name: "location", Type: "string", Description: "Department name. Optional. Case insensitive."},
				{Name: "specialty", Type: "string", Description: "Provider's specialty. Optional. Case insensitive."},
				{Name: "timestamp", Type: "string", Description: "Desired appointment timestamp. Optional. Format: MM/DD/YYYY HH:MM:SS."},
			},
		},
		{
			Name:        NameBookAppointment,
			Description: "Book an appointment.",
			Parameters: []Parameter{
				{Name: "provider_first_name", Type: "string", Required: true, Description: "First name of the provider. Case insensitive."},
				{Name: "provider_last_name", Type: "string", Required: true, Description: "Last name of the provider. Case insensitive."},
				{Name: "location", Type: "string", Required: true, Description: "Department name."},
				{Name: "appointment_type", Type: "string", Required: true, Enum: appointmentTypes, Description: "Appointment type. Either NEW or EXISTING."},
				{Name: "timestamp", Type: "string", Required: true, Description: "Desired appointment timestamp. Must use the format: MM/DD/YYYY HH:MM:SS."},
			},
		},
	}
}
