package directory

import (
	"context"
	"sort"
)

// Directory is a full snapshot of providers and their departments.
type Directory struct {
	Providers   []Provider   `json:"providers"`
	Departments []Department `json:"departments"`
}

// MemoryStore serves a fixed directory from memory. It is immutable after
// construction and safe for concurrent use.
type MemoryStore struct {
	listings []Listing
}

// NewMemoryStore joins providers to departments. Departments whose provider
// is missing are dropped, matching the inner join of the SQL store.
func NewMemoryStore(dir Directory) *MemoryStore {
	byID := make(map[int]Provider, len(dir.Providers))
	for _, p := range dir.Providers {
		byID[p.ID] = p
	}
	listings := make([]Listing, 0, len(dir.Departments))
	for _, d := range dir.Departments {
		p, ok := byID[d.ProviderID]
		if !ok {
			continue
		}
		listings = append(listings, Listing{Provider: p, Department: d})
	}
	sort.SliceStable(listings, func(i, j int) bool {
		if listings[i].Provider.ID != listings[j].Provider.ID {
			return listings[i].Provider.ID < listings[j].Provider.ID
		}
		return listings[i].Department.ID < listings[j].Department.ID
	})
	return &MemoryStore{listings: listings}
}

// Search returns every listing the query matches, ordered by provider then department.
func (s *MemoryStore) Search(ctx context.Context, q Query) ([]Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Listing
	for _, l := range s.listings {
		if q.Matches(l) {
			out = append(out, l)
		}
	}
	return out, nil
}

// DefaultDirectory is the reference directory shipped with the service.
func DefaultDirectory() Directory {
	return Directory{
		Providers: []Provider{
			{ID: 1, FirstName: "Meredith", LastName: "Grey", Specialty: "Primary Care", Certification: "MD"},
			{ID: 2, FirstName: "Gregory", LastName: "House", Specialty: "Orthopedics", Certification: "MD"},
			{ID: 3, FirstName: "Cristina", LastName: "Yang", Specialty: "Surgery", Certification: "MD"},
			{ID: 4, FirstName: "Chris", LastName: "Perry", Specialty: "Primary Care", Certification: "FNP"},
			{ID: 5, FirstName: "Temperance", LastName: "Brennan", Specialty: "Orthopedics", Certification: "PhD, MD"},
		},
		Departments: []Department{
			{ID: 1, ProviderID: 1, Name: "Sloan Primary Care", PhoneNumber: "(710) 555-2070", Address: "202 Maple St, Winston-Salem, NC 27101", StartDay: 0, EndDay: 4, StartHour: 9, EndHour: 17},
			{ID: 2, ProviderID: 2, Name: "PPTH Orthopedics", PhoneNumber: "(445) 555-6205", Address: "101 Pine St, Greensboro, NC 27401", StartDay: 0, EndDay: 2, StartHour: 9, EndHour: 17},
			{ID: 3, ProviderID: 2, Name: "Jefferson Hospital", PhoneNumber: "(215) 555-6123", Address: "202 Maple St, Claremont, NC 28610", StartDay: 3, EndDay: 4, StartHour: 9, EndHour: 17},
			{ID: 4, ProviderID: 3, Name: "Seattle Grace Cardiac Surgery", PhoneNumber: "(710) 555-3082", Address: "456 Elm St, Charlotte, NC 28202", StartDay: 0, EndDay: 4, StartHour: 9, EndHour: 17},
			{ID: 5, ProviderID: 4, Name: "Sacred Heart Surgical Department", PhoneNumber: "(339) 555-7480", Address: "123 Main St, Raleigh, NC 27601", StartDay: 0, EndDay: 2, StartHour: 9, EndHour: 17},
			{ID: 6, ProviderID: 5, Name: "Jefferson Hospital", PhoneNumber: "(215) 555-6123", Address: "202 Maple St, Claremont, NC 28610", StartDay: 1, EndDay: 3, StartHour: 10, EndHour: 16},
		},
	}
}
