package directory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Seed upserts a directory snapshot. It is the only write path and is used by
// the seed command, never by request handling.
func Seed(ctx context.Context, db execer, dir Directory) error {
	for _, p := range dir.Providers {
		_, err := db.Exec(ctx, `
			INSERT INTO providers (id, first_name, last_name, specialty, certification)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				specialty = EXCLUDED.specialty,
				certification = EXCLUDED.certification
		`, p.ID, p.FirstName, p.LastName, p.Specialty, p.Certification)
		if err != nil {
			return fmt.Errorf("directory: seed provider %d: %w", p.ID, err)
		}
	}
	for _, d := range dir.Departments {
		_, err := db.Exec(ctx, `
			INSERT INTO departments (id, provider_id, name, phone_number, address, start_day, end_day, start_hour, end_hour)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				provider_id = EXCLUDED.provider_id,
				name = EXCLUDED.name,
				phone_number = EXCLUDED.phone_number,
				address = EXCLUDED.address,
				start_day = EXCLUDED.start_day,
				end_day = EXCLUDED.end_day,
				start_hour = EXCLUDED.start_hour,
				end_hour = EXCLUDED.end_hour
		`, d.ID, d.ProviderID, d.Name, d.PhoneNumber, d.Address, d.StartDay, d.EndDay, d.StartHour, d.EndHour)
		if err != nil {
			return fmt.Errorf("directory: seed department %d: %w", d.ID, err)
		}
	}
	return nil
}
