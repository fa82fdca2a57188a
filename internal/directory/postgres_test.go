package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var listingColumns = []string{
	"provider_id", "first_name", "last_name", "specialty", "certification",
	"department_id", "name", "phone_number", "address",
	"start_day", "end_day", "start_hour", "end_hour",
}

func TestPostgresStoreSearchBindsFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newPostgresStoreWithQuerier(mock, time.Second)

	mock.ExpectQuery("FROM providers p").
		WithArgs("Gregory", "House", "", "Jefferson Hospital", true, 3, 10.0, 10.25).
		WillReturnRows(pgxmock.NewRows(listingColumns).
			AddRow(2, "Gregory", "House", "Orthopedics", "MD", 3, "Jefferson Hospital", "(215) 555-6123", "202 Maple St, Claremont, NC 28610", 3, 4, 9, 17))

	got, err := store.Search(context.Background(), Query{
		FirstName: "Gregory",
		LastName:  "House",
		Location:  "Jefferson Hospital",
		Window:    &Window{Weekday: 3, StartHour: 10, EndHour: 10.25},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Provider.ID)
	assert.Equal(t, 2, got[0].Department.ProviderID)
	assert.Equal(t, 17, got[0].Department.EndHour)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSearchWithoutWindow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newPostgresStoreWithQuerier(mock, 0)

	// Hostile input still travels as a bound value.
	mock.ExpectQuery("FROM providers p").
		WithArgs("x' OR '1'='1", "", "", "", false, 0, 0.0, 0.0).
		WillReturnRows(pgxmock.NewRows(listingColumns))

	got, err := store.Search(context.Background(), Query{FirstName: "x' OR '1'='1"})
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSearchError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newPostgresStoreWithQuerier(mock, time.Second)
	boom := errors.New("connection reset")
	mock.ExpectQuery("FROM providers p").WillReturnError(boom)

	_, err = store.Search(context.Background(), Query{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "directory: search listings")
}

func TestSeedUpsertsDirectory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := Directory{
		Providers:   []Provider{{ID: 1, FirstName: "Meredith", LastName: "Grey", Specialty: "Primary Care", Certification: "MD"}},
		Departments: []Department{{ID: 1, ProviderID: 1, Name: "Sloan Primary Care", PhoneNumber: "(710) 555-2070", Address: "202 Maple St", StartDay: 0, EndDay: 4, StartHour: 9, EndHour: 17}},
	}

	mock.ExpectExec("INSERT INTO providers").
		WithArgs(1, "Meredith", "Grey", "Primary Care", "MD").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO departments").
		WithArgs(1, 1, "Sloan Primary Care", "(710) 555-2070", "202 Maple St", 0, 4, 9, 17).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, Seed(context.Background(), mock, dir))
	require.NoError(t, mock.ExpectationsWereMet())
}
