package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/wolfman30/care-coordinator/cmd/mainconfig"
	"github.com/wolfman30/care-coordinator/internal/directory"
	"github.com/wolfman30/care-coordinator/pkg/logging"
)

type options struct {
	fake   int
	seed   uint64
	dryRun bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Load the provider directory into Postgres",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := buildDirectory(opts)
			if opts.dryRun {
				return writeDirectory(cmd.OutOrStdout(), dir)
			}
			return run(cmd.Context(), dir)
		},
	}
	cmd.Flags().IntVar(&opts.fake, "fake", 0, "number of generated providers to add to the default directory")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed for generated providers (0 = time based)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the directory as JSON instead of writing it")
	return cmd
}

func run(ctx context.Context, dir directory.Directory) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := mainconfig.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := directory.Connect(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	logger.Info("seeding provider directory", "providers", len(dir.Providers), "departments", len(dir.Departments))
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		return directory.Seed(ctx, tx, dir)
	})
	if err != nil {
		return err
	}
	logger.Info("seed complete")
	return nil
}

func buildDirectory(opts options) directory.Directory {
	dir := directory.DefaultDirectory()
	if opts.fake <= 0 {
		return dir
	}
	seed := opts.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return appendFake(dir, gofakeit.New(seed), opts.fake)
}

var specialties = []string{
	"Primary Care",
	"Orthopedics",
	"Surgery",
	"Cardiology",
	"Dermatology",
	"Neurology",
	"Pediatrics",
	"Endocrinology",
}

var certifications = []string{"MD", "DO", "NP", "PA"}

var departmentSuffixes = []string{"Clinic", "Medical Center", "Hospital", "Health"}

// appendFake adds n generated providers with one or two departments each.
// IDs continue after the highest existing ones so reseeding stays stable.
func appendFake(dir directory.Directory, faker *gofakeit.Faker, n int) directory.Directory {
	providerID, departmentID := 0, 0
	for _, p := range dir.Providers {
		providerID = max(providerID, p.ID)
	}
	for _, d := range dir.Departments {
		departmentID = max(departmentID, d.ID)
	}

	for i := 0; i < n; i++ {
		providerID++
		dir.Providers = append(dir.Providers, directory.Provider{
			ID:            providerID,
			FirstName:     faker.FirstName(),
			LastName:      faker.LastName(),
			Specialty:     faker.RandomString(specialties),
			Certification: faker.RandomString(certifications),
		})

		for j := faker.Number(1, 2); j > 0; j-- {
			departmentID++
			startDay := faker.Number(0, 4)
			startHour := faker.Number(7, 10)
			dir.Departments = append(dir.Departments, directory.Department{
				ID:          departmentID,
				ProviderID:  providerID,
				Name:        faker.LastName() + " " + faker.RandomString(departmentSuffixes),
				PhoneNumber: faker.Numerify("(###) 555-####"),
				Address:     fmt.Sprintf("%s, %s, NC %s", faker.Street(), faker.City(), faker.Zip()),
				StartDay:    startDay,
				EndDay:      faker.Number(startDay, 6),
				StartHour:   startHour,
				EndHour:     startHour + faker.Number(6, 9),
			})
		}
	}
	return dir
}

func writeDirectory(w io.Writer, dir directory.Directory) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dir)
}
