package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/config"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/db"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/logging"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/schedule"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"Nutrition",
}

func main() {
	professionals := pflag.Int("professionals", 20, "professionals to create")
	patients := pflag.Int("patients", 2000, "patients to create")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "seed").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := seedProfessionals(ctx, pool, *professionals, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed professionals")
	}
	if err := seedPatients(ctx, pool, *patients, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}

	logger.Info().Msg("seed complete")
}

// seedProfessionals creates professionals with weekday rules. Each one works
// either mornings or afternoons with 20, 30 or 45 minute slots.
func seedProfessionals(ctx context.Context, pool *pgxpool.Pool, count int, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding professionals")

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		rules := schedule.NewPgRepository(tx)

		for i := 0; i < count; i++ {
			id := uuid.New()
			first, last := gofakeit.FirstName(), gofakeit.LastName()
			spec := specialties[gofakeit.Number(0, len(specialties)-1)]
			email := fmt.Sprintf("%s.%s.%d@clinic.local", first, last, i)

			_, err := tx.Exec(ctx, `
				INSERT INTO professionals (id, first_name, last_name, email, specialty, active)
				VALUES ($1, $2, $3, $4, $5, TRUE)
			`, id, first, last, email, spec)
			if err != nil {
				return fmt.Errorf("insert professional: %w", err)
			}

			start, end := "09:00", "13:00"
			if gofakeit.Bool() {
				start, end = "14:00", "19:00"
			}
			minutes := []int{20, 30, 45}[gofakeit.Number(0, 2)]

			for day := time.Monday; day <= time.Friday; day++ {
				s, _ := schedule.ParseTimeOfDay(start)
				e, _ := schedule.ParseTimeOfDay(end)
				_, err := rules.CreateRule(ctx, schedule.Rule{
					ProfessionalID: id,
					Weekday:        day,
					StartTime:      s,
					EndTime:        e,
					SlotMinutes:    minutes,
				})
				if err != nil {
					return fmt.Errorf("insert rule: %w", err)
				}
			}
		}
		return nil
	})
}

// seedPatients goes through the DNI upsert so reruns do not duplicate rows.
func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500
	upserter := patient.NewUpserter(patient.PolicyPreserve)
	oldest := time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC)
	youngest := time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC)

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			store := patient.NewPgRepository(tx)
			for i := offset; i < end; i++ {
				email := gofakeit.Email()
				phone := gofakeit.Phone()
				birth := gofakeit.DateRange(oldest, youngest)

				_, err := upserter.Upsert(ctx, store, patient.Details{
					DNI:       gofakeit.Numerify("########"),
					FirstName: gofakeit.FirstName(),
					LastName:  gofakeit.LastName(),
					Email:     &email,
					Phone:     &phone,
					BirthDate: &birth,
				}, nil)
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("patients %d-%d: %w", offset, end, err)
		}

		logger.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}

	return nil
}
