package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/auth"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/memstore"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/professional"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/schedule"
)

// seedDemo gives the in-memory mode one professional working weekday
// mornings and logs a staff token for them.
func seedDemo(ctx context.Context, mem *memstore.Store, slots *schedule.Service, secret string, logger zerolog.Logger) error {
	specialty := "General Practice"
	prof := mem.AddProfessional(professional.Professional{
		FirstName: "Demo",
		LastName:  "Professional",
		Email:     "demo@clinic.local",
		Specialty: &specialty,
		Active:    true,
	})

	for day := time.Monday; day <= time.Friday; day++ {
		_, err := slots.CreateRule(ctx, prof.ID, schedule.RuleInput{
			Weekday:     int(day),
			StartTime:   "09:00",
			EndTime:     "13:00",
			SlotMinutes: 30,
		})
		if err != nil {
			return err
		}
	}

	token, err := auth.IssueToken(secret, auth.Identity{UserID: prof.ID, Role: auth.RoleProfessional}, 24*time.Hour)
	if err != nil {
		return err
	}

	logger.Info().
		Str("professional_id", prof.ID.String()).
		Str("token", token).
		Msg("in-memory demo professional ready")
	return nil
}
