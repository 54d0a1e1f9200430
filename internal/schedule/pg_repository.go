package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/db"
)

type PgRepository struct {
	db db.DBTX
}

func NewPgRepository(conn db.DBTX) *PgRepository {
	return &PgRepository{db: conn}
}

const (
	ruleColumns  = `id, professional_id, weekday, start_time, end_time, slot_minutes, created_at, updated_at`
	blockColumns = `id, professional_id, start_at, end_at, reason, all_day, created_at`

	microsPerMinute = int64(time.Minute / time.Microsecond)
)

// Helpers

func toPgTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * microsPerMinute, Valid: true}
}

func fromPgTime(t pgtype.Time) TimeOfDay {
	return TimeOfDay(t.Microseconds / microsPerMinute)
}

func scanRule(row pgx.Row) (*Rule, error) {
	var r Rule
	var weekday int16
	var start, end pgtype.Time

	err := row.Scan(
		&r.ID,
		&r.ProfessionalID,
		&weekday,
		&start,
		&end,
		&r.SlotMinutes,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}

	r.Weekday = time.Weekday(weekday)
	r.StartTime = fromPgTime(start)
	r.EndTime = fromPgTime(end)
	return &r, nil
}

func scanBlock(row pgx.Row) (*Block, error) {
	var b Block

	err := row.Scan(
		&b.ID,
		&b.ProfessionalID,
		&b.Start,
		&b.End,
		&b.Reason,
		&b.AllDay,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}
	return &b, nil
}

func collectRules(rows pgx.Rows, err error) ([]Rule, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

func collectBlocks(rows pgx.Rows, err error) ([]Block, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

// Rules

func (r *PgRepository) ListRules(ctx context.Context, professionalID uuid.UUID) ([]Rule, error) {
	return collectRules(r.db.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM schedule_rules
		WHERE professional_id = $1
		ORDER BY weekday, start_time
	`, professionalID))
}

func (r *PgRepository) ListRulesForWeekday(ctx context.Context, professionalID uuid.UUID, weekday time.Weekday) ([]Rule, error) {
	return collectRules(r.db.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM schedule_rules
		WHERE professional_id = $1 AND weekday = $2
		ORDER BY start_time
	`, professionalID, int16(weekday)))
}

func (r *PgRepository) CreateRule(ctx context.Context, rule Rule) (*Rule, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO schedule_rules (id, professional_id, weekday, start_time, end_time, slot_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+ruleColumns,
		uuid.New(), rule.ProfessionalID, int16(rule.Weekday), toPgTime(rule.StartTime), toPgTime(rule.EndTime), rule.SlotMinutes)
	return scanRule(row)
}

func (r *PgRepository) UpdateRule(ctx context.Context, rule Rule) (*Rule, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE schedule_rules
		SET weekday = $3,
		    start_time = $4,
		    end_time = $5,
		    slot_minutes = $6,
		    updated_at = now()
		WHERE id = $1 AND professional_id = $2
		RETURNING `+ruleColumns,
		rule.ID, rule.ProfessionalID, int16(rule.Weekday), toPgTime(rule.StartTime), toPgTime(rule.EndTime), rule.SlotMinutes)
	return scanRule(row)
}

func (r *PgRepository) DeleteRule(ctx context.Context, professionalID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM schedule_rules WHERE id = $1 AND professional_id = $2`, id, professionalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Blocks

func (r *PgRepository) ListBlocks(ctx context.Context, professionalID uuid.UUID) ([]Block, error) {
	return collectBlocks(r.db.Query(ctx, `
		SELECT `+blockColumns+`
		FROM time_blocks
		WHERE professional_id = $1
		ORDER BY start_at
	`, professionalID))
}

func (r *PgRepository) ListBlocksOverlapping(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]Block, error) {
	return collectBlocks(r.db.Query(ctx, `
		SELECT `+blockColumns+`
		FROM time_blocks
		WHERE professional_id = $1
		  AND start_at < $3
		  AND end_at > $2
		ORDER BY start_at
	`, professionalID, from, to))
}

func (r *PgRepository) CreateBlock(ctx context.Context, block Block) (*Block, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO time_blocks (id, professional_id, start_at, end_at, reason, all_day, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING `+blockColumns,
		uuid.New(), block.ProfessionalID, block.Start, block.End, block.Reason, block.AllDay)
	return scanBlock(row)
}

func (r *PgRepository) DeleteBlock(ctx context.Context, professionalID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM time_blocks WHERE id = $1 AND professional_id = $2`, id, professionalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockNotFound
	}
	return nil
}
