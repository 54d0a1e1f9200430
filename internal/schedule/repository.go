package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository stores schedule rules and time blocks. Every method is scoped by
// professional id; rows owned by someone else behave as missing.
type Repository interface {
	ListRules(ctx context.Context, professionalID uuid.UUID) ([]Rule, error)
	ListRulesForWeekday(ctx context.Context, professionalID uuid.UUID, weekday time.Weekday) ([]Rule, error)
	CreateRule(ctx context.Context, rule Rule) (*Rule, error)
	UpdateRule(ctx context.Context, rule Rule) (*Rule, error)
	DeleteRule(ctx context.Context, professionalID, id uuid.UUID) error

	ListBlocks(ctx context.Context, professionalID uuid.UUID) ([]Block, error)
	ListBlocksOverlapping(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]Block, error)
	CreateBlock(ctx context.Context, block Block) (*Block, error)
	DeleteBlock(ctx context.Context, professionalID, id uuid.UUID) error
}

// BookedTimesReader returns start instants of non-canceled appointments in [from, to).
type BookedTimesReader interface {
	BookedTimes(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]time.Time, error)
}
