package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RuleInput struct {
	Weekday     int
	StartTime   string
	EndTime     string
	SlotMinutes int
}

// BlockInput describes a new block. For all-day blocks only the calendar day
// of Start is read and End is ignored.
type BlockInput struct {
	Start  time.Time
	End    time.Time
	Reason *string
	AllDay bool
}

type Service struct {
	repo   Repository
	booked BookedTimesReader
	loc    *time.Location
	now    func() time.Time
}

// NewService wires the slot generator to its stores. loc is the single
// deployment timezone; now defaults to time.Now.
func NewService(repo Repository, booked BookedTimesReader, loc *time.Location, now func() time.Time) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   repo,
		booked: booked,
		loc:    loc,
		now:    now,
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// ParseDate reads a YYYY-MM-DD calendar day in the deployment timezone.
func (s *Service) ParseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(time.DateOnly, raw, s.loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// AvailableTimes returns the open slot instants of professionalID on date.
// A weekday without rules yields an empty result.
func (s *Service) AvailableTimes(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]time.Time, error) {
	dayStart, dayEnd := DayBounds(date, s.loc)

	rules, err := s.repo.ListRulesForWeekday(ctx, professionalID, dayStart.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load schedule rules: %w", err)
	}
	if len(rules) == 0 {
		return []time.Time{}, nil
	}

	booked, err := s.booked.BookedTimes(ctx, professionalID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("load booked times: %w", err)
	}

	blocks, err := s.repo.ListBlocksOverlapping(ctx, professionalID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("load time blocks: %w", err)
	}

	return GenerateSlots(SlotInput{
		Date:     dayStart,
		Location: s.loc,
		Now:      s.now(),
		Rules:    rules,
		Blocks:   blocks,
		Booked:   booked,
	}), nil
}

// Availability is AvailableTimes formatted as "HH:mm".
func (s *Service) Availability(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]string, error) {
	times, err := s.AvailableTimes(ctx, professionalID, date)
	if err != nil {
		return nil, err
	}
	return FormatSlots(times, s.loc), nil
}

// IsBookable reports whether at is currently one of the open slots.
func (s *Service) IsBookable(ctx context.Context, professionalID uuid.UUID, at time.Time) (bool, error) {
	times, err := s.AvailableTimes(ctx, professionalID, at.In(s.loc))
	if err != nil {
		return false, err
	}
	for _, t := range times {
		if t.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

// Rules

func (s *Service) ListRules(ctx context.Context, professionalID uuid.UUID) ([]Rule, error) {
	rules, err := s.repo.ListRules(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("list schedule rules: %w", err)
	}
	return rules, nil
}

func (s *Service) CreateRule(ctx context.Context, professionalID uuid.UUID, in RuleInput) (*Rule, error) {
	rule, err := buildRule(in)
	if err != nil {
		return nil, err
	}
	rule.ProfessionalID = professionalID

	created, err := s.repo.CreateRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("create schedule rule: %w", err)
	}
	return created, nil
}

func (s *Service) UpdateRule(ctx context.Context, professionalID, id uuid.UUID, in RuleInput) (*Rule, error) {
	rule, err := buildRule(in)
	if err != nil {
		return nil, err
	}
	rule.ID = id
	rule.ProfessionalID = professionalID

	updated, err := s.repo.UpdateRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("update schedule rule: %w", err)
	}
	return updated, nil
}

// DeleteRule removes the rule regardless of appointments already booked in it.
func (s *Service) DeleteRule(ctx context.Context, professionalID, id uuid.UUID) error {
	if err := s.repo.DeleteRule(ctx, professionalID, id); err != nil {
		return fmt.Errorf("delete schedule rule: %w", err)
	}
	return nil
}

func buildRule(in RuleInput) (Rule, error) {
	if in.Weekday < 0 || in.Weekday > 6 {
		return Rule{}, fmt.Errorf("%w: weekday must be between 0 (Sunday) and 6", ErrInvalidRule)
	}
	start, err := ParseTimeOfDay(in.StartTime)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	end, err := ParseTimeOfDay(in.EndTime)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if start >= end {
		return Rule{}, fmt.Errorf("%w: start time must be before end time", ErrInvalidRule)
	}
	if in.SlotMinutes <= 0 {
		return Rule{}, fmt.Errorf("%w: slot duration must be positive", ErrInvalidRule)
	}

	return Rule{
		Weekday:     time.Weekday(in.Weekday),
		StartTime:   start,
		EndTime:     end,
		SlotMinutes: in.SlotMinutes,
	}, nil
}

// Blocks

func (s *Service) ListBlocks(ctx context.Context, professionalID uuid.UUID) ([]Block, error) {
	blocks, err := s.repo.ListBlocks(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("list time blocks: %w", err)
	}
	return blocks, nil
}

// CreateBlock stores a block without checking for appointments it hides.
func (s *Service) CreateBlock(ctx context.Context, professionalID uuid.UUID, in BlockInput) (*Block, error) {
	block := Block{
		ProfessionalID: professionalID,
		Reason:         in.Reason,
		AllDay:         in.AllDay,
	}

	if in.AllDay {
		if in.Start.IsZero() {
			return nil, fmt.Errorf("%w: all-day blocks need a date", ErrInvalidBlock)
		}
		block.Start, block.End = AllDayBounds(in.Start.In(s.loc), s.loc)
	} else {
		if in.Start.IsZero() || in.End.IsZero() {
			return nil, fmt.Errorf("%w: start and end are required", ErrInvalidBlock)
		}
		if in.End.Before(in.Start) {
			return nil, fmt.Errorf("%w: start must not be after end", ErrInvalidBlock)
		}
		block.Start, block.End = in.Start, in.End
	}

	created, err := s.repo.CreateBlock(ctx, block)
	if err != nil {
		return nil, fmt.Errorf("create time block: %w", err)
	}
	return created, nil
}

func (s *Service) DeleteBlock(ctx context.Context, professionalID, id uuid.UUID) error {
	if err := s.repo.DeleteBlock(ctx, professionalID, id); err != nil {
		return fmt.Errorf("delete time block: %w", err)
	}
	return nil
}
