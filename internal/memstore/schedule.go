package memstore

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/schedule"
)

var _ schedule.Repository = (*Schedule)(nil)

type Schedule struct {
	s *Store
}

func sortRules(rules []schedule.Rule) {
	slices.SortFunc(rules, func(a, b schedule.Rule) int {
		if c := cmp.Compare(a.Weekday, b.Weekday); c != 0 {
			return c
		}
		return cmp.Compare(a.StartTime, b.StartTime)
	})
}

func sortBlocks(blocks []schedule.Block) {
	slices.SortFunc(blocks, func(a, b schedule.Block) int {
		return a.Start.Compare(b.Start)
	})
}

func (r *Schedule) ListRules(_ context.Context, professionalID uuid.UUID) ([]schedule.Rule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []schedule.Rule
	for _, rule := range r.s.rules {
		if rule.ProfessionalID == professionalID {
			out = append(out, rule)
		}
	}
	sortRules(out)
	return out, nil
}

func (r *Schedule) ListRulesForWeekday(_ context.Context, professionalID uuid.UUID, weekday time.Weekday) ([]schedule.Rule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []schedule.Rule
	for _, rule := range r.s.rules {
		if rule.ProfessionalID == professionalID && rule.Weekday == weekday {
			out = append(out, rule)
		}
	}
	sortRules(out)
	return out, nil
}

func (r *Schedule) CreateRule(_ context.Context, rule schedule.Rule) (*schedule.Rule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	rule.ID = uuid.New()
	rule.CreatedAt, rule.UpdatedAt = now, now
	r.s.rules[rule.ID] = rule
	return &rule, nil
}

func (r *Schedule) UpdateRule(_ context.Context, rule schedule.Rule) (*schedule.Rule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.rules[rule.ID]
	if !ok || current.ProfessionalID != rule.ProfessionalID {
		return nil, schedule.ErrRuleNotFound
	}
	rule.CreatedAt = current.CreatedAt
	rule.UpdatedAt = r.s.now()
	r.s.rules[rule.ID] = rule
	return &rule, nil
}

func (r *Schedule) DeleteRule(_ context.Context, professionalID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.rules[id]
	if !ok || current.ProfessionalID != professionalID {
		return schedule.ErrRuleNotFound
	}
	delete(r.s.rules, id)
	return nil
}

func (r *Schedule) ListBlocks(_ context.Context, professionalID uuid.UUID) ([]schedule.Block, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []schedule.Block
	for _, b := range r.s.blocks {
		if b.ProfessionalID == professionalID {
			out = append(out, b)
		}
	}
	sortBlocks(out)
	return out, nil
}

func (r *Schedule) ListBlocksOverlapping(_ context.Context, professionalID uuid.UUID, from, to time.Time) ([]schedule.Block, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []schedule.Block
	for _, b := range r.s.blocks {
		if b.ProfessionalID == professionalID && b.Start.Before(to) && b.End.After(from) {
			out = append(out, b)
		}
	}
	sortBlocks(out)
	return out, nil
}

func (r *Schedule) CreateBlock(_ context.Context, block schedule.Block) (*schedule.Block, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	block.ID = uuid.New()
	block.CreatedAt = r.s.now()
	r.s.blocks[block.ID] = block
	return &block, nil
}

func (r *Schedule) DeleteBlock(_ context.Context, professionalID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.blocks[id]
	if !ok || current.ProfessionalID != professionalID {
		return schedule.ErrBlockNotFound
	}
	delete(r.s.blocks, id)
	return nil
}
