package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service is the staff facing patient registry. Every professional sees
// every patient; only the booking flow and Create go through the Upserter.
type Service struct {
	repo     Repository
	upserter *Upserter
}

func NewService(repo Repository, upserter *Upserter) *Service {
	if upserter == nil {
		upserter = NewUpserter(PolicyOverwrite)
	}
	return &Service{repo: repo, upserter: upserter}
}

// Create registers a patient, or refreshes the existing one with the same DNI.
func (s *Service) Create(ctx context.Context, d Details, createdBy *uuid.UUID) (*Patient, error) {
	return s.upserter.Upsert(ctx, s.repo, d, createdBy)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Patient, error) {
	patients, err := s.repo.List(ctx, f.normalized())
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, d Details) (*Patient, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, d)
}

func (s *Service) Archive(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.SetActive(ctx, id, false)
}

func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.SetActive(ctx, id, true)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
