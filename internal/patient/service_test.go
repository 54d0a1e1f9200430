package patient_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/memstore"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
)

func newService() *patient.Service {
	return patient.NewService(memstore.New().Patients(), patient.NewUpserter(patient.PolicyOverwrite))
}

func TestService_ArchiveAndReactivate(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	p, err := svc.Create(ctx, details("100", "x@example.com"), nil)
	require.NoError(t, err)

	archived, err := svc.Archive(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, archived.Active)

	active := true
	list, err := svc.List(ctx, patient.ListFilter{Active: &active})
	require.NoError(t, err)
	assert.Empty(t, list)

	reactivated, err := svc.Reactivate(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, reactivated.Active)
}

func TestService_UpdateRejectsDuplicateDNI(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	a, err := svc.Create(ctx, details("200", "a@example.com"), nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, details("201", "b@example.com"), nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, a.ID, details("201", "a@example.com"))
	assert.ErrorIs(t, err, patient.ErrDuplicateDNI)

	_, err = svc.Update(ctx, a.ID, patient.Details{DNI: "200"})
	assert.ErrorIs(t, err, patient.ErrInvalidPatient)

	updated, err := svc.Update(ctx, a.ID, details(" 202 ", "a2@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "202", updated.DNI)
}

func TestService_ListSearchAndPaging(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	for _, dni := range []string{"300", "301", "302"} {
		_, err := svc.Create(ctx, details(dni, dni+"@example.com"), nil)
		require.NoError(t, err)
	}

	list, err := svc.List(ctx, patient.ListFilter{Search: "30", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = svc.List(ctx, patient.ListFilter{Search: "302"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "302", list[0].DNI)
}

func TestService_DeleteAndNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	p, err := svc.Create(ctx, details("400", "d@example.com"), nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, p.ID), patient.ErrPatientNotFound)

	_, err = svc.Archive(ctx, uuid.New())
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)
}
