package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/api"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/appointment"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/auth"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/db"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/memstore"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/metrics"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/notification"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/professional"
	redisclient "github.com/pabloeorellana/gptunsta-clean-sub000/internal/redis"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/schedule"
)

const secret = "test-secret"

// 2024-01-15 is a Monday; the clock sits at 08:00 UTC.
var clock = time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

type fixture struct {
	t       *testing.T
	store   *memstore.Store
	prof    professional.Professional
	metrics *metrics.Metrics
	handler http.Handler
}

func newFixture(t *testing.T, opts ...func(*api.RouterConfig)) *fixture {
	t.Helper()

	store := memstore.New()
	prof := store.AddProfessional(professional.Professional{
		FirstName: "Ana",
		LastName:  "Suarez",
		Email:     "ana@example.com",
		Active:    true,
	})

	now := func() time.Time { return clock }
	slots := schedule.NewService(store.Schedule(), store.Appointments(), time.UTC, now)
	_, err := slots.CreateRule(context.Background(), prof.ID, schedule.RuleInput{
		Weekday:     int(time.Monday),
		StartTime:   "09:00",
		EndTime:     "10:00",
		SlotMinutes: 30,
	})
	require.NoError(t, err)

	log := zerolog.Nop()
	upserter := patient.NewUpserter(patient.PolicyOverwrite)
	m := metrics.New()

	cfg := api.RouterConfig{
		Appointments: appointment.NewService(appointment.Deps{
			Repo:          store.Appointments(),
			Slots:         slots,
			Professionals: store.Professionals(),
			Upserter:      upserter,
			Mailer:        notification.NopMailer{Log: log},
			Location:      time.UTC,
			Logger:        log,
		}),
		Schedule:      slots,
		Patients:      patient.NewService(store.Patients(), upserter),
		Notifications: notification.NewService(store.Notifications()),
		Professionals: store.Professionals(),
		Verifier:      auth.NewVerifier(secret),
		Metrics:       m,
		Logger:        log,
		Env:           "test",
		Version:       "v0.0.0",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &fixture{t: t, store: store, prof: prof, metrics: m, handler: api.NewRouter(cfg)}
}

func (f *fixture) token(id auth.Identity) string {
	f.t.Helper()
	tok, err := auth.IssueToken(secret, id, time.Hour)
	require.NoError(f.t, err)
	return tok
}

func (f *fixture) professionalToken() string {
	return f.token(auth.Identity{UserID: f.prof.ID, Role: auth.RoleProfessional})
}

func (f *fixture) adminToken() string {
	return f.token(auth.Identity{UserID: uuid.New(), Role: auth.RoleAdmin})
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) availability(date string) []string {
	f.t.Helper()
	rec := f.do("GET", "/availability?date="+date+"&professionalId="+f.prof.ID.String(), "", nil)
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())

	var slots []string
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &slots))
	return slots
}

func (f *fixture) bookPublic(dni, dateTime string) *httptest.ResponseRecorder {
	return f.do("POST", "/appointments", "", map[string]any{
		"professionalId": f.prof.ID.String(),
		"dateTime":       dateTime,
		"patientDetails": map[string]any{
			"dni":       dni,
			"firstName": "Juan",
			"lastName":  "Perez",
			"email":     "juan@example.com",
			"phone":     "+54 11 5555 0000",
			"motivo":    "control",
		},
	})
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestPublicFlow_BookingRemovesSlot(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []string{"09:00", "09:30"}, f.availability("2024-01-15"))

	rec := f.bookPublic("111", "2024-01-15T09:00:00Z")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[api.BookingResponse](t, rec)
	assert.NotEqual(t, uuid.Nil, resp.Appointment.ID)
	assert.NotEqual(t, uuid.Nil, resp.Appointment.PatientID)
	assert.True(t, resp.Appointment.DateTime.Equal(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)))

	assert.Equal(t, []string{"09:30"}, f.availability("2024-01-15"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BookingsTotal.WithLabelValues(metrics.ChannelPublic, metrics.OutcomeCreated)))
}

func TestPublicBooking_SecondAttemptConflicts(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusCreated, f.bookPublic("111", "2024-01-15T09:00:00Z").Code)

	rec := f.bookPublic("222", "2024-01-15T09:00:00Z")
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, "slot_unavailable", body.Error)
	assert.NotEmpty(t, body.Details)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BookingsTotal.WithLabelValues(metrics.ChannelPublic, metrics.OutcomeConflict)))
}

func TestPublicBooking_AcceptsLocalDateTime(t *testing.T) {
	f := newFixture(t)

	rec := f.bookPublic("111", "2024-01-15T09:30")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"09:00"}, f.availability("2024-01-15"))
}

func TestPublicBooking_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{
			name: "missing email",
			body: map[string]any{
				"professionalId": f.prof.ID.String(),
				"dateTime":       "2024-01-15T09:00:00Z",
				"patientDetails": map[string]any{"dni": "1", "firstName": "A", "lastName": "B", "phone": "1"},
			},
			want: "patientDetails.email is required",
		},
		{
			name: "bad email",
			body: map[string]any{
				"professionalId": f.prof.ID.String(),
				"dateTime":       "2024-01-15T09:00:00Z",
				"patientDetails": map[string]any{"dni": "1", "firstName": "A", "lastName": "B", "phone": "1", "email": "nope"},
			},
			want: "patientDetails.email must be a valid email",
		},
		{
			name: "missing professional",
			body: map[string]any{
				"dateTime":       "2024-01-15T09:00:00Z",
				"patientDetails": map[string]any{"dni": "1", "firstName": "A", "lastName": "B", "phone": "1", "email": "a@b.co"},
			},
			want: "professionalId is required",
		},
		{
			name: "bad date time",
			body: map[string]any{
				"professionalId": f.prof.ID.String(),
				"dateTime":       "monday morning",
				"patientDetails": map[string]any{"dni": "1", "firstName": "A", "lastName": "B", "phone": "1", "email": "a@b.co"},
			},
			want: "invalid date time",
		},
		{
			name: "bad birth date",
			body: map[string]any{
				"professionalId": f.prof.ID.String(),
				"dateTime":       "2024-01-15T09:00:00Z",
				"patientDetails": map[string]any{"dni": "1", "firstName": "A", "lastName": "B", "phone": "1", "email": "a@b.co", "birthDate": "01/02/1990"},
			},
			want: "birthDate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do("POST", "/appointments", "", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode[api.ErrorResponse](t, rec)
			assert.Equal(t, "invalid_request", body.Error)
			assert.Contains(t, body.Details, tt.want)
		})
	}
}

func TestPublicBooking_OutsideOpenSlots(t *testing.T) {
	f := newFixture(t)

	rec := f.bookPublic("111", "2024-01-15T12:00:00Z")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPublicBooking_UnknownProfessional(t *testing.T) {
	f := newFixture(t)

	rec := f.do("POST", "/appointments", "", map[string]any{
		"professionalId": uuid.NewString(),
		"dateTime":       "2024-01-15T09:00:00Z",
		"patientDetails": map[string]any{"dni": "1", "firstName": "A", "lastName": "B", "phone": "1", "email": "a@b.co"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "professional_not_found", decode[api.ErrorResponse](t, rec).Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BookingsTotal.WithLabelValues(metrics.ChannelPublic, metrics.OutcomeInvalid)))
}

type stubLimiter struct{ decision redisclient.Decision }

func (s stubLimiter) Allow(context.Context, string) redisclient.Decision { return s.decision }

func TestPublicBooking_Throttled(t *testing.T) {
	f := newFixture(t, func(cfg *api.RouterConfig) {
		cfg.BookingLimiter = stubLimiter{redisclient.Decision{Allowed: false, RetryAfter: 30 * time.Second}}
	})

	rec := f.bookPublic("111", "2024-01-15T09:00:00Z")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BookingsTotal.WithLabelValues(metrics.ChannelPublic, metrics.OutcomeThrottled)))

	// Availability is not throttled.
	assert.Equal(t, []string{"09:00", "09:30"}, f.availability("2024-01-15"))
}

func TestAvailability_BadParams(t *testing.T) {
	f := newFixture(t)
	id := f.prof.ID.String()

	for _, path := range []string{
		"/availability?professionalId=" + id,
		"/availability?date=2024-01-15",
		"/availability?date=2024-01-15&professionalId=abc",
		"/availability?date=15-01-2024&professionalId=" + id,
	} {
		rec := f.do("GET", path, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestAvailability_NoRulesIsEmptyArray(t *testing.T) {
	f := newFixture(t)

	rec := f.do("GET", "/availability?date=2024-01-16&professionalId="+f.prof.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListProfessionals_ActiveOnly(t *testing.T) {
	f := newFixture(t)
	f.store.AddProfessional(professional.Professional{FirstName: "Old", LastName: "Timer", Email: "o@x.io"})

	rec := f.do("GET", "/professionals", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]api.ProfessionalResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, f.prof.ID, list[0].ID)
}

func TestStaffRoutes_RequireToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do("GET", "/appointments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do("GET", "/appointments", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestManualBooking_ProfessionalBooksForSelf(t *testing.T) {
	f := newFixture(t)
	tok := f.professionalToken()

	// Manual bookings are not bound to the open slots.
	rec := f.do("POST", "/appointments/manual", tok, map[string]any{
		"professionalId": uuid.NewString(),
		"dateTime":       "2024-01-15T12:00:00Z",
		"patientDetails": map[string]any{"dni": "333", "firstName": "Eva", "lastName": "Diaz"},
		"reason":         "follow up",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[api.AppointmentResponse](t, rec)
	assert.Equal(t, f.prof.ID, created.ProfessionalID)
	assert.Equal(t, "SCHEDULED", created.Status)

	rec = f.do("GET", "/appointments?from=2024-01-15&to=2024-01-15", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]api.AppointmentResponse](t, rec)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Patient)
	assert.Equal(t, "333", list[0].Patient.DNI)

	rec = f.do("POST", "/appointments/manual", tok, map[string]any{
		"dateTime":       "2024-01-15T12:00:00Z",
		"patientDetails": map[string]any{"dni": "444", "firstName": "Leo", "lastName": "Paz"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BookingsTotal.WithLabelValues(metrics.ChannelManual, metrics.OutcomeConflict)))
}

func TestManualBooking_AdminMustNameProfessional(t *testing.T) {
	f := newFixture(t)
	tok := f.adminToken()

	body := map[string]any{
		"dateTime":       "2024-01-15T12:00:00Z",
		"patientDetails": map[string]any{"dni": "333", "firstName": "Eva", "lastName": "Diaz"},
	}
	rec := f.do("POST", "/appointments/manual", tok, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body["professionalId"] = f.prof.ID.String()
	rec = f.do("POST", "/appointments/manual", tok, body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAdminWrites_RecordAdminAsCreator(t *testing.T) {
	f := newFixture(t)
	adminID := uuid.New()
	tok := f.token(auth.Identity{UserID: adminID, Role: auth.RoleAdmin})

	rec := f.do("POST", "/appointments/manual", tok, map[string]any{
		"professionalId": f.prof.ID.String(),
		"dateTime":       "2024-01-15T12:00:00Z",
		"patientDetails": map[string]any{"dni": "555", "firstName": "Eva", "lastName": "Diaz"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do("POST", "/patients", tok, map[string]any{"dni": "556", "firstName": "Leo", "lastName": "Paz"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, dni := range []string{"555", "556"} {
		rec = f.do("GET", "/patients?search="+dni, tok, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decode[[]api.PatientResponse](t, rec)
		require.Len(t, list, 1)
		require.NotNil(t, list[0].CreatedBy, dni)
		assert.Equal(t, adminID, *list[0].CreatedBy, dni)
	}
}

// danglingPatients rejects inserts the way Postgres does when a referenced
// row is missing.
type danglingPatients struct {
	*memstore.Patients
}

func (danglingPatients) Insert(context.Context, patient.Patient) (*patient.Patient, error) {
	return nil, &db.ForeignKeyViolationError{Constraint: "patients_created_by_fkey"}
}

func TestCreatePatient_MissingReferenceIsBadRequest(t *testing.T) {
	f := newFixture(t, func(cfg *api.RouterConfig) {
		cfg.Patients = patient.NewService(danglingPatients{memstore.New().Patients()}, nil)
	})

	rec := f.do("POST", "/patients", f.adminToken(), map[string]any{"dni": "557", "firstName": "Leo", "lastName": "Paz"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_reference", decode[api.ErrorResponse](t, rec).Error)
}

func TestAppointments_OtherProfessionalSeesNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.bookPublic("111", "2024-01-15T09:00:00Z")
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[api.BookingResponse](t, rec).Appointment.ID.String()

	other := f.store.AddProfessional(professional.Professional{FirstName: "Otro", LastName: "Medico", Email: "o@x.io", Active: true})
	otherTok := f.token(auth.Identity{UserID: other.ID, Role: auth.RoleProfessional})

	assert.Equal(t, http.StatusNotFound, f.do("GET", "/appointments/"+id, otherTok, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do("PUT", "/appointments/"+id+"/status", otherTok, map[string]any{"status": "CONFIRMED"}).Code)
	assert.Equal(t, http.StatusOK, f.do("GET", "/appointments/"+id, f.professionalToken(), nil).Code)
	assert.Equal(t, http.StatusOK, f.do("GET", "/appointments/"+id, f.adminToken(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/appointments/nope", f.adminToken(), nil).Code)
}

func TestAppointments_StatusReprogramNotes(t *testing.T) {
	f := newFixture(t)
	tok := f.professionalToken()

	rec := f.bookPublic("111", "2024-01-15T09:00:00Z")
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[api.BookingResponse](t, rec).Appointment.ID.String()

	rec = f.do("PUT", "/appointments/"+id+"/status", tok, map[string]any{"status": "BOGUS"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do("PUT", "/appointments/"+id+"/status", tok, map[string]any{"status": "CONFIRMED"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CONFIRMED", decode[api.AppointmentResponse](t, rec).Status)

	rec = f.do("PUT", "/appointments/"+id+"/reprogram", tok, map[string]any{"dateTime": "2024-01-15T09:30:00Z"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	moved := decode[api.AppointmentResponse](t, rec)
	assert.Equal(t, "SCHEDULED", moved.Status)
	assert.Equal(t, []string{"09:00"}, f.availability("2024-01-15"))

	rec = f.do("PUT", "/appointments/"+id+"/notes", tok, map[string]any{"professionalNotes": "all good"})
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode[api.AppointmentResponse](t, rec).ProfessionalNotes
	require.NotNil(t, notes)
	assert.Equal(t, "all good", *notes)

	rec = f.do("PUT", "/appointments/"+id+"/status", tok, map[string]any{"status": "CANCELED_PATIENT"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"09:00", "09:30"}, f.availability("2024-01-15"))
}

func TestPurge_AdminOnly(t *testing.T) {
	f := newFixture(t)
	rec := f.bookPublic("111", "2024-01-15T09:00:00Z")
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[api.BookingResponse](t, rec).Appointment.ID.String()

	assert.Equal(t, http.StatusForbidden, f.do("DELETE", "/appointments/"+id, f.professionalToken(), nil).Code)

	admin := f.adminToken()
	assert.Equal(t, http.StatusNoContent, f.do("DELETE", "/appointments/"+id, admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do("GET", "/appointments/"+id, admin, nil).Code)
}

func TestScheduleRules_CRUD(t *testing.T) {
	f := newFixture(t)
	tok := f.professionalToken()

	rec := f.do("POST", "/schedule/rules", tok, map[string]any{
		"dayOfWeek": 2, "startTime": "14:00", "endTime": "16:00", "slotDurationMinutes": 60,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rule := decode[api.RuleResponse](t, rec)
	assert.Equal(t, "14:00", rule.StartTime)
	assert.Equal(t, []string{"14:00", "15:00"}, f.availability("2024-01-16"))

	rec = f.do("PUT", "/schedule/rules/"+rule.ID.String(), tok, map[string]any{
		"dayOfWeek": 2, "startTime": "14:00", "endTime": "15:00", "slotDurationMinutes": 30,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"14:00", "14:30"}, f.availability("2024-01-16"))

	rec = f.do("GET", "/schedule/rules", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.RuleResponse](t, rec), 2)

	assert.Equal(t, http.StatusNoContent, f.do("DELETE", "/schedule/rules/"+rule.ID.String(), tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do("DELETE", "/schedule/rules/"+rule.ID.String(), tok, nil).Code)
	assert.Empty(t, f.availability("2024-01-16"))
}

func TestScheduleRules_Validation(t *testing.T) {
	f := newFixture(t)
	tok := f.professionalToken()

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing weekday", map[string]any{"startTime": "09:00", "endTime": "10:00", "slotDurationMinutes": 30}},
		{"weekday out of range", map[string]any{"dayOfWeek": 7, "startTime": "09:00", "endTime": "10:00", "slotDurationMinutes": 30}},
		{"start after end", map[string]any{"dayOfWeek": 1, "startTime": "11:00", "endTime": "10:00", "slotDurationMinutes": 30}},
		{"zero duration", map[string]any{"dayOfWeek": 1, "startTime": "09:00", "endTime": "10:00", "slotDurationMinutes": 0}},
		{"bad time", map[string]any{"dayOfWeek": 1, "startTime": "9am", "endTime": "10:00", "slotDurationMinutes": 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do("POST", "/schedule/rules", tok, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestScheduleRules_AdminNamesProfessional(t *testing.T) {
	f := newFixture(t)
	admin := f.adminToken()

	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/schedule/rules", admin, nil).Code)

	rec := f.do("GET", "/schedule/rules?professionalId="+f.prof.ID.String(), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.RuleResponse](t, rec), 1)
}

func TestScheduleBlocks_AllDayHidesSlots(t *testing.T) {
	f := newFixture(t)
	tok := f.professionalToken()

	rec := f.do("POST", "/schedule/blocks", tok, map[string]any{"isAllDay": true, "date": "2024-01-15", "reason": "congress"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	block := decode[api.BlockResponse](t, rec)
	assert.True(t, block.StartDateTime.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, block.EndDateTime.Equal(time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC)))
	assert.Empty(t, f.availability("2024-01-15"))

	rec = f.do("GET", "/schedule/blocks", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.BlockResponse](t, rec), 1)

	assert.Equal(t, http.StatusNoContent, f.do("DELETE", "/schedule/blocks/"+block.ID.String(), tok, nil).Code)
	assert.Equal(t, []string{"09:00", "09:30"}, f.availability("2024-01-15"))
}

func TestScheduleBlocks_Range(t *testing.T) {
	f := newFixture(t)
	tok := f.professionalToken()

	rec := f.do("POST", "/schedule/blocks", tok, map[string]any{
		"startDateTime": "2024-01-15T09:00:00Z",
		"endDateTime":   "2024-01-15T09:30:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"09:30"}, f.availability("2024-01-15"))

	rec = f.do("POST", "/schedule/blocks", tok, map[string]any{"startDateTime": "2024-01-15T09:00:00Z"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do("POST", "/schedule/blocks", tok, map[string]any{
		"startDateTime": "2024-01-15T10:00:00Z",
		"endDateTime":   "2024-01-15T09:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatients_Lifecycle(t *testing.T) {
	f := newFixture(t)
	tok := f.professionalToken()

	rec := f.do("POST", "/patients", tok, map[string]any{
		"dni": "555", "firstName": "Sol", "lastName": "Rios", "email": "sol@example.com", "birthDate": "1990-04-02",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[api.PatientResponse](t, rec)
	require.NotNil(t, p.BirthDate)
	assert.Equal(t, "1990-04-02", *p.BirthDate)
	require.NotNil(t, p.CreatedBy)
	assert.Equal(t, f.prof.ID, *p.CreatedBy)

	rec = f.do("POST", "/patients", tok, map[string]any{"dni": "666", "firstName": "Lu", "lastName": "Gil"})
	require.Equal(t, http.StatusCreated, rec.Code)
	other := decode[api.PatientResponse](t, rec)

	rec = f.do("PUT", "/patients/"+other.ID.String(), tok, map[string]any{"dni": "555", "firstName": "Lu", "lastName": "Gil"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do("GET", "/patients?search=rios", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]api.PatientResponse](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, p.ID, found[0].ID)

	rec = f.do("PUT", "/patients/"+p.ID.String()+"/archive", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[api.PatientResponse](t, rec).Active)

	rec = f.do("GET", "/patients?active=false", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.PatientResponse](t, rec), 1)

	rec = f.do("PUT", "/patients/"+p.ID.String()+"/reactivate", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[api.PatientResponse](t, rec).Active)

	assert.Equal(t, http.StatusForbidden, f.do("DELETE", "/patients/"+p.ID.String(), tok, nil).Code)
	assert.Equal(t, http.StatusNoContent, f.do("DELETE", "/patients/"+p.ID.String(), f.adminToken(), nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do("GET", "/patients/"+p.ID.String(), tok, nil).Code)
}

func TestPatients_RepeatBookingUpdatesContact(t *testing.T) {
	f := newFixture(t)
	tok := f.professionalToken()

	require.Equal(t, http.StatusCreated, f.bookPublic("111", "2024-01-15T09:00:00Z").Code)

	rec := f.do("POST", "/appointments", "", map[string]any{
		"professionalId": f.prof.ID.String(),
		"dateTime":       "2024-01-15T09:30:00Z",
		"patientDetails": map[string]any{
			"dni": "111", "firstName": "Juan", "lastName": "Perez", "email": "new@example.com", "phone": "1",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do("GET", "/patients?search=111", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]api.PatientResponse](t, rec)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Email)
	assert.Equal(t, "new@example.com", *list[0].Email)
	assert.Nil(t, list[0].CreatedBy)
}

func TestNotifications_NewBookingNotifiesProfessional(t *testing.T) {
	f := newFixture(t)
	tok := f.professionalToken()

	require.Equal(t, http.StatusCreated, f.bookPublic("111", "2024-01-15T09:00:00Z").Code)

	rec := f.do("GET", "/notifications?unread=true", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]api.NotificationResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, notification.TypeNewAppointment, list[0].Type)
	assert.Contains(t, list[0].Message, "Juan Perez")

	id := list[0].ID.String()
	assert.Equal(t, http.StatusNotFound, f.do("PUT", "/notifications/"+id+"/read", f.adminToken(), nil).Code)

	rec = f.do("PUT", "/notifications/"+id+"/read", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[api.NotificationResponse](t, rec).Read)

	rec = f.do("GET", "/notifications?unread=true", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]api.NotificationResponse](t, rec))
}

func TestHealth(t *testing.T) {
	down := api.PingFunc(func(context.Context) error { return errors.New("connection refused") })
	up := api.PingFunc(func(context.Context) error { return nil })

	tests := []struct {
		name       string
		postgres   api.Pinger
		redis      api.Pinger
		wantCode   int
		wantStatus string
	}{
		{"in memory", nil, nil, http.StatusOK, "ok"},
		{"all up", up, up, http.StatusOK, "ok"},
		{"redis down", up, down, http.StatusOK, "degraded"},
		{"postgres down", down, up, http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(cfg *api.RouterConfig) {
				cfg.Postgres = tt.postgres
				cfg.Redis = tt.redis
			})

			rec := f.do("GET", "/health/ready", "", nil)
			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantStatus, decode[api.ReadinessResponse](t, rec).Status)
		})
	}

	f := newFixture(t)
	rec := f.do("GET", "/health/live", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v0.0.0", decode[api.LivenessResponse](t, rec).Version)
}

func TestMiddleware_RequestIDAndMetrics(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest("GET", "/health/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	f.availability("2024-01-15")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("GET", "/availability", "200")))

	rec = f.do("GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
