package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/appointment"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/db"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/metrics"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/professional"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/schedule"
)

func listProfessionalsHandler(repo professional.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := repo.List(r.Context(), true)
		if err != nil {
			writeInternal(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, mapSlice(list, toProfessionalResponse))
	}
}

func availabilityHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		rawID := q.Get("professionalId")
		rawDate := q.Get("date")
		if rawID == "" || rawDate == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "date and professionalId are required")
			return
		}

		professionalID, err := uuid.Parse(rawID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "professionalId must be a valid UUID")
			return
		}

		date, err := svc.ParseDate(rawDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		slots, err := svc.Availability(r.Context(), professionalID, date)
		if err != nil {
			writeInternal(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, slots)
	}
}

func publicBookingHandler(svc *appointment.Service, loc *time.Location, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reject := func(details string) {
			m.ObserveBooking(metrics.ChannelPublic, metrics.OutcomeInvalid)
			writeError(w, http.StatusBadRequest, "invalid_request", details)
		}

		var req PublicBookingRequest
		if err := decodeJSON(r, &req); err != nil {
			reject(err.Error())
			return
		}

		professionalID, err := uuid.Parse(req.ProfessionalID)
		if err != nil {
			reject("professionalId must be a valid UUID")
			return
		}

		at, err := parseDateTime(req.DateTime, loc)
		if err != nil {
			reject(err.Error())
			return
		}

		details, err := req.PatientDetails.toDetails()
		if err != nil {
			reject(err.Error())
			return
		}

		booking, err := svc.BookPublic(r.Context(), appointment.BookingRequest{
			ProfessionalID: professionalID,
			DateTime:       at,
			Patient:        details,
			Reason:         req.PatientDetails.Reason,
		})
		if err != nil {
			handleBookingError(w, r, m, metrics.ChannelPublic, err)
			return
		}

		m.ObserveBooking(metrics.ChannelPublic, metrics.OutcomeCreated)
		writeJSON(w, http.StatusCreated, BookingResponse{
			Appointment: BookedAppointment{
				ID:        booking.Appointment.ID,
				DateTime:  booking.Appointment.DateTime.In(loc),
				PatientID: booking.Patient.ID,
			},
		})
	}
}

func manualBookingHandler(svc *appointment.Service, loc *time.Location, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reject := func(details string) {
			m.ObserveBooking(metrics.ChannelManual, metrics.OutcomeInvalid)
			writeError(w, http.StatusBadRequest, "invalid_request", details)
		}

		var req ManualBookingRequest
		if err := decodeJSON(r, &req); err != nil {
			reject(err.Error())
			return
		}

		caller := identity(r)
		professionalID, err := actingProfessional(caller, req.ProfessionalID)
		if err != nil {
			reject(err.Error())
			return
		}

		at, err := parseDateTime(req.DateTime, loc)
		if err != nil {
			reject(err.Error())
			return
		}

		details, err := req.PatientDetails.toDetails()
		if err != nil {
			reject(err.Error())
			return
		}

		booking, err := svc.BookManual(r.Context(), appointment.BookingRequest{
			ProfessionalID: professionalID,
			DateTime:       at,
			Patient:        details,
			Reason:         req.Reason,
			CreatedBy:      &caller.UserID,
		})
		if err != nil {
			handleBookingError(w, r, m, metrics.ChannelManual, err)
			return
		}

		m.ObserveBooking(metrics.ChannelManual, metrics.OutcomeCreated)

		resp := toAppointmentResponse(booking.Appointment, loc)
		resp.Patient = &PatientSummary{
			DNI:       booking.Patient.DNI,
			FirstName: booking.Patient.FirstName,
			LastName:  booking.Patient.LastName,
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func listAppointmentsHandler(svc *appointment.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := appointmentFilter(r, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		list, err := svc.List(r.Context(), scopeOf(identity(r)), f)
		if err != nil {
			handleAppointmentError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, mapSlice(list, func(a appointment.AppointmentDetail) AppointmentResponse {
			return toAppointmentDetailResponse(a, loc)
		}))
	}
}

func appointmentFilter(r *http.Request, loc *time.Location) (appointment.ListFilter, error) {
	var (
		f   appointment.ListFilter
		err error
	)
	q := r.URL.Query()

	if f.ProfessionalID, err = queryUUID(r, "professionalId"); err != nil {
		return f, err
	}
	if f.PatientID, err = queryUUID(r, "patientId"); err != nil {
		return f, err
	}
	if raw := q.Get("from"); raw != "" {
		from, err := parseRangeBound(raw, loc, false)
		if err != nil {
			return f, err
		}
		f.From = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := parseRangeBound(raw, loc, true)
		if err != nil {
			return f, err
		}
		f.To = &to
	}
	if raw := q.Get("status"); raw != "" {
		st, err := appointment.ParseStatus(raw)
		if err != nil {
			return f, err
		}
		f.Status = &st
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(r, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

// parseRangeBound reads a date or a date time. A bare date used as an upper
// bound covers the whole day.
func parseRangeBound(raw string, loc *time.Location, upper bool) (time.Time, error) {
	if d, err := time.ParseInLocation(time.DateOnly, raw, loc); err == nil {
		if upper {
			return d.AddDate(0, 0, 1), nil
		}
		return d, nil
	}
	return parseDateTime(raw, loc)
}

func getAppointmentHandler(svc *appointment.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", err.Error())
			return
		}

		appt, err := svc.Get(r.Context(), scopeOf(identity(r)), id)
		if err != nil {
			handleAppointmentError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt, loc))
	}
}

func updateStatusHandler(svc *appointment.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", err.Error())
			return
		}

		var req UpdateStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), scopeOf(identity(r)), id, appointment.Status(req.Status))
		if err != nil {
			handleAppointmentError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt, loc))
	}
}

func reprogramHandler(svc *appointment.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", err.Error())
			return
		}

		var req ReprogramRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		at, err := parseDateTime(req.DateTime, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		appt, err := svc.Reprogram(r.Context(), scopeOf(identity(r)), id, at)
		if err != nil {
			handleAppointmentError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt, loc))
	}
}

func updateNotesHandler(svc *appointment.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", err.Error())
			return
		}

		var req UpdateNotesRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		appt, err := svc.UpdateNotes(r.Context(), scopeOf(identity(r)), id, req.Notes)
		if err != nil {
			handleAppointmentError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt, loc))
	}
}

func purgeAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", err.Error())
			return
		}

		if err := svc.Purge(r.Context(), id); err != nil {
			handleAppointmentError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleBookingError(w http.ResponseWriter, r *http.Request, m *metrics.Metrics, channel string, err error) {
	switch {
	case errors.Is(err, appointment.ErrSlotUnavailable):
		m.ObserveBooking(channel, metrics.OutcomeConflict)
		writeError(w, http.StatusConflict, "slot_unavailable", appointment.ErrSlotUnavailable.Error())
	case errors.Is(err, appointment.ErrInvalidBooking), errors.Is(err, patient.ErrInvalidPatient):
		m.ObserveBooking(channel, metrics.OutcomeInvalid)
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, professional.ErrProfessionalNotFound):
		m.ObserveBooking(channel, metrics.OutcomeInvalid)
		writeError(w, http.StatusNotFound, "professional_not_found", err.Error())
	case errors.Is(err, db.ErrForeignKeyViolation):
		m.ObserveBooking(channel, metrics.OutcomeInvalid)
		writeError(w, http.StatusBadRequest, "invalid_reference", db.ErrForeignKeyViolation.Error())
	default:
		m.ObserveBooking(channel, metrics.OutcomeError)
		writeInternal(w, r, err)
	}
}

func handleAppointmentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", "appointment not found")
	case errors.Is(err, appointment.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", appointment.ErrSlotUnavailable.Error())
	case errors.Is(err, appointment.ErrInvalidStatus), errors.Is(err, appointment.ErrInvalidBooking):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeInternal(w, r, err)
	}
}
