package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/db"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
)

func listPatientsHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			f   = patient.ListFilter{Search: r.URL.Query().Get("search")}
			err error
		)
		if f.Active, err = queryBool(r, "active"); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if f.Limit, err = queryInt(r, "limit"); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if f.Offset, err = queryInt(r, "offset"); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		list, err := svc.List(r.Context(), f)
		if err != nil {
			handlePatientError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, mapSlice(list, toPatientResponse))
	}
}

// createPatientHandler goes through the same DNI upsert as bookings, so
// posting a known DNI updates that patient.
func createPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PatientDetailsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		details, err := req.toDetails()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		caller := identity(r)
		p, err := svc.Create(r.Context(), details, &caller.UserID)
		if err != nil {
			handlePatientError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toPatientResponse(*p))
	}
}

func getPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", err.Error())
			return
		}

		p, err := svc.Get(r.Context(), id)
		if err != nil {
			handlePatientError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toPatientResponse(*p))
	}
}

func updatePatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", err.Error())
			return
		}

		var req PatientDetailsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		details, err := req.toDetails()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		p, err := svc.Update(r.Context(), id, details)
		if err != nil {
			handlePatientError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toPatientResponse(*p))
	}
}

// patientStateHandler serves archive and reactivate.
func patientStateHandler(change func(context.Context, uuid.UUID) (*patient.Patient, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", err.Error())
			return
		}

		p, err := change(r.Context(), id)
		if err != nil {
			handlePatientError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toPatientResponse(*p))
	}
}

func deletePatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", err.Error())
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			handlePatientError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handlePatientError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, patient.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", "patient not found")
	case errors.Is(err, patient.ErrDuplicateDNI):
		writeError(w, http.StatusConflict, "duplicate_dni", err.Error())
	case errors.Is(err, patient.ErrInvalidPatient):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, db.ErrForeignKeyViolation):
		writeError(w, http.StatusBadRequest, "invalid_reference", db.ErrForeignKeyViolation.Error())
	default:
		writeInternal(w, r, err)
	}
}
