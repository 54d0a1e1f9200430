package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/appointment"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/notification"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/professional"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/schedule"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Requests

// PublicPatientDetails is what the self-service booking form submits.
type PublicPatientDetails struct {
	DNI       string  `json:"dni" validate:"required,max=20"`
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	Email     string  `json:"email" validate:"required,email"`
	Phone     string  `json:"phone" validate:"required,max=30"`
	BirthDate *string `json:"birthDate"`
	Reason    *string `json:"motivo" validate:"omitempty,max=500"`
}

type PublicBookingRequest struct {
	ProfessionalID string               `json:"professionalId" validate:"required,uuid"`
	DateTime       string               `json:"dateTime" validate:"required"`
	PatientDetails PublicPatientDetails `json:"patientDetails"`
}

// PatientDetailsRequest is the staff form, where contact fields are optional.
type PatientDetailsRequest struct {
	DNI       string  `json:"dni" validate:"required,max=20"`
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
	BirthDate *string `json:"birthDate"`
}

// ManualBookingRequest is used by staff. ProfessionalID is required for
// admins and ignored for professionals, who always book for themselves.
type ManualBookingRequest struct {
	ProfessionalID string                `json:"professionalId" validate:"omitempty,uuid"`
	DateTime       string                `json:"dateTime" validate:"required"`
	PatientDetails PatientDetailsRequest `json:"patientDetails"`
	Reason         *string               `json:"reason" validate:"omitempty,max=500"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type ReprogramRequest struct {
	DateTime string `json:"dateTime" validate:"required"`
}

type UpdateNotesRequest struct {
	Notes *string `json:"professionalNotes"`
}

type RuleRequest struct {
	Weekday     *int   `json:"dayOfWeek" validate:"required,min=0,max=6"`
	StartTime   string `json:"startTime" validate:"required"`
	EndTime     string `json:"endTime" validate:"required"`
	SlotMinutes int    `json:"slotDurationMinutes" validate:"required,min=1,max=480"`
}

// BlockRequest creates a time block. All-day blocks only need StartDateTime
// or Date.
type BlockRequest struct {
	StartDateTime string  `json:"startDateTime"`
	EndDateTime   string  `json:"endDateTime"`
	Date          string  `json:"date"`
	AllDay        bool    `json:"isAllDay"`
	Reason        *string `json:"reason" validate:"omitempty,max=255"`
}

// Responses

type BookingResponse struct {
	Appointment BookedAppointment `json:"appointment"`
}

type BookedAppointment struct {
	ID        uuid.UUID `json:"id"`
	DateTime  time.Time `json:"dateTime"`
	PatientID uuid.UUID `json:"patientId"`
}

type PatientSummary struct {
	DNI       string `json:"dni"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type AppointmentResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProfessionalID    uuid.UUID       `json:"professionalId"`
	PatientID         uuid.UUID       `json:"patientId"`
	DateTime          time.Time       `json:"dateTime"`
	Status            string          `json:"status"`
	Reason            *string         `json:"reason,omitempty"`
	ProfessionalNotes *string         `json:"professionalNotes,omitempty"`
	Patient           *PatientSummary `json:"patient,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

type ProfessionalResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Specialty *string   `json:"specialty,omitempty"`
}

type PatientResponse struct {
	ID        uuid.UUID  `json:"id"`
	DNI       string     `json:"dni"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     *string    `json:"email,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	BirthDate *string    `json:"birthDate,omitempty"`
	Active    bool       `json:"active"`
	CreatedBy *uuid.UUID `json:"createdBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type RuleResponse struct {
	ID          uuid.UUID `json:"id"`
	Weekday     int       `json:"dayOfWeek"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	SlotMinutes int       `json:"slotDurationMinutes"`
}

type BlockResponse struct {
	ID            uuid.UUID `json:"id"`
	StartDateTime time.Time `json:"startDateTime"`
	EndDateTime   time.Time `json:"endDateTime"`
	AllDay        bool      `json:"isAllDay"`
	Reason        *string   `json:"reason,omitempty"`
}

type NotificationResponse struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

func toAppointmentResponse(a appointment.Appointment, loc *time.Location) AppointmentResponse {
	return AppointmentResponse{
		ID:                a.ID,
		ProfessionalID:    a.ProfessionalID,
		PatientID:         a.PatientID,
		DateTime:          a.DateTime.In(loc),
		Status:            string(a.Status),
		Reason:            a.Reason,
		ProfessionalNotes: a.ProfessionalNotes,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func toAppointmentDetailResponse(a appointment.AppointmentDetail, loc *time.Location) AppointmentResponse {
	resp := toAppointmentResponse(a.Appointment, loc)
	resp.Patient = &PatientSummary{
		DNI:       a.PatientDNI,
		FirstName: a.PatientFirstName,
		LastName:  a.PatientLastName,
	}
	return resp
}

func toProfessionalResponse(p professional.Professional) ProfessionalResponse {
	return ProfessionalResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Specialty: p.Specialty,
	}
}

func toPatientResponse(p patient.Patient) PatientResponse {
	resp := PatientResponse{
		ID:        p.ID,
		DNI:       p.DNI,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		Active:    p.Active,
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.BirthDate != nil {
		s := p.BirthDate.Format(time.DateOnly)
		resp.BirthDate = &s
	}
	return resp
}

func toRuleResponse(r schedule.Rule) RuleResponse {
	return RuleResponse{
		ID:          r.ID,
		Weekday:     int(r.Weekday),
		StartTime:   r.StartTime.String(),
		EndTime:     r.EndTime.String(),
		SlotMinutes: r.SlotMinutes,
	}
}

func toBlockResponse(b schedule.Block, loc *time.Location) BlockResponse {
	return BlockResponse{
		ID:            b.ID,
		StartDateTime: b.Start.In(loc),
		EndDateTime:   b.End.In(loc),
		AllDay:        b.AllDay,
		Reason:        b.Reason,
	}
}

func toNotificationResponse(n notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
