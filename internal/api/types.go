package api

import (
	"time"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	PatientID    string `json:"patient_id"`
	DoctorID     string `json:"doctor_id"`
	DepartmentID string `json:"department_id"`
	Date         string `json:"date"`       // YYYY-MM-DD
	SlotStart    string `json:"slot_start"` // HH:MM
	Purpose      string `json:"purpose,omitempty"`
	BookedBy     string `json:"booked_by,omitempty"`
}

type TransitionRequest struct {
	Status string `json:"status"`
}

type ScheduleFollowUpRequest struct {
	Date      string `json:"date"`
	SlotStart string `json:"slot_start"`
	BookedBy  string `json:"booked_by,omitempty"`
}

type RescheduleRequest struct {
	Date      string `json:"date"`
	SlotStart string `json:"slot_start"`
	BookedBy  string `json:"booked_by,omitempty"`
}

type CreateFollowUpRequest struct {
	PatientID    string `json:"patient_id"`
	DoctorID     string `json:"doctor_id"`
	DepartmentID string `json:"department_id"`
	DueDate      string `json:"due_date"` // YYYY-MM-DD
	Note         string `json:"note,omitempty"`
}

type UpsertScheduleRequest struct {
	StartTime   string  `json:"start_time"` // HH:MM
	EndTime     string  `json:"end_time"`   // HH:MM
	SlotMinutes int     `json:"slot_minutes"`
	Location    *string `json:"location,omitempty"`
}

type AppointmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	DoctorID     uuid.UUID  `json:"doctor_id"`
	DepartmentID uuid.UUID  `json:"department_id"`
	Date         string     `json:"date"`
	SlotStart    string     `json:"slot_start"`
	SlotEnd      string     `json:"slot_end"`
	Status       string     `json:"status"`
	Purpose      string     `json:"purpose,omitempty"`
	BookedBy     *uuid.UUID `json:"booked_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type SlotResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
	State string `json:"state"`
}

type AvailabilityResponse struct {
	DoctorID uuid.UUID      `json:"doctor_id"`
	Date     string         `json:"date"`
	Slots    []SlotResponse `json:"slots"`
}

type ScheduleEntryResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	Weekday     int       `json:"weekday"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	SlotMinutes int       `json:"slot_minutes"`
	Location    *string   `json:"location,omitempty"`
}

type FollowUpResponse struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	DepartmentID  uuid.UUID  `json:"department_id"`
	DueDate       string     `json:"due_date"`
	Note          string     `json:"note,omitempty"`
	Status        string     `json:"status"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
}

type FollowUpListResponse struct {
	DoctorID  uuid.UUID          `json:"doctor_id"`
	DueBefore string             `json:"due_before"`
	FollowUps []FollowUpResponse `json:"followups"`
}

type DayAppointmentsResponse struct {
	DoctorID     uuid.UUID             `json:"doctor_id"`
	Date         string                `json:"date"`
	Appointments []AppointmentResponse `json:"appointments"`
}

type ErrorResponse struct {
	Error       string `json:"error"`
	Details     string `json:"details,omitempty"`
	Conflicting string `json:"conflicting_appointment_id,omitempty"`
}
