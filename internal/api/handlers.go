package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/careops/opd-scheduling/internal/booking"
	"github.com/careops/opd-scheduling/internal/followup"
	"github.com/careops/opd-scheduling/internal/schedule"
)

const dateLayout = "2006-01-02"

func getAvailabilityHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		dateStr := r.URL.Query().Get("date")
		date, err := time.ParseInLocation(dateLayout, dateStr, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.GetAvailability(r.Context(), doctorID, date, time.Now())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := AvailabilityResponse{
			DoctorID: doctorID,
			Date:     date.Format(dateLayout),
			Slots:    make([]SlotResponse, 0, len(slots)),
		}
		for _, s := range slots {
			resp.Slots = append(resp.Slots, SlotResponse{
				Start: s.Start.String(),
				End:   s.End.String(),
				State: string(s.State),
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func createBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		departmentID, err := uuid.Parse(req.DepartmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_department_id", "department_id must be a valid UUID")
			return
		}
		date, err := time.ParseInLocation(dateLayout, req.Date, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		slotStart, err := schedule.ParseTimeOfDay(req.SlotStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_start", "slot_start must be HH:MM")
			return
		}

		var bookedBy *uuid.UUID
		if req.BookedBy != "" {
			id, err := uuid.Parse(req.BookedBy)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_booked_by", "booked_by must be a valid UUID")
				return
			}
			bookedBy = &id
		}

		appt, err := svc.CreateBooking(r.Context(), booking.CreateBookingRequest{
			PatientID:    patientID,
			DoctorID:     doctorID,
			DepartmentID: departmentID,
			Date:         date,
			SlotStart:    slotStart,
			Purpose:      req.Purpose,
			BookedBy:     bookedBy,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			if errors.Is(err, booking.ErrAppointmentNotFound) {
				writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func transitionStatusHandler(svc *booking.Service, followUps *followup.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.TransitionStatus(r.Context(), id, booking.Status(req.Status))
		if err != nil {
			handleBookingError(w, err)
			return
		}

		if appt.Status.Terminal() {
			if _, syncErr := followUps.SyncAppointmentOutcome(r.Context(), appt); syncErr != nil {
				log.Printf("failed to sync follow-up for appointment %s: %v", appt.ID, syncErr)
			}
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listDayAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		date, err := time.ParseInLocation(dateLayout, r.URL.Query().Get("date"), time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		appts, err := svc.ListDayAppointments(r.Context(), doctorID, date)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := DayAppointmentsResponse{
			DoctorID:     doctorID,
			Date:         date.Format(dateLayout),
			Appointments: make([]AppointmentResponse, 0, len(appts)),
		}
		for i := range appts {
			resp.Appointments = append(resp.Appointments, toAppointmentResponse(&appts[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func scheduleFollowUpHandler(svc *followup.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_followup_id", "id must be a valid UUID")
			return
		}

		var req ScheduleFollowUpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, slotStart, bookedBy, ok := parseSlotParams(w, req.Date, req.SlotStart, req.BookedBy)
		if !ok {
			return
		}

		appt, err := svc.ScheduleFollowUp(r.Context(), id, date, slotStart, bookedBy)
		if err != nil {
			handleFollowUpError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func rescheduleNoShowHandler(svc *followup.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, slotStart, bookedBy, ok := parseSlotParams(w, req.Date, req.SlotStart, req.BookedBy)
		if !ok {
			return
		}

		appt, err := svc.RescheduleFromNoShow(r.Context(), id, date, slotStart, bookedBy)
		if err != nil {
			handleFollowUpError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getScheduleHandler(store schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, weekday, ok := parseScheduleKey(w, r)
		if !ok {
			return
		}

		entry, err := store.GetWeeklySchedule(r.Context(), doctorID, weekday)
		if err != nil {
			if errors.Is(err, schedule.ErrScheduleNotFound) {
				writeError(w, http.StatusNotFound, "schedule_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toScheduleResponse(entry))
	}
}

func upsertScheduleHandler(store schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, weekday, ok := parseScheduleKey(w, r)
		if !ok {
			return
		}

		var req UpsertScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		start, err := schedule.ParseTimeOfDay(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM")
			return
		}
		end, err := schedule.ParseTimeOfDay(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be HH:MM")
			return
		}

		entry, err := store.UpsertWeeklySchedule(r.Context(), &schedule.WeeklyScheduleEntry{
			DoctorID:    doctorID,
			Weekday:     weekday,
			StartTime:   start,
			EndTime:     end,
			SlotMinutes: req.SlotMinutes,
			Location:    req.Location,
		})
		if err != nil {
			if errors.Is(err, schedule.ErrInvalidEntry) {
				writeError(w, http.StatusBadRequest, "invalid_schedule", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toScheduleResponse(entry))
	}
}

func deleteScheduleHandler(store schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, weekday, ok := parseScheduleKey(w, r)
		if !ok {
			return
		}

		if err := store.DeleteWeeklySchedule(r.Context(), doctorID, weekday); err != nil {
			if errors.Is(err, schedule.ErrScheduleNotFound) {
				writeError(w, http.StatusNotFound, "schedule_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func createFollowUpHandler(svc *followup.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateFollowUpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		departmentID, err := uuid.Parse(req.DepartmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_department_id", "department_id must be a valid UUID")
			return
		}
		dueDate, err := time.ParseInLocation(dateLayout, req.DueDate, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_due_date", "due_date must be YYYY-MM-DD")
			return
		}

		fu, err := svc.CreateFollowUp(r.Context(), &followup.FollowUp{
			PatientID:    patientID,
			DoctorID:     doctorID,
			DepartmentID: departmentID,
			DueDate:      dueDate,
			Note:         req.Note,
		})
		if err != nil {
			handleFollowUpError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toFollowUpResponse(fu))
	}
}

func listWaitingFollowUpsHandler(svc *followup.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		// Defaults to today: the list of follow-ups currently due.
		dueBefore := time.Now()
		if v := r.URL.Query().Get("due_before"); v != "" {
			dueBefore, err = time.ParseInLocation(dateLayout, v, time.Local)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_due_before", "due_before must be YYYY-MM-DD")
				return
			}
		}

		waiting, err := svc.ListWaiting(r.Context(), doctorID, dueBefore)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := FollowUpListResponse{
			DoctorID:  doctorID,
			DueBefore: dueBefore.Format(dateLayout),
			FollowUps: make([]FollowUpResponse, 0, len(waiting)),
		}
		for i := range waiting {
			resp.FollowUps = append(resp.FollowUps, toFollowUpResponse(&waiting[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func getFollowUpHandler(svc *followup.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_followup_id", "id must be a valid UUID")
			return
		}

		fu, err := svc.GetFollowUp(r.Context(), id)
		if err != nil {
			if errors.Is(err, followup.ErrFollowUpNotFound) {
				writeError(w, http.StatusNotFound, "followup_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toFollowUpResponse(fu))
	}
}

// Error mapping

func handleBookingError(w http.ResponseWriter, err error) {
	var validationErr *booking.ValidationError
	var duplicateErr *booking.DuplicateBookingError
	var transitionErr *booking.InvalidTransitionError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "validation_failed", validationErr.Reason)
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "slot is not available, please re-fetch availability")
	case errors.As(err, &duplicateErr):
		resp := ErrorResponse{
			Error:   "duplicate_booking",
			Details: duplicateErr.Error(),
		}
		if id := duplicateErr.ConflictingID(); id != uuid.Nil {
			resp.Conflicting = id.String()
		}
		writeJSON(w, http.StatusConflict, resp)
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusConflict, "invalid_status_transition", transitionErr.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleFollowUpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, followup.ErrFollowUpNotFound):
		writeError(w, http.StatusNotFound, "followup_not_found", err.Error())
	case errors.Is(err, followup.ErrFollowUpNotWaiting):
		writeError(w, http.StatusConflict, "followup_not_waiting", err.Error())
	case errors.Is(err, followup.ErrNotNoShow):
		writeError(w, http.StatusConflict, "appointment_not_no_show", err.Error())
	default:
		handleBookingError(w, err)
	}
}

// Shared parsing helpers

func parseScheduleKey(w http.ResponseWriter, r *http.Request) (uuid.UUID, time.Weekday, bool) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
		return uuid.Nil, 0, false
	}

	wd, err := strconv.Atoi(chi.URLParam(r, "weekday"))
	if err != nil || wd < 0 || wd > 6 {
		writeError(w, http.StatusBadRequest, "invalid_weekday", "weekday must be 0 (Sunday) through 6 (Saturday)")
		return uuid.Nil, 0, false
	}

	return doctorID, time.Weekday(wd), true
}

func parseSlotParams(w http.ResponseWriter, dateStr, slotStr, bookedByStr string) (time.Time, schedule.TimeOfDay, *uuid.UUID, bool) {
	date, err := time.ParseInLocation(dateLayout, dateStr, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return time.Time{}, 0, nil, false
	}

	slotStart, err := schedule.ParseTimeOfDay(slotStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot_start", "slot_start must be HH:MM")
		return time.Time{}, 0, nil, false
	}

	var bookedBy *uuid.UUID
	if bookedByStr != "" {
		id, err := uuid.Parse(bookedByStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booked_by", "booked_by must be a valid UUID")
			return time.Time{}, 0, nil, false
		}
		bookedBy = &id
	}

	return date, slotStart, bookedBy, true
}

// Response mapping

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		PatientID:    a.PatientID,
		DoctorID:     a.DoctorID,
		DepartmentID: a.DepartmentID,
		Date:         a.Date.Format(dateLayout),
		SlotStart:    a.SlotStart.String(),
		SlotEnd:      a.SlotEnd.String(),
		Status:       string(a.Status),
		Purpose:      a.Purpose,
		BookedBy:     a.BookedBy,
		CreatedAt:    a.CreatedAt,
	}
}

func toScheduleResponse(e *schedule.WeeklyScheduleEntry) ScheduleEntryResponse {
	return ScheduleEntryResponse{
		ID:          e.ID,
		DoctorID:    e.DoctorID,
		Weekday:     int(e.Weekday),
		StartTime:   e.StartTime.String(),
		EndTime:     e.EndTime.String(),
		SlotMinutes: e.SlotMinutes,
		Location:    e.Location,
	}
}

func toFollowUpResponse(f *followup.FollowUp) FollowUpResponse {
	return FollowUpResponse{
		ID:            f.ID,
		PatientID:     f.PatientID,
		DoctorID:      f.DoctorID,
		DepartmentID:  f.DepartmentID,
		DueDate:       f.DueDate.Format(dateLayout),
		Note:          f.Note,
		Status:        string(f.Status),
		AppointmentID: f.AppointmentID,
	}
}
