package booking

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/careops/opd-scheduling/internal/redis"
	"github.com/careops/opd-scheduling/internal/schedule"
)

// 2026-09-07 is a Monday; "now" defaults to the preceding Tuesday morning so
// the Monday is a plain future date.
var (
	testMonday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	testNow    = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
)

type testEnv struct {
	svc       *Service
	ledger    *MemLedger
	schedules *schedule.MemStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	schedules := schedule.NewMemStore()
	ledger := NewMemLedger()
	svc := NewService(schedules, ledger, redisclient.NewLocalLocker())
	svc.now = func() time.Time { return testNow }
	return &testEnv{svc: svc, ledger: ledger, schedules: schedules}
}

func (e *testEnv) addSchedule(t *testing.T, doctorID uuid.UUID, weekday time.Weekday, start, end string, slotMins int) {
	t.Helper()
	_, err := e.schedules.UpsertWeeklySchedule(context.Background(), &schedule.WeeklyScheduleEntry{
		DoctorID:    doctorID,
		Weekday:     weekday,
		StartTime:   schedule.MustTimeOfDay(start),
		EndTime:     schedule.MustTimeOfDay(end),
		SlotMinutes: slotMins,
	})
	if err != nil {
		t.Fatalf("upsert schedule: %v", err)
	}
}

func bookingReq(patientID, doctorID uuid.UUID, date time.Time, slotStart string) CreateBookingRequest {
	return CreateBookingRequest{
		PatientID:    patientID,
		DoctorID:     doctorID,
		DepartmentID: uuid.New(),
		Date:         date,
		SlotStart:    schedule.MustTimeOfDay(slotStart),
		Purpose:      "OPD consultation",
	}
}

// Availability Resolver

func TestGetAvailability_SixteenSlots(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	env.addSchedule(t, doctorID, time.Monday, "09:00", "13:00", 15)

	slots, err := env.svc.GetAvailability(context.Background(), doctorID, testMonday, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
	for i, s := range slots {
		if s.State != SlotFree {
			t.Errorf("slot %d state = %s, want free", i, s.State)
		}
		if i > 0 && s.Start <= slots[i-1].Start {
			t.Errorf("slots out of order at %d", i)
		}
	}
}

func TestGetAvailability_NoScheduleConfigured(t *testing.T) {
	env := newTestEnv(t)

	slots, err := env.svc.GetAvailability(context.Background(), uuid.New(), testMonday, testNow)
	if err != nil {
		t.Fatalf("no schedule must not be an error, got: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected empty availability, got %d slots", len(slots))
	}
}

func TestGetAvailability_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	env.addSchedule(t, doctorID, time.Monday, "09:00", "12:00", 30)

	first, err := env.svc.GetAvailability(context.Background(), doctorID, testMonday, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := env.svc.GetAvailability(context.Background(), doctorID, testMonday, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("availability differs between identical calls")
	}
}

func TestGetAvailability_BookedAndPastStates(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	env.addSchedule(t, doctorID, time.Monday, "09:00", "11:00", 30)

	// Booking at 10:00 on the target date.
	if _, err := env.svc.CreateBooking(context.Background(), bookingReq(uuid.New(), doctorID, testMonday, "10:00")); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	// Query as of 09:30 on the target date itself.
	now := schedule.MustTimeOfDay("09:30").OnDate(testMonday)
	slots, err := env.svc.GetAvailability(context.Background(), doctorID, testMonday, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []SlotState{SlotPast, SlotPast, SlotBooked, SlotFree}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}
	for i, s := range slots {
		if s.State != want[i] {
			t.Errorf("slot %s state = %s, want %s", s.Start, s.State, want[i])
		}
	}
}

func TestGetAvailability_BookedBeatsPast(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	env.addSchedule(t, doctorID, time.Monday, "09:00", "10:00", 30)

	if _, err := env.svc.CreateBooking(context.Background(), bookingReq(uuid.New(), doctorID, testMonday, "09:00")); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	// By late morning the 09:00 slot is behind us, but it is still reported
	// booked, not past.
	now := schedule.MustTimeOfDay("11:00").OnDate(testMonday)
	slots, err := env.svc.GetAvailability(context.Background(), doctorID, testMonday, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slots[0].State != SlotBooked {
		t.Errorf("elapsed booked slot state = %s, want booked", slots[0].State)
	}
	if slots[1].State != SlotPast {
		t.Errorf("elapsed free slot state = %s, want past", slots[1].State)
	}
}

func TestGetAvailability_SlotStartingNowIsPast(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	env.addSchedule(t, doctorID, time.Monday, "09:00", "10:00", 30)

	now := schedule.MustTimeOfDay("09:30").OnDate(testMonday)
	slots, err := env.svc.GetAvailability(context.Background(), doctorID, testMonday, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slots[1].Start != schedule.MustTimeOfDay("09:30") {
		t.Fatalf("unexpected slot layout")
	}
	if slots[1].State != SlotPast {
		t.Errorf("slot starting exactly now = %s, want past", slots[1].State)
	}
}

func TestGetAvailability_WholeDayInPast(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	env.addSchedule(t, doctorID, time.Monday, "09:00", "10:00", 30)

	now := testMonday.AddDate(0, 0, 2)
	slots, err := env.svc.GetAvailability(context.Background(), doctorID, testMonday, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range slots {
		if s.State != SlotPast {
			t.Errorf("slot %s state = %s, want past", s.Start, s.State)
		}
	}
}

// Booking Coordinator

func TestCreateBooking_Success(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	patientID := uuid.New()
	env.addSchedule(t, doctorID, time.Monday, "09:00", "13:00", 15)

	appt, err := env.svc.CreateBooking(context.Background(), bookingReq(patientID, doctorID, testMonday, "09:45"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.Status != StatusBooked {
		t.Errorf("status = %s, want booked", appt.Status)
	}
	if appt.SlotEnd != schedule.MustTimeOfDay("10:00") {
		t.Errorf("slot end = %s, want 10:00", appt.SlotEnd)
	}
	if appt.PatientID != patientID || appt.DoctorID != doctorID {
		t.Error("appointment does not carry the requested patient/doctor")
	}
	if appt.ID == uuid.Nil {
		t.Error("appointment id not assigned")
	}
}

func TestCreateBooking_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	req := bookingReq(uuid.New(), uuid.New(), testMonday, "09:00")
	req.PatientID = uuid.Nil

	_, err := env.svc.CreateBooking(context.Background(), req)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateBooking_PastDate(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	env.addSchedule(t, doctorID, time.Monday, "09:00", "13:00", 15)

	yesterday := testNow.AddDate(0, 0, -1)
	_, err := env.svc.CreateBooking(context.Background(), bookingReq(uuid.New(), doctorID, yesterday, "09:00"))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for past date, got %v", err)
	}
}

func TestCreateBooking_SlotStartAtNow(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	env.addSchedule(t, doctorID, testNow.Weekday(), "09:00", "13:00", 15)

	// testNow is 10:00 on its date; a 10:00 slot today is already gone.
	_, err := env.svc.CreateBooking(context.Background(), bookingReq(uuid.New(), doctorID, testNow, "10:00"))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for slot starting now, got %v", err)
	}
}

func TestCreateBooking_SlotTaken(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	env.addSchedule(t, doctorID, time.Monday, "09:00", "13:00", 15)

	if _, err := env.svc.CreateBooking(context.Background(), bookingReq(uuid.New(), doctorID, testMonday, "09:00")); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err := env.svc.CreateBooking(context.Background(), bookingReq(uuid.New(), doctorID, testMonday, "09:00"))
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestCreateBooking_SlotNotOnGrid(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	env.addSchedule(t, doctorID, time.Monday, "09:00", "13:00", 15)

	// 09:07 is not a candidate start.
	_, err := env.svc.CreateBooking(context.Background(), bookingReq(uuid.New(), doctorID, testMonday, "09:07"))
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable for off-grid slot, got %v", err)
	}
}

func TestCreateBooking_DuplicatePatientAcrossDoctors(t *testing.T) {
	env := newTestEnv(t)
	doctorA := uuid.New()
	doctorB := uuid.New()
	patientID := uuid.New()
	env.addSchedule(t, doctorA, time.Monday, "09:00", "13:00", 15)
	env.addSchedule(t, doctorB, time.Monday, "09:00", "13:00", 15)

	first, err := env.svc.CreateBooking(context.Background(), bookingReq(patientID, doctorA, testMonday, "09:00"))
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err = env.svc.CreateBooking(context.Background(), bookingReq(patientID, doctorB, testMonday, "11:00"))
	var dupErr *DuplicateBookingError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected DuplicateBookingError, got %v", err)
	}
	if dupErr.ConflictingID() != first.ID {
		t.Errorf("conflicting id = %s, want %s", dupErr.ConflictingID(), first.ID)
	}
}

// The Monday morning scenario: two 30-minute slots, one patient.
func TestCreateBooking_MondayScenario(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	patientID := uuid.New()
	env.addSchedule(t, doctorID, time.Monday, "09:00", "10:00", 30)

	ctx := context.Background()

	slots, err := env.svc.GetAvailability(ctx, doctorID, testMonday, testNow)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(slots) != 2 || slots[0].State != SlotFree || slots[1].State != SlotFree {
		t.Fatalf("expected two free slots, got %+v", slots)
	}

	if _, err := env.svc.CreateBooking(ctx, bookingReq(patientID, doctorID, testMonday, "09:00")); err != nil {
		t.Fatalf("booking 09:00: %v", err)
	}

	slots, err = env.svc.GetAvailability(ctx, doctorID, testMonday, testNow)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if slots[0].State != SlotBooked || slots[1].State != SlotFree {
		t.Fatalf("after booking: got %s/%s, want booked/free", slots[0].State, slots[1].State)
	}

	// Same patient, same date, free slot: still rejected.
	_, err = env.svc.CreateBooking(ctx, bookingReq(patientID, doctorID, testMonday, "09:30"))
	var dupErr *DuplicateBookingError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected DuplicateBookingError for second booking, got %v", err)
	}
}

func TestCreateBooking_CancelFreesSlot(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	env.addSchedule(t, doctorID, time.Monday, "09:00", "10:00", 30)

	ctx := context.Background()

	appt, err := env.svc.CreateBooking(ctx, bookingReq(uuid.New(), doctorID, testMonday, "09:00"))
	if err != nil {
		t.Fatalf("booking: %v", err)
	}

	if _, err := env.svc.TransitionStatus(ctx, appt.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	slots, err := env.svc.GetAvailability(ctx, doctorID, testMonday, testNow)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if slots[0].State != SlotFree {
		t.Errorf("cancelled slot state = %s, want free", slots[0].State)
	}

	// And it is rebookable, by the same patient too.
	if _, err := env.svc.CreateBooking(ctx, bookingReq(appt.PatientID, doctorID, testMonday, "09:00")); err != nil {
		t.Fatalf("rebooking cancelled slot: %v", err)
	}
}

func TestCreateBooking_ConcurrentSameSlot(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	env.addSchedule(t, doctorID, time.Monday, "09:00", "13:00", 15)

	const clerks = 8
	errs := make([]error, clerks)

	var wg sync.WaitGroup
	for i := 0; i < clerks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.CreateBooking(context.Background(), bookingReq(uuid.New(), doctorID, testMonday, "09:00"))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrSlotUnavailable):
		default:
			t.Errorf("unexpected loser error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

// raceLedger sneaks a rival appointment in just before the first insert, so
// the coordinator hits the uniqueness constraint and has to retry against
// fresh state.
type raceLedger struct {
	*MemLedger
	rival CreateBookingRequest
	once  sync.Once
}

func (r *raceLedger) InsertAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	r.once.Do(func() {
		_, _ = r.MemLedger.InsertAppointment(ctx, &Appointment{
			PatientID:    r.rival.PatientID,
			DoctorID:     r.rival.DoctorID,
			DepartmentID: r.rival.DepartmentID,
			Date:         r.rival.Date,
			SlotStart:    r.rival.SlotStart,
			SlotEnd:      r.rival.SlotStart.Add(15),
			Status:       StatusBooked,
		})
	})
	return r.MemLedger.InsertAppointment(ctx, appt)
}

func TestCreateBooking_RetriesOnceAfterConstraintConflict(t *testing.T) {
	schedules := schedule.NewMemStore()
	doctorID := uuid.New()

	rival := bookingReq(uuid.New(), doctorID, testMonday, "09:00")
	ledger := &raceLedger{MemLedger: NewMemLedger(), rival: rival}

	svc := NewService(schedules, ledger, redisclient.NewLocalLocker())
	svc.now = func() time.Time { return testNow }

	_, err := schedules.UpsertWeeklySchedule(context.Background(), &schedule.WeeklyScheduleEntry{
		DoctorID:    doctorID,
		Weekday:     time.Monday,
		StartTime:   schedule.MustTimeOfDay("09:00"),
		EndTime:     schedule.MustTimeOfDay("13:00"),
		SlotMinutes: 15,
	})
	if err != nil {
		t.Fatalf("upsert schedule: %v", err)
	}

	_, err = svc.CreateBooking(context.Background(), bookingReq(uuid.New(), doctorID, testMonday, "09:00"))
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable after retry, got %v", err)
	}

	// The rival's row must be the only live one for the slot.
	active, err := ledger.ListActiveAppointments(context.Background(), doctorID, testMonday)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 live appointment, got %d", len(active))
	}
}

// Status transitions

func TestTransitionStatus_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	env.addSchedule(t, doctorID, time.Monday, "09:00", "13:00", 15)

	ctx := context.Background()
	appt, err := env.svc.CreateBooking(ctx, bookingReq(uuid.New(), doctorID, testMonday, "09:00"))
	if err != nil {
		t.Fatalf("booking: %v", err)
	}

	for _, next := range []Status{StatusCheckedIn, StatusInProgress, StatusCompleted} {
		appt, err = env.svc.TransitionStatus(ctx, appt.ID, next)
		if err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
		if appt.Status != next {
			t.Fatalf("status = %s, want %s", appt.Status, next)
		}
	}
}

func TestTransitionStatus_IllegalMoves(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()
	env.addSchedule(t, doctorID, time.Monday, "09:00", "13:00", 15)

	ctx := context.Background()
	appt, err := env.svc.CreateBooking(ctx, bookingReq(uuid.New(), doctorID, testMonday, "09:00"))
	if err != nil {
		t.Fatalf("booking: %v", err)
	}

	// Skipping check-in is not allowed.
	_, err = env.svc.TransitionStatus(ctx, appt.ID, StatusInProgress)
	var trErr *InvalidTransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if trErr.From != StatusBooked || trErr.To != StatusInProgress {
		t.Errorf("transition error carries %s->%s, want booked->in_progress", trErr.From, trErr.To)
	}

	// Terminal states are immutable.
	if _, err := env.svc.TransitionStatus(ctx, appt.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err = env.svc.TransitionStatus(ctx, appt.ID, StatusCheckedIn)
	if !errors.As(err, &trErr) {
		t.Fatalf("expected InvalidTransitionError after cancel, got %v", err)
	}
}

func TestTransitionStatus_UnknownAppointment(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.TransitionStatus(context.Background(), uuid.New(), StatusCheckedIn)
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestTransitionStatus_UnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.TransitionStatus(context.Background(), uuid.New(), Status("rescheduled"))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for unknown status, got %v", err)
	}
}

// No-show sweep

func TestSweepOverdueBooked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	lastWeek := testNow.AddDate(0, 0, -7)
	stale, err := env.ledger.InsertAppointment(ctx, &Appointment{
		PatientID:    uuid.New(),
		DoctorID:     uuid.New(),
		DepartmentID: uuid.New(),
		Date:         lastWeek,
		SlotStart:    schedule.MustTimeOfDay("09:00"),
		SlotEnd:      schedule.MustTimeOfDay("09:30"),
		Status:       StatusBooked,
	})
	if err != nil {
		t.Fatalf("insert stale: %v", err)
	}

	attended, err := env.ledger.InsertAppointment(ctx, &Appointment{
		PatientID:    uuid.New(),
		DoctorID:     uuid.New(),
		DepartmentID: uuid.New(),
		Date:         lastWeek,
		SlotStart:    schedule.MustTimeOfDay("10:00"),
		SlotEnd:      schedule.MustTimeOfDay("10:30"),
		Status:       StatusCompleted,
	})
	if err != nil {
		t.Fatalf("insert attended: %v", err)
	}

	swept, err := env.svc.SweepOverdueBooked(ctx, testNow)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	got, err := env.ledger.GetAppointmentByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("reload stale: %v", err)
	}
	if got.Status != StatusNoShow {
		t.Errorf("stale status = %s, want no_show", got.Status)
	}

	got, err = env.ledger.GetAppointmentByID(ctx, attended.ID)
	if err != nil {
		t.Fatalf("reload attended: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("attended status = %s, want completed untouched", got.Status)
	}
}
