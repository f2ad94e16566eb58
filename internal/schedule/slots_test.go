package schedule

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

// 2026-09-07 is a Monday.
var monday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

func mondayEntry(start, end string, slotMins int) *WeeklyScheduleEntry {
	return &WeeklyScheduleEntry{
		ID:          uuid.New(),
		DoctorID:    uuid.New(),
		Weekday:     time.Monday,
		StartTime:   MustTimeOfDay(start),
		EndTime:     MustTimeOfDay(end),
		SlotMinutes: slotMins,
	}
}

func TestGenerateSlots_FullMorning(t *testing.T) {
	entry := mondayEntry("09:00", "13:00", 15)

	slots := GenerateSlots(entry, monday)
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}

	if slots[0].Start != MustTimeOfDay("09:00") || slots[0].End != MustTimeOfDay("09:15") {
		t.Errorf("first slot = %s-%s, want 09:00-09:15", slots[0].Start, slots[0].End)
	}
	if last := slots[len(slots)-1]; last.Start != MustTimeOfDay("12:45") || last.End != MustTimeOfDay("13:00") {
		t.Errorf("last slot = %s-%s, want 12:45-13:00", last.Start, last.End)
	}

	for i, s := range slots {
		if s.End != s.Start.Add(15) {
			t.Errorf("slot %d is not 15 minutes long: %s-%s", i, s.Start, s.End)
		}
		if i > 0 && s.Start != slots[i-1].End {
			t.Errorf("slot %d does not abut slot %d: %s vs %s", i, i-1, slots[i-1].End, s.Start)
		}
	}
}

func TestGenerateSlots_DropsPartialRemainder(t *testing.T) {
	// 70 minutes of availability, 30-minute slots: the last 10 minutes are
	// not offered as a short slot.
	entry := mondayEntry("09:00", "10:10", 30)

	slots := GenerateSlots(entry, monday)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[1].End != MustTimeOfDay("10:00") {
		t.Errorf("last slot ends %s, want 10:00", slots[1].End)
	}
}

func TestGenerateSlots_NilEntry(t *testing.T) {
	if slots := GenerateSlots(nil, monday); len(slots) != 0 {
		t.Fatalf("expected no slots for nil entry, got %d", len(slots))
	}
}

func TestGenerateSlots_WeekdayMismatch(t *testing.T) {
	entry := mondayEntry("09:00", "13:00", 15)
	tuesday := monday.AddDate(0, 0, 1)

	if slots := GenerateSlots(entry, tuesday); len(slots) != 0 {
		t.Fatalf("expected no slots when entry weekday differs from date, got %d", len(slots))
	}
}

func TestGenerateSlots_DegenerateEntries(t *testing.T) {
	cases := []struct {
		name  string
		entry *WeeklyScheduleEntry
	}{
		{"zero slot minutes", mondayEntry("09:00", "13:00", 0)},
		{"negative slot minutes", mondayEntry("09:00", "13:00", -15)},
		{"inverted interval", mondayEntry("13:00", "09:00", 15)},
		{"empty interval", mondayEntry("09:00", "09:00", 15)},
		{"interval shorter than slot", mondayEntry("09:00", "09:10", 15)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if slots := GenerateSlots(tc.entry, monday); len(slots) != 0 {
				t.Errorf("expected no slots, got %d", len(slots))
			}
		})
	}
}

func TestGenerateSlots_Deterministic(t *testing.T) {
	entry := mondayEntry("08:30", "12:00", 20)

	first := GenerateSlots(entry, monday)
	second := GenerateSlots(entry, monday)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("two generations of the same template differ")
	}
}
