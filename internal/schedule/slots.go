package schedule

import "time"

// GenerateSlots expands a weekly template entry into the ordered candidate
// slots for a target date. A nil entry, or an entry for a different weekday
// than the date's, yields no slots. The interval [StartTime, EndTime) is cut
// into steps of SlotMinutes; a trailing remainder shorter than a full slot is
// dropped rather than offered short.
//
// Pure and deterministic: same inputs always produce the same sequence.
func GenerateSlots(entry *WeeklyScheduleEntry, date time.Time) []SlotInterval {
	if entry == nil {
		return nil
	}
	if entry.Weekday != date.Weekday() {
		return nil
	}
	if entry.SlotMinutes <= 0 || entry.StartTime >= entry.EndTime {
		return nil
	}

	step := TimeOfDay(entry.SlotMinutes)
	n := int((entry.EndTime - entry.StartTime) / step)

	slots := make([]SlotInterval, 0, n)
	for start := entry.StartTime; start+step <= entry.EndTime; start += step {
		slots = append(slots, SlotInterval{Start: start, End: start + step})
	}
	return slots
}
