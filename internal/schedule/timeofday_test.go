package schedule

import (
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"13:45", 825, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"09:60", 0, true},
		{"9", 0, true},
		{"", 0, true},
		{"ab:cd", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error, got %v", tc.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): unexpected error: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestTimeOfDay_String(t *testing.T) {
	if s := MustTimeOfDay("09:05").String(); s != "09:05" {
		t.Errorf("String() = %q, want 09:05", s)
	}
	if s := TimeOfDay(0).String(); s != "00:00" {
		t.Errorf("String() = %q, want 00:00", s)
	}
}

func TestTimeOfDay_OnDate(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	got := MustTimeOfDay("10:30").OnDate(date)
	want := time.Date(2026, 9, 7, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("OnDate = %v, want %v", got, want)
	}
}
