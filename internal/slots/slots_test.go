package slots

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"appointment-service/internal/models"
)

func defaultEngine() *Engine {
	return New(Config{StartHour: 9, EndHour: 18, EarliestDaysCanBook: 2, MaximumDaysCanBook: 5})
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func TestGenerateDailySlots_Default(t *testing.T) {
	got := defaultEngine().GenerateDailySlots()
	want := []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestGenerateDailySlots_SizeAndOrder(t *testing.T) {
	tests := []struct {
		start, end int
	}{
		{0, 24},
		{7, 8},
		{8, 20},
		{12, 12},
	}

	for _, tt := range tests {
		e := New(Config{StartHour: tt.start, EndHour: tt.end})
		got := e.GenerateDailySlots()

		if len(got) != tt.end-tt.start {
			t.Errorf("[%d,%d): expected %d slots, got %d", tt.start, tt.end, tt.end-tt.start, len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i] <= got[i-1] {
				t.Errorf("[%d,%d): slots not strictly ascending at %d: %v", tt.start, tt.end, i, got)
			}
		}
		for _, s := range got {
			if len(s) != 5 || s[2:] != ":00" {
				t.Errorf("slot %q is not HH:00", s)
			}
		}
	}
}

func TestDateRange(t *testing.T) {
	got := DateRange(date(t, "2024-01-01"), date(t, "2024-01-03"))
	want := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if got := DateRange(date(t, "2024-01-03"), date(t, "2024-01-01")); len(got) != 0 {
		t.Errorf("expected empty range, got %v", got)
	}

	if got := DateRange(date(t, "2024-02-28"), date(t, "2024-03-01")); len(got) != 3 {
		t.Errorf("expected leap day to be included, got %v", got)
	}
}

func TestAvailableSlotsFor(t *testing.T) {
	e := defaultEngine()

	got := e.AvailableSlotsFor([]string{"09:00", "10:00"})
	want := []string{"11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	// Bookings outside the window never add slots.
	got = e.AvailableSlotsFor([]string{"07:00", "18:00"})
	if !reflect.DeepEqual(got, e.GenerateDailySlots()) {
		t.Errorf("expected every daily slot, got %v", got)
	}

	again := e.AvailableSlotsFor([]string{"09:00", "10:00"})
	if !reflect.DeepEqual(again, want) {
		t.Errorf("expected identical output on repeat call, got %v", again)
	}
}

func TestAvailabilityCountsByDate(t *testing.T) {
	e := defaultEngine()
	today := time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)

	counts := e.AvailabilityCountsByDate(today, map[string]int{
		"2024-01-04": 3,
		"2023-12-31": 9,
	})

	if len(counts) != 4 {
		t.Fatalf("expected 4 dates, got %d: %v", len(counts), counts)
	}
	if counts[0].Date != "2024-01-03" || counts[3].Date != "2024-01-06" {
		t.Errorf("unexpected horizon %s..%s", counts[0].Date, counts[3].Date)
	}

	for _, c := range counts {
		switch c.Date {
		case "2024-01-04":
			if c.Available != 6 || c.Title != "6 slots" {
				t.Errorf("expected 6 slots on %s, got %+v", c.Date, c)
			}
		default:
			if c.Available != 9 || c.Title != "9 slots" {
				t.Errorf("expected 9 slots on %s, got %+v", c.Date, c)
			}
		}
	}
}

func TestAvailabilityCountsByDate_FollowsConfig(t *testing.T) {
	e := New(Config{StartHour: 8, EndHour: 12, EarliestDaysCanBook: 0, MaximumDaysCanBook: 0})
	counts := e.AvailabilityCountsByDate(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), nil)

	if len(counts) != 1 || counts[0].Title != "4 slots" {
		t.Errorf("expected a single 4 slot entry, got %v", counts)
	}
}

func TestAvailabilityCountsByDate_OverbookedIsNegative(t *testing.T) {
	e := defaultEngine()
	counts := e.AvailabilityCountsByDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), map[string]int{"2024-01-03": 11})

	if counts[0].Available != -2 || counts[0].Title != "-2 slots" {
		t.Errorf("expected -2 slots, got %+v", counts[0])
	}
}

func TestCheckConflict(t *testing.T) {
	candidate := &models.Appointment{Date: "2024-01-05", StartTime: "10:00", EndTime: "11:00"}

	tests := []struct {
		name     string
		existing []*models.Appointment
		want     bool
	}{
		{"no records", nil, false},
		{"active match", []*models.Appointment{
			{Date: "2024-01-05", StartTime: "10:00", EndTime: "11:00", Status: models.StatusConfirmed},
		}, true},
		{"cancelled match", []*models.Appointment{
			{Date: "2024-01-05", StartTime: "10:00", EndTime: "11:00", Status: models.StatusCancelled},
		}, false},
		{"different end", []*models.Appointment{
			{Date: "2024-01-05", StartTime: "10:00", EndTime: "12:00", Status: models.StatusConfirmed},
		}, false},
		{"different date", []*models.Appointment{
			{Date: "2024-01-06", StartTime: "10:00", EndTime: "11:00", Status: models.StatusConfirmed},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckConflict(candidate, tt.existing); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestValidateSlot(t *testing.T) {
	e := defaultEngine()

	valid := [][2]string{{"09:00", "10:00"}, {"17:00", "18:00"}}
	for _, v := range valid {
		if err := e.ValidateSlot(v[0], v[1]); err != nil {
			t.Errorf("%s-%s: unexpected error: %v", v[0], v[1], err)
		}
	}

	invalid := [][2]string{{"08:00", "09:00"}, {"18:00", "19:00"}, {"09:00", "11:00"}, {"09:30", "10:30"}}
	for _, v := range invalid {
		if err := e.ValidateSlot(v[0], v[1]); !errors.Is(err, ErrInvalidSlot) {
			t.Errorf("%s-%s: expected ErrInvalidSlot, got %v", v[0], v[1], err)
		}
	}
}

func TestValidateSlot_WindowEndingAtMidnight(t *testing.T) {
	e := New(Config{StartHour: 20, EndHour: 24, EarliestDaysCanBook: 2, MaximumDaysCanBook: 30})

	slots := e.GenerateDailySlots()
	if last := slots[len(slots)-1]; last != "23:00" {
		t.Fatalf("expected last slot 23:00, got %s", last)
	}

	if err := e.ValidateSlot("23:00", "00:00"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := e.ValidateSlot("22:00", "23:00"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := e.ValidateSlot("23:00", "24:00"); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("expected ErrInvalidSlot for 24:00, got %v", err)
	}
}

func TestNormalizeTime(t *testing.T) {
	got, err := NormalizeTime("9:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "09:00" {
		t.Errorf("expected 09:00, got %s", got)
	}

	if _, err := NormalizeTime("25:00"); err == nil {
		t.Error("expected error for 25:00")
	}
}

func TestInHorizon(t *testing.T) {
	e := defaultEngine()
	today := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)

	if e.InHorizon(today, date(t, "2024-01-02")) {
		t.Error("2024-01-02 is before the earliest bookable date")
	}
	if !e.InHorizon(today, date(t, "2024-01-03")) {
		t.Error("2024-01-03 should be bookable")
	}
	if !e.InHorizon(today, date(t, "2024-01-06")) {
		t.Error("2024-01-06 should be bookable")
	}
	if e.InHorizon(today, date(t, "2024-01-07")) {
		t.Error("2024-01-07 is past the last bookable date")
	}
}
