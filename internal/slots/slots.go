// Package slots computes hourly availability over a fixed daily schedule
// and detects conflicts between appointments. It performs no I/O: callers
// hand in the bookings they loaded and get derived views back.
package slots

import (
	"errors"
	"fmt"
	"time"

	"appointment-service/internal/models"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	ErrInvalidSlot    = errors.New("time is not a bookable slot")
	ErrOutsideHorizon = errors.New("date is outside the booking horizon")
)

type Config struct {
	StartHour           int
	EndHour             int
	EarliestDaysCanBook int
	MaximumDaysCanBook  int
}

type DateSlotCount struct {
	Date      string
	Available int
	Title     string
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// GenerateDailySlots returns one "HH:00" label per hour in [StartHour, EndHour).
func (e *Engine) GenerateDailySlots() []string {
	if e.cfg.EndHour <= e.cfg.StartHour {
		return []string{}
	}

	slots := make([]string, 0, e.cfg.EndHour-e.cfg.StartHour)
	for hour := e.cfg.StartHour; hour < e.cfg.EndHour; hour++ {
		slots = append(slots, hourLabel(hour))
	}

	return slots
}

func (e *Engine) TotalSlots() int {
	return len(e.GenerateDailySlots())
}

// DateRange lists every calendar day from start to end inclusive.
// Empty when start is after end.
func DateRange(start, end time.Time) []string {
	from := truncateToDate(start)
	to := truncateToDate(end)

	dates := []string{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}

	return dates
}

// AvailableSlotsFor filters the daily slots by the start times already
// booked on one date. Order is preserved.
func (e *Engine) AvailableSlotsFor(booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}

	available := []string{}
	for _, slot := range e.GenerateDailySlots() {
		if _, ok := taken[slot]; ok {
			continue
		}
		available = append(available, slot)
	}

	return available
}

// Horizon returns the first and last dates that can be booked relative to today.
func (e *Engine) Horizon(today time.Time) (time.Time, time.Time) {
	day := truncateToDate(today)
	return day.AddDate(0, 0, e.cfg.EarliestDaysCanBook), day.AddDate(0, 0, e.cfg.MaximumDaysCanBook)
}

func (e *Engine) InHorizon(today, date time.Time) bool {
	earliest, latest := e.Horizon(today)
	d := truncateToDate(date)
	return !d.Before(earliest) && !d.After(latest)
}

// AvailabilityCountsByDate reports free slots for every date in the horizon.
// bookedByDate holds active bookings per date; missing dates count as zero.
// Over-booked dates yield a negative Available, which is returned as is.
func (e *Engine) AvailabilityCountsByDate(today time.Time, bookedByDate map[string]int) []DateSlotCount {
	earliest, latest := e.Horizon(today)
	total := e.TotalSlots()

	dates := DateRange(earliest, latest)
	counts := make([]DateSlotCount, 0, len(dates))
	for _, date := range dates {
		available := total - bookedByDate[date]
		counts = append(counts, DateSlotCount{
			Date:      date,
			Available: available,
			Title:     fmt.Sprintf("%d slots", available),
		})
	}

	return counts
}

// CheckConflict reports whether an active record in existing occupies the
// candidate's exact date, start time and end time.
func CheckConflict(candidate *models.Appointment, existing []*models.Appointment) bool {
	for _, a := range existing {
		if a == nil || !a.Status.IsActive() {
			continue
		}
		if a.SameSlot(candidate) {
			return true
		}
	}

	return false
}

// ValidateSlot checks that start is one of the daily slots and end is
// exactly one hour later. Both must already be normalized to "HH:MM".
// A slot starting at 23:00 ends at "00:00".
func (e *Engine) ValidateSlot(start, end string) error {
	for _, slot := range e.GenerateDailySlots() {
		if slot != start {
			continue
		}

		t, _ := time.Parse(TimeLayout, start)
		if end != hourLabel((t.Hour()+1)%24) {
			return fmt.Errorf("end time %s does not close slot %s: %w", end, start, ErrInvalidSlot)
		}
		return nil
	}

	return fmt.Errorf("start time %s: %w", start, ErrInvalidSlot)
}

// NormalizeTime turns "9:00" style input into "09:00".
func NormalizeTime(s string) (string, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return "", fmt.Errorf("parse time %q: %w", s, ErrInvalidSlot)
	}
	return t.Format(TimeLayout), nil
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

func hourLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// truncateToDate keeps the calendar day of t, in t's own location, as UTC midnight.
func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
