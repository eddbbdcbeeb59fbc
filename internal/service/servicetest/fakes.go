// Package servicetest provides in-memory stand-ins for the service's store
// and locker.
package servicetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"appointment-service/internal/models"
	"appointment-service/pkg/response"

	"github.com/google/uuid"
)

type Store struct {
	mu           sync.Mutex
	appointments map[string]*models.Appointment
	now          func() time.Time
}

func NewStore() *Store {
	return &Store{
		appointments: make(map[string]*models.Appointment),
		now:          time.Now,
	}
}

// Seed stores a copy of a, assigning an id when it has none, and returns the id.
func (m *Store) Seed(a models.Appointment) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = models.StatusConfirmed
	}
	a.CreatedAt = m.now()
	a.UpdatedAt = a.CreatedAt
	m.appointments[a.ID] = &a
	return a.ID
}

func (m *Store) Get(id string) (models.Appointment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return models.Appointment{}, false
	}
	return *a, true
}

func (m *Store) CreateAppointment(_ context.Context, a *models.Appointment) (string, error) {
	return m.Seed(*a), nil
}

func (m *Store) GetUserAppointment(_ context.Context, userID, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok || a.UserID != userID {
		return nil, fmt.Errorf("servicetest: %w", response.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *Store) ListUserAppointments(_ context.Context, userID string, filter models.ListFilter) ([]*models.Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	search := strings.ToLower(filter.Search)

	var matched []*models.Appointment
	for _, a := range m.appointments {
		if a.UserID != userID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(a.Name), search) &&
			!strings.Contains(strings.ToLower(a.Email), search) &&
			!strings.Contains(strings.ToLower(a.MobileNumber), search) {
			continue
		}
		cp := *a
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date != matched[j].Date {
			return matched[i].Date > matched[j].Date
		}
		return matched[i].StartTime > matched[j].StartTime
	})

	total := len(matched)
	from := (filter.Page - 1) * filter.Limit
	if from > total {
		from = total
	}
	to := from + filter.Limit
	if to > total {
		to = total
	}

	return matched[from:to], total, nil
}

func (m *Store) ListActiveByDate(_ context.Context, date string) ([]*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*models.Appointment
	for _, a := range m.appointments {
		if a.Date == date && a.Status.IsActive() {
			cp := *a
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].StartTime < result[j].StartTime })
	return result, nil
}

func (m *Store) CountActiveByDate(_ context.Context, from, to string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int)
	for _, a := range m.appointments {
		if a.Date >= from && a.Date <= to && a.Status.IsActive() {
			counts[a.Date]++
		}
	}
	return counts, nil
}

func (m *Store) UpdateAppointmentSlot(_ context.Context, id, date, startTime, endTime string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok || !a.Status.IsActive() {
		return fmt.Errorf("servicetest: %w", response.ErrNotFound)
	}
	a.Date, a.StartTime, a.EndTime = date, startTime, endTime
	a.UpdatedAt = m.now()
	return nil
}

func (m *Store) UpdateAppointmentStatus(_ context.Context, id string, status models.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return fmt.Errorf("servicetest: %w", response.ErrNotFound)
	}
	a.Status = status
	a.UpdatedAt = m.now()
	return nil
}

// Locker is a process-local lock. Keys marked with Hold are reported as taken.
type Locker struct {
	mu      sync.Mutex
	held    map[string]string
	Locks   int
	Unlocks int

	// UnlockErr, when set, is returned by Unlock and the key stays held.
	UnlockErr error
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]string)}
}

// Hold marks key as owned by another writer.
func (l *Locker) Hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = "someone-else"
}

func (l *Locker) IsHeld(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

func (l *Locker) Lock(_ context.Context, key string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return "", fmt.Errorf("servicetest: %s: %w", key, response.ErrLocked)
	}

	token := uuid.NewString()
	l.held[key] = token
	l.Locks++
	return token, nil
}

func (l *Locker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.UnlockErr != nil {
		return l.UnlockErr
	}

	if l.held[key] == token {
		delete(l.held, key)
		l.Unlocks++
	}
	return nil
}
