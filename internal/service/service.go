package service

import (
	"appointment-service/api"
	"appointment-service/internal/lock"
	"appointment-service/internal/models"
	"appointment-service/internal/slots"
	"appointment-service/pkg/response"
	"appointment-service/pkg/sl"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const defaultLockTTL = 10 * time.Second

type Service struct {
	log     *slog.Logger
	store   Store
	locker  lock.Locker
	engine  *slots.Engine
	lockTTL time.Duration
	loc     *time.Location
	now     func() time.Time
	observe func(operation string, err error)
}

type Option func(*Service)

func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithLocation sets the time zone "today" is measured in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithObserver receives the outcome of every create, reschedule and cancel.
func WithObserver(observe func(operation string, err error)) Option {
	return func(s *Service) {
		if observe != nil {
			s.observe = observe
		}
	}
}

func NewService(store Store, locker lock.Locker, engine *slots.Engine, opts ...Option) *Service {
	s := &Service{
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		store:   store,
		locker:  locker,
		engine:  engine,
		lockTTL: defaultLockTTL,
		loc:     time.UTC,
		now:     time.Now,
		observe: func(string, error) {},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type Store interface {
	CreateAppointment(ctx context.Context, a *models.Appointment) (string, error)
	GetUserAppointment(ctx context.Context, userID, id string) (*models.Appointment, error)
	ListUserAppointments(ctx context.Context, userID string, filter models.ListFilter) ([]*models.Appointment, int, error)
	ListActiveByDate(ctx context.Context, date string) ([]*models.Appointment, error)
	CountActiveByDate(ctx context.Context, from, to string) (map[string]int, error)
	UpdateAppointmentSlot(ctx context.Context, id, date, startTime, endTime string) error
	UpdateAppointmentStatus(ctx context.Context, id string, status models.Status) error
}

// Slots

func (s *Service) AvailableSlots(ctx context.Context, date string) ([]string, error) {
	const op = "service.AvailableSlots"

	booked, err := s.store.ListActiveByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	startTimes := make([]string, 0, len(booked))
	for _, a := range booked {
		startTimes = append(startTimes, a.StartTime)
	}

	return s.engine.AvailableSlotsFor(startTimes), nil
}

func (s *Service) AvailabilityCounts(ctx context.Context) ([]api.DateSlotCount, error) {
	const op = "service.AvailabilityCounts"

	today := s.today()
	earliest, latest := s.engine.Horizon(today)

	booked, err := s.store.CountActiveByDate(ctx, earliest.Format(slots.DateLayout), latest.Format(slots.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	counts := s.engine.AvailabilityCountsByDate(today, booked)

	result := make([]api.DateSlotCount, 0, len(counts))
	for _, c := range counts {
		result = append(result, api.DateSlotCount{
			Date:      c.Date,
			Available: c.Available,
			Title:     c.Title,
		})
	}

	return result, nil
}

// Appointments

func (s *Service) CreateAppointment(ctx context.Context, userID string, req *api.AppointmentRequest) (resp *api.AppointmentResponse, err error) {
	const op = "service.CreateAppointment"

	defer func() { s.observe("create", err) }()

	candidate := &models.Appointment{
		UserID:       userID,
		Name:         req.Name,
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Status:       models.StatusConfirmed,
	}

	if err := s.checkBookable(candidate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var id string
	err = s.withSlotLock(ctx, candidate, func() error {
		existing, err := s.store.ListActiveByDate(ctx, candidate.Date)
		if err != nil {
			return err
		}

		if slots.CheckConflict(candidate, existing) {
			return fmt.Errorf("appointment on %s at %s: %w", candidate.Date, candidate.StartTime, response.ErrSlotNotAvailable)
		}

		id, err = s.store.CreateAppointment(ctx, candidate)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetUserAppointment(ctx, userID, id)
}

func (s *Service) GetUserAppointment(ctx context.Context, userID, id string) (*api.AppointmentResponse, error) {
	const op = "service.GetUserAppointment"

	a, err := s.store.GetUserAppointment(ctx, userID, id)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp := toResponse(a)
	return &resp, nil
}

func (s *Service) ListUserAppointments(ctx context.Context, userID string, q *api.ListQuery) (*api.AppointmentPage, error) {
	const op = "service.ListUserAppointments"

	appointments, total, err := s.store.ListUserAppointments(ctx, userID, models.ListFilter{
		Page:   q.Page,
		Limit:  q.Limit,
		Search: q.Search,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]api.AppointmentResponse, 0, len(appointments))
	for _, a := range appointments {
		result = append(result, toResponse(a))
	}

	return &api.AppointmentPage{
		Appointments: result,
		Meta:         pageMeta(total, q.Page, q.Limit),
	}, nil
}

func (s *Service) RescheduleAppointment(ctx context.Context, userID, id string, req *api.RescheduleRequest) (resp *api.AppointmentResponse, err error) {
	const op = "service.RescheduleAppointment"

	defer func() { s.observe("reschedule", err) }()

	current, err := s.store.GetUserAppointment(ctx, userID, id)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !current.Status.IsActive() {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidState)
	}

	target := &models.Appointment{
		ID:        current.ID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    current.Status,
	}

	if err := s.checkBookable(target); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = s.withSlotLock(ctx, target, func() error {
		existing, err := s.store.ListActiveByDate(ctx, target.Date)
		if err != nil {
			return err
		}

		if slots.CheckConflict(target, excluding(existing, current.ID)) {
			return fmt.Errorf("appointment on %s at %s: %w", target.Date, target.StartTime, response.ErrSlotNotAvailable)
		}

		err = s.store.UpdateAppointmentSlot(ctx, current.ID, target.Date, target.StartTime, target.EndTime)
		if errors.Is(err, response.ErrNotFound) {
			// The update skips cancelled rows; a cancel may have landed since the read.
			latest, getErr := s.store.GetUserAppointment(ctx, userID, id)
			if getErr == nil && !latest.Status.IsActive() {
				return response.ErrInvalidState
			}
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetUserAppointment(ctx, userID, id)
}

func (s *Service) CancelAppointment(ctx context.Context, userID, id string) (resp *api.AppointmentResponse, err error) {
	const op = "service.CancelAppointment"

	defer func() { s.observe("cancel", err) }()

	current, err := s.store.GetUserAppointment(ctx, userID, id)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if current.Status == models.StatusCancelled {
		cancelled := toResponse(current)
		return &cancelled, nil
	}

	if err := s.store.UpdateAppointmentStatus(ctx, current.ID, models.StatusCancelled); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetUserAppointment(ctx, userID, id)
}

// checkBookable normalizes the candidate's times in place and rejects
// slots outside the daily window or dates outside the horizon.
func (s *Service) checkBookable(a *models.Appointment) error {
	start, err := slots.NormalizeTime(a.StartTime)
	if err != nil {
		return fmt.Errorf("%w: %w", response.ErrInvalidSlot, err)
	}
	end, err := slots.NormalizeTime(a.EndTime)
	if err != nil {
		return fmt.Errorf("%w: %w", response.ErrInvalidSlot, err)
	}
	a.StartTime, a.EndTime = start, end

	if err := s.engine.ValidateSlot(start, end); err != nil {
		return fmt.Errorf("%w: %w", response.ErrInvalidSlot, err)
	}

	date, err := slots.ParseDate(a.Date)
	if err != nil {
		return fmt.Errorf("%w: %w", response.ErrOutsideHorizon, err)
	}

	if !s.engine.InHorizon(s.today(), date) {
		return fmt.Errorf("%s: %w", a.Date, response.ErrOutsideHorizon)
	}

	return nil
}

// withSlotLock serializes writers of one (date, start time) so the conflict
// check and the write happen without another writer in between.
func (s *Service) withSlotLock(ctx context.Context, a *models.Appointment, fn func() error) error {
	key := lock.SlotKey(a.Date, a.StartTime)

	token, err := s.locker.Lock(ctx, key, s.lockTTL)
	if err != nil {
		return err
	}

	defer func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Error("failed to release slot lock",
				slog.String("op", "service.withSlotLock"),
				slog.String("key", key),
				sl.Err(err),
			)
		}
	}()

	return fn()
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

func excluding(appointments []*models.Appointment, id string) []*models.Appointment {
	result := make([]*models.Appointment, 0, len(appointments))
	for _, a := range appointments {
		if a.ID != id {
			result = append(result, a)
		}
	}
	return result
}

func pageMeta(total, page, limit int) api.PageMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	meta := api.PageMeta{
		TotalDocs:   total,
		Limit:       limit,
		Page:        page,
		TotalPages:  totalPages,
		HasPrevPage: page > 1,
		HasNextPage: page < totalPages,
	}

	if meta.HasPrevPage {
		prev := page - 1
		meta.PrevPage = &prev
	}
	if meta.HasNextPage {
		next := page + 1
		meta.NextPage = &next
	}

	return meta
}

func toResponse(a *models.Appointment) api.AppointmentResponse {
	return api.AppointmentResponse{
		ID:           a.ID,
		UserID:       a.UserID,
		Name:         a.Name,
		Email:        a.Email,
		MobileNumber: a.MobileNumber,
		Date:         a.Date,
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		Status:       string(a.Status),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
