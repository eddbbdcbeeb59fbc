package router

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"appointment-service/internal/http-server/middleware/ratelimit"
	"appointment-service/internal/models"
	"appointment-service/internal/service"
	"appointment-service/internal/service/servicetest"
	"appointment-service/internal/slots"
	"appointment-service/pkg/auth"
	"appointment-service/pkg/metrics"
)

var fixedNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	handler http.Handler
	store   *servicetest.Store
	tokens  *auth.JWTManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := servicetest.NewStore()
	engine := slots.New(slots.Config{StartHour: 9, EndHour: 18, EarliestDaysCanBook: 2, MaximumDaysCanBook: 30})
	svc := service.NewService(store, servicetest.NewLocker(), engine,
		service.WithClock(func() time.Time { return fixedNow }),
	)
	tokens := auth.NewJWTManager("test-secret", "appointment-service", time.Hour)

	return &testEnv{
		handler: New(log, svc, tokens, Options{
			AllowedOrigins: []string{"http://localhost:3001"},
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE"},
			Metrics:        metrics.NewCollector("test"),
		}),
		store:  store,
		tokens: tokens,
	}
}

func (e *testEnv) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := e.tokens.Issue(userID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Fields  []struct {
			Field string `json:"field"`
		} `json:"fields"`
	} `json:"error"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

const validBooking = `{"name":"Jane Doe","email":"jane@example.com","mobile_number":"01712345678","date":"2024-01-05","start_time":"09:00","end_time":"10:00"}`

func TestRouter_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/appointments/slots?date=2024-01-05", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := decode[errorBody](t, rec); got.Error.Code != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED, got %q", got.Error.Code)
	}
}

func TestRouter_RejectsOtherUsersPath(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/users/user-2/appointments", "user-1", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRouter_CreateThenConflict(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/user-1/appointments", "user-1", validBooking)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	created := decode[struct {
		Appointment struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"appointment"`
	}](t, rec)
	if created.Appointment.ID == "" || created.Appointment.Status != "CONFIRMED" {
		t.Errorf("unexpected appointment %+v", created.Appointment)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/users/user-2/appointments", "user-2", validBooking)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[errorBody](t, rec)
	if got.Error.Code != "SLOT_NOT_AVAILABLE" {
		t.Errorf("expected SLOT_NOT_AVAILABLE, got %q", got.Error.Code)
	}
	if got.Error.Message != "Appointment on 2024-01-05 at 09:00 not available." {
		t.Errorf("unexpected message %q", got.Error.Message)
	}
}

func TestRouter_CreateValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		body  string
		code  int
		field string
	}{
		{
			name:  "bad email",
			body:  `{"name":"Jane","email":"nope","mobile_number":"01712345678","date":"2024-01-05","start_time":"09:00","end_time":"10:00"}`,
			code:  http.StatusUnprocessableEntity,
			field: "email",
		},
		{
			name:  "missing date",
			body:  `{"name":"Jane","email":"jane@example.com","mobile_number":"01712345678","start_time":"09:00","end_time":"10:00"}`,
			code:  http.StatusUnprocessableEntity,
			field: "date",
		},
		{
			name:  "outside window",
			body:  `{"name":"Jane","email":"jane@example.com","mobile_number":"01712345678","date":"2024-01-05","start_time":"18:00","end_time":"19:00"}`,
			code:  http.StatusUnprocessableEntity,
			field: "start_time",
		},
		{
			name:  "too soon",
			body:  `{"name":"Jane","email":"jane@example.com","mobile_number":"01712345678","date":"2024-01-02","start_time":"09:00","end_time":"10:00"}`,
			code:  http.StatusUnprocessableEntity,
			field: "date",
		},
		{
			name: "malformed json",
			body: `{"name":`,
			code: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/users/user-1/appointments", "user-1", tt.body)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
			if tt.field == "" {
				return
			}
			got := decode[errorBody](t, rec)
			found := false
			for _, f := range got.Error.Fields {
				if f.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected field %q in %s", tt.field, rec.Body.String())
			}
		})
	}
}

func TestRouter_GetNotFound(t *testing.T) {
	env := newTestEnv(t)
	id := env.store.Seed(models.Appointment{UserID: "user-2", Date: "2024-01-05", StartTime: "09:00", EndTime: "10:00"})

	rec := env.do(t, http.MethodGet, "/api/v1/users/user-1/appointments/"+id, "user-1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRouter_RescheduleCancelled(t *testing.T) {
	env := newTestEnv(t)
	id := env.store.Seed(models.Appointment{
		UserID: "user-1", Date: "2024-01-05", StartTime: "09:00", EndTime: "10:00", Status: models.StatusCancelled,
	})

	rec := env.do(t, http.MethodPatch, "/api/v1/users/user-1/appointments/"+id, "user-1",
		`{"date":"2024-01-06","start_time":"10:00","end_time":"11:00"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[errorBody](t, rec); got.Error.Code != "INVALID_STATE" {
		t.Errorf("expected INVALID_STATE, got %q", got.Error.Code)
	}
}

func TestRouter_RescheduleAndCancel(t *testing.T) {
	env := newTestEnv(t)
	id := env.store.Seed(models.Appointment{UserID: "user-1", Date: "2024-01-05", StartTime: "09:00", EndTime: "10:00"})

	rec := env.do(t, http.MethodPatch, "/api/v1/users/user-1/appointments/"+id, "user-1",
		`{"date":"2024-01-06","start_time":"10:00","end_time":"11:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/users/user-1/appointments/"+id, "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, ok := env.store.Get(id)
	if !ok {
		t.Fatal("appointment disappeared")
	}
	if stored.Status != models.StatusCancelled || stored.Date != "2024-01-06" || stored.StartTime != "10:00" {
		t.Errorf("unexpected stored appointment %+v", stored)
	}
}

func TestRouter_ListPagination(t *testing.T) {
	env := newTestEnv(t)
	for _, start := range []string{"09:00", "10:00", "11:00"} {
		env.store.Seed(models.Appointment{UserID: "user-1", Name: "Jane", Date: "2024-01-05", StartTime: start, EndTime: start})
	}

	rec := env.do(t, http.MethodGet, "/api/v1/users/user-1/appointments?page=1&limit=2", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	got := decode[struct {
		Appointments []json.RawMessage `json:"appointments"`
		Meta         struct {
			TotalDocs   int  `json:"total_docs"`
			TotalPages  int  `json:"total_pages"`
			HasNextPage bool `json:"has_next_page"`
			NextPage    *int `json:"next_page"`
		} `json:"meta"`
	}](t, rec)

	if len(got.Appointments) != 2 {
		t.Errorf("expected 2 appointments, got %d", len(got.Appointments))
	}
	if got.Meta.TotalDocs != 3 || got.Meta.TotalPages != 2 || !got.Meta.HasNextPage {
		t.Errorf("unexpected meta %+v", got.Meta)
	}
	if got.Meta.NextPage == nil || *got.Meta.NextPage != 2 {
		t.Errorf("expected next page 2, got %v", got.Meta.NextPage)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/users/user-1/appointments?limit=500", "user-1", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for limit above 100, got %d", rec.Code)
	}
}

func TestRouter_Slots(t *testing.T) {
	env := newTestEnv(t)
	env.store.Seed(models.Appointment{UserID: "user-2", Date: "2024-01-05", StartTime: "09:00", EndTime: "10:00"})

	rec := env.do(t, http.MethodGet, "/api/v1/appointments/slots?date=2024-01-05", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	day := decode[struct {
		Date  string   `json:"date"`
		Slots []string `json:"slots"`
	}](t, rec)
	if len(day.Slots) != 8 || day.Slots[0] != "10:00" {
		t.Errorf("unexpected slots %v", day.Slots)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/appointments/slots?date=tomorrow", "user-1", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for bad date, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/appointments/slots/all", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	all := decode[struct {
		Slots []struct {
			Date      string `json:"date"`
			Available int    `json:"available"`
		} `json:"slots"`
	}](t, rec)
	if len(all.Slots) != 29 {
		t.Fatalf("expected 29 dates, got %d", len(all.Slots))
	}
	for _, s := range all.Slots {
		want := 9
		if s.Date == "2024-01-05" {
			want = 8
		}
		if s.Available != want {
			t.Errorf("%s: expected %d available, got %d", s.Date, want, s.Available)
		}
	}
}

func TestRouter_RateLimited(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := slots.New(slots.Config{StartHour: 9, EndHour: 18, EarliestDaysCanBook: 2, MaximumDaysCanBook: 30})
	svc := service.NewService(servicetest.NewStore(), servicetest.NewLocker(), engine)
	tokens := auth.NewJWTManager("test-secret", "appointment-service", time.Hour)

	h := New(log, svc, tokens, Options{Limiter: ratelimit.NewLimiter(0.001, 1)})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/slots/all", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusUnauthorized || codes[1] != http.StatusTooManyRequests {
		t.Errorf("expected [401 429], got %v", codes)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("expected healthz 200, got %d", rec.Code)
	}
	rec := env.do(t, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_http_requests_total") {
		t.Errorf("expected request counter in metrics output")
	}
}
