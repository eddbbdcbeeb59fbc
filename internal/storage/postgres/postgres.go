package postgres

import (
	"appointment-service/internal/models"
	"appointment-service/pkg/response"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS appointments (
	id            UUID PRIMARY KEY,
	user_id       TEXT NOT NULL,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	mobile_number TEXT NOT NULL,
	date          DATE NOT NULL,
	start_time    TEXT NOT NULL,
	end_time      TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'CONFIRMED',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS appointments_active_slot_uniq
	ON appointments (date, start_time, end_time)
	WHERE status <> 'CANCELLED';

CREATE INDEX IF NOT EXISTS appointments_user_date_idx
	ON appointments (user_id, date DESC);
`

const selectColumns = `id, user_id, name, email, mobile_number,
	to_char(date, 'YYYY-MM-DD'), start_time, end_time, status, created_at, updated_at`

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Migrate creates the appointments table and its indexes when missing.
func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.postgres.Migrate"

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: ping: %w", op, err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) CreateAppointment(ctx context.Context, a *models.Appointment) (string, error) {
	const op = "storage.postgres.CreateAppointment"

	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO appointments
		(id, user_id, name, email, mobile_number, date, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id,
		a.UserID,
		a.Name,
		a.Email,
		a.MobileNumber,
		a.Date,
		a.StartTime,
		a.EndTime,
		string(a.Status),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) GetUserAppointment(ctx context.Context, userID, id string) (*models.Appointment, error) {
	const op = "storage.postgres.GetUserAppointment"

	// Malformed ids cannot exist; report them as missing instead of a cast error.
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM appointments WHERE id=$1 AND user_id=$2`,
		id, userID,
	)

	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

func (s *Storage) ListUserAppointments(ctx context.Context, userID string, filter models.ListFilter) ([]*models.Appointment, int, error) {
	const op = "storage.postgres.ListUserAppointments"

	where := `WHERE user_id=$1`
	args := []any{userID}

	if filter.Search != "" {
		where += ` AND (name ILIKE $2 OR email ILIKE $2 OR mobile_number ILIKE $2)`
		args = append(args, "%"+escapeLike(filter.Search)+"%")
	}

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM appointments `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: count: %w", op, err)
	}

	offset := pageOffset(filter.Page, filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM appointments %s
		ORDER BY date DESC, start_time DESC
		LIMIT $%d OFFSET $%d`,
		selectColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, filter.Limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	appointments, err := scanAppointments(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return appointments, total, nil
}

func (s *Storage) ListActiveByDate(ctx context.Context, date string) ([]*models.Appointment, error) {
	const op = "storage.postgres.ListActiveByDate"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM appointments
		WHERE date=$1 AND status <> $2
		ORDER BY start_time`,
		date, string(models.StatusCancelled),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	appointments, err := scanAppointments(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appointments, nil
}

func (s *Storage) CountActiveByDate(ctx context.Context, from, to string) (map[string]int, error) {
	const op = "storage.postgres.CountActiveByDate"

	rows, err := s.db.QueryContext(ctx,
		`SELECT to_char(date, 'YYYY-MM-DD'), COUNT(*)
		FROM appointments
		WHERE date BETWEEN $1 AND $2 AND status <> $3
		GROUP BY date`,
		from, to, string(models.StatusCancelled),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			date  string
			count int
		)
		if err := rows.Scan(&date, &count); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		counts[date] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return counts, nil
}

func (s *Storage) UpdateAppointmentSlot(ctx context.Context, id, date, startTime, endTime string) error {
	const op = "storage.postgres.UpdateAppointmentSlot"

	res, err := s.db.ExecContext(ctx,
		`UPDATE appointments
		SET date=$1, start_time=$2, end_time=$3, updated_at=now()
		WHERE id=$4 AND status <> $5`,
		date, startTime, endTime, id, string(models.StatusCancelled),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return checkAffected(op, res)
}

func (s *Storage) UpdateAppointmentStatus(ctx context.Context, id string, status models.Status) error {
	const op = "storage.postgres.UpdateAppointmentStatus"

	res, err := s.db.ExecContext(ctx,
		`UPDATE appointments SET status=$1, updated_at=now() WHERE id=$2`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return checkAffected(op, res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row scanner) (*models.Appointment, error) {
	var a models.Appointment

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.Email,
		&a.MobileNumber,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func scanAppointments(rows *sql.Rows) ([]*models.Appointment, error) {
	appointments := []*models.Appointment{}

	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return appointments, nil
}

func checkAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// pageOffset converts a 1-based page into a row offset. Pages below 1 read from the start.
func pageOffset(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	return (page - 1) * limit
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
