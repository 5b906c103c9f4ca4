package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// repository code serves plain and transactional calls.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
	q    querier
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, q: pool}
}

func (r *PgRepository) WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txRepo := &PgRepository{pool: r.pool, q: tx}
	if err := fn(ctx, txRepo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LockProvider takes a transaction-scoped advisory lock keyed by the
// provider id, serializing concurrent booking attempts for the same
// provider. Postgres releases it when the transaction ends.
func (r *PgRepository) LockProvider(ctx context.Context, providerID uuid.UUID) error {
	_, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text))`, providerID)
	if err != nil {
		return fmt.Errorf("lock provider %s: %w", providerID, err)
	}
	return nil
}

// Scan helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.Phone,
		&p.DateOfBirth,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(
		&p.ID,
		&p.DisplayName,
		&p.Specialty,
		&p.Email,
		&p.Phone,
		&p.Timezone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanRule(row pgx.Row) (*AvailabilityRule, error) {
	var ar AvailabilityRule
	err := row.Scan(
		&ar.ID,
		&ar.ProviderID,
		&ar.Weekday,
		&ar.StartTime,
		&ar.EndTime,
		&ar.Location,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return &ar, nil
}

func scanException(row pgx.Row) (*AvailabilityException, error) {
	var e AvailabilityException
	err := row.Scan(
		&e.ID,
		&e.ProviderID,
		&e.StartAt,
		&e.EndAt,
		&e.Reason,
		&e.IsBlocking,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExceptionNotFound
		}
		return nil, err
	}
	return &e, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ProviderID,
		&a.StartAt,
		&a.EndAt,
		&a.Status,
		&a.OutcomeNote,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Patients

func (r *PgRepository) CreatePatient(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	row := r.q.QueryRow(ctx, `
		INSERT INTO patients (id, first_name, last_name, email, phone, date_of_birth, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at
	`, p.ID, p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, phone, date_of_birth, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetPatientByEmail(ctx context.Context, email string) (*Patient, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, phone, date_of_birth, created_at, updated_at
		FROM patients
		WHERE lower(email) = lower($1)
	`, email)
	return scanPatient(row)
}

func (r *PgRepository) ListPatients(ctx context.Context) ([]Patient, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, first_name, last_name, email, phone, date_of_birth, created_at, updated_at
		FROM patients
		ORDER BY last_name, first_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdatePatient(ctx context.Context, p *Patient) error {
	row := r.q.QueryRow(ctx, `
		UPDATE patients
		SET first_name = $2,
		    last_name = $3,
		    email = $4,
		    phone = $5,
		    date_of_birth = $6,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID, p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth)
	if err := row.Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPatientNotFound
		}
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

func (r *PgRepository) DeletePatientRow(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// Providers

func (r *PgRepository) CreateProvider(ctx context.Context, p *Provider) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	row := r.q.QueryRow(ctx, `
		INSERT INTO providers (id, display_name, specialty, email, phone, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at
	`, p.ID, p.DisplayName, p.Specialty, p.Email, p.Phone, p.Timezone)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("create provider: %w", err)
	}
	return nil
}

func (r *PgRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, display_name, specialty, email, phone, timezone, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) GetProviderByEmail(ctx context.Context, email string) (*Provider, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, display_name, specialty, email, phone, timezone, created_at, updated_at
		FROM providers
		WHERE lower(email) = lower($1)
	`, email)
	return scanProvider(row)
}

func (r *PgRepository) ListProviders(ctx context.Context) ([]Provider, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, display_name, specialty, email, phone, timezone, created_at, updated_at
		FROM providers
		ORDER BY display_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateProvider(ctx context.Context, p *Provider) error {
	row := r.q.QueryRow(ctx, `
		UPDATE providers
		SET display_name = $2,
		    specialty = $3,
		    email = $4,
		    phone = $5,
		    timezone = $6,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID, p.DisplayName, p.Specialty, p.Email, p.Phone, p.Timezone)
	if err := row.Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProviderNotFound
		}
		return fmt.Errorf("update provider: %w", err)
	}
	return nil
}

// Availability rules

func (r *PgRepository) CreateRule(ctx context.Context, ar *AvailabilityRule) error {
	if ar.ID == uuid.Nil {
		ar.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO provider_availability (id, provider_id, weekday, start_time, end_time, location)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ar.ID, ar.ProviderID, ar.Weekday, ar.StartTime, ar.EndTime, ar.Location)
	if err != nil {
		return fmt.Errorf("create availability rule: %w", err)
	}
	return nil
}

func (r *PgRepository) GetRuleByID(ctx context.Context, id uuid.UUID) (*AvailabilityRule, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, provider_id, weekday, start_time, end_time, location
		FROM provider_availability
		WHERE id = $1
	`, id)
	return scanRule(row)
}

func (r *PgRepository) ListRulesByProvider(ctx context.Context, providerID uuid.UUID) ([]AvailabilityRule, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, provider_id, weekday, start_time, end_time, location
		FROM provider_availability
		WHERE provider_id = $1
		ORDER BY weekday, start_time
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilityRule
	for rows.Next() {
		ar, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ar)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateRule(ctx context.Context, ar *AvailabilityRule) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE provider_availability
		SET weekday = $2,
		    start_time = $3,
		    end_time = $4,
		    location = $5
		WHERE id = $1
	`, ar.ID, ar.Weekday, ar.StartTime, ar.EndTime, ar.Location)
	if err != nil {
		return fmt.Errorf("update availability rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (r *PgRepository) DeleteRule(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM provider_availability WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Availability exceptions

func (r *PgRepository) CreateException(ctx context.Context, e *AvailabilityException) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	row := r.q.QueryRow(ctx, `
		INSERT INTO provider_exceptions (id, provider_id, start_at, end_at, reason, is_blocking, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING created_at
	`, e.ID, e.ProviderID, e.StartAt, e.EndAt, e.Reason, e.IsBlocking)
	if err := row.Scan(&e.CreatedAt); err != nil {
		return fmt.Errorf("create availability exception: %w", err)
	}
	return nil
}

func (r *PgRepository) GetExceptionByID(ctx context.Context, id uuid.UUID) (*AvailabilityException, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, provider_id, start_at, end_at, reason, is_blocking, created_at
		FROM provider_exceptions
		WHERE id = $1
	`, id)
	return scanException(row)
}

func (r *PgRepository) ListExceptionsByProvider(ctx context.Context, providerID uuid.UUID) ([]AvailabilityException, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, provider_id, start_at, end_at, reason, is_blocking, created_at
		FROM provider_exceptions
		WHERE provider_id = $1
		ORDER BY start_at
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilityException
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateException(ctx context.Context, e *AvailabilityException) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE provider_exceptions
		SET start_at = $2,
		    end_at = $3,
		    reason = $4,
		    is_blocking = $5
		WHERE id = $1
	`, e.ID, e.StartAt, e.EndAt, e.Reason, e.IsBlocking)
	if err != nil {
		return fmt.Errorf("update availability exception: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExceptionNotFound
	}
	return nil
}

func (r *PgRepository) DeleteException(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM provider_exceptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability exception: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExceptionNotFound
	}
	return nil
}

// Appointments

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	row := r.q.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, provider_id, start_at, end_at, status, outcome_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`, a.ID, a.PatientID, a.ProviderID, a.StartAt, a.EndAt, a.Status, a.OutcomeNote)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, patient_id, provider_id, start_at, end_at, status, outcome_note, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	query := `
		SELECT id, patient_id, provider_id, start_at, end_at, status, outcome_note, created_at, updated_at
		FROM appointments
		WHERE ($1::uuid IS NULL OR patient_id = $1)
		  AND ($2::uuid IS NULL OR provider_id = $2)
		  AND ($3::text IS NULL OR status = $3)
		ORDER BY start_at
	`
	var status *string
	if f.Status != "" {
		s := string(f.Status)
		status = &s
	}

	rows, err := r.q.Query(ctx, query, f.PatientID, f.ProviderID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListBlockingAppointments(ctx context.Context, providerID uuid.UUID, window Interval) ([]Appointment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, patient_id, provider_id, start_at, end_at, status, outcome_note, created_at, updated_at
		FROM appointments
		WHERE provider_id = $1
		  AND status IN ('booked', 'rescheduled')
		  AND start_at < $3
		  AND end_at > $2
		ORDER BY start_at
	`, providerID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment) error {
	row := r.q.QueryRow(ctx, `
		UPDATE appointments
		SET start_at = $2,
		    end_at = $3,
		    status = $4,
		    outcome_note = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, a.ID, a.StartAt, a.EndAt, a.Status, a.OutcomeNote)
	if err := row.Scan(&a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAppointmentNotFound
		}
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) CountBlockingAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE patient_id = $1
		  AND status IN ('booked', 'rescheduled')
	`, patientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count blocking appointments: %w", err)
	}
	return count, nil
}

func (r *PgRepository) DeleteCanceledAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM appointments
		WHERE patient_id = $1
		  AND status = 'canceled'
	`, patientID)
	if err != nil {
		return 0, fmt.Errorf("delete canceled appointments: %w", err)
	}
	return tag.RowsAffected(), nil
}
