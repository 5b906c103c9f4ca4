package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/omasdev/provider-scheduling/internal/scheduling"
)

// PgStore manages the side records around the scheduling core: payments,
// notification preferences, the notification outbox, and the audit trail.
// It also implements scheduling.AuditSink and scheduling.NotificationSink.
type PgStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

func NewPgStore(pool *pgxpool.Pool, logger *zap.Logger) *PgStore {
	return &PgStore{pool: pool, logger: logger, now: time.Now}
}

// Payments

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID,
		&p.AppointmentID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.ProviderAccount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PgStore) CreatePayment(ctx context.Context, p *Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Currency == "" {
		p.Currency = "MXN"
	}
	if p.Status == "" {
		p.Status = PaymentPending
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO payments (id, appointment_id, amount, currency, status, provider_account, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at
	`, p.ID, p.AppointmentID, p.Amount, p.Currency, p.Status, p.ProviderAccount)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (s *PgStore) GetPaymentByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, appointment_id, amount, currency, status, provider_account, created_at, updated_at
		FROM payments
		WHERE id = $1
	`, id)
	return scanPayment(row)
}

func (s *PgStore) ListPayments(ctx context.Context, appointmentID *uuid.UUID) ([]Payment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, appointment_id, amount, currency, status, provider_account, created_at, updated_at
		FROM payments
		WHERE ($1::uuid IS NULL OR appointment_id = $1)
		ORDER BY created_at DESC
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (s *PgStore) UpdatePayment(ctx context.Context, p *Payment) error {
	if !p.Status.Known() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidPayment, p.Status)
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE payments
		SET amount = $2,
		    currency = $3,
		    status = $4,
		    provider_account = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID, p.Amount, p.Currency, p.Status, p.ProviderAccount)
	if err := row.Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPaymentNotFound
		}
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

// Notification preferences

func scanPreference(row pgx.Row) (*NotificationPreference, error) {
	var p NotificationPreference
	err := row.Scan(
		&p.ID,
		&p.UserType,
		&p.UserID,
		&p.Channel,
		&p.LeadMinutes,
		&p.Enabled,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPreferenceNotFound
		}
		return nil, err
	}
	return &p, nil
}

func validatePreference(p *NotificationPreference) error {
	if p.UserType != "patient" && p.UserType != "provider" {
		return fmt.Errorf("%w: user_type must be patient or provider", ErrInvalidPreference)
	}
	if !p.Channel.Known() {
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidPreference, p.Channel)
	}
	if p.LeadMinutes < 0 {
		return fmt.Errorf("%w: lead_minutes must not be negative", ErrInvalidPreference)
	}
	return nil
}

func (s *PgStore) CreatePreference(ctx context.Context, p *NotificationPreference) error {
	if err := validatePreference(p); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_preferences (id, user_type, user_id, channel, lead_minutes, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.UserType, p.UserID, p.Channel, p.LeadMinutes, p.Enabled)
	if err != nil {
		return fmt.Errorf("create notification preference: %w", err)
	}
	return nil
}

func (s *PgStore) ListPreferences(ctx context.Context, userType string, userID *uuid.UUID) ([]NotificationPreference, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_type, user_id, channel, lead_minutes, enabled
		FROM notification_preferences
		WHERE ($1 = '' OR user_type = $1)
		  AND ($2::uuid IS NULL OR user_id = $2)
		ORDER BY user_type, user_id, channel
	`, userType, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []NotificationPreference
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (s *PgStore) UpdatePreference(ctx context.Context, p *NotificationPreference) error {
	if err := validatePreference(p); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_preferences
		SET channel = $2,
		    lead_minutes = $3,
		    enabled = $4
		WHERE id = $1
	`, p.ID, p.Channel, p.LeadMinutes, p.Enabled)
	if err != nil {
		return fmt.Errorf("update notification preference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPreferenceNotFound
	}
	return nil
}

// Outbox

func (s *PgStore) enqueue(ctx context.Context, m *OutboxMessage) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = OutboxQueued
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications_outbox (id, appointment_id, channel, template, payload, send_after, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
	`, m.ID, m.AppointmentID, m.Channel, m.Template, m.Payload, m.SendAfter, m.Status)
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

func (s *PgStore) ListOutbox(ctx context.Context, status OutboxStatus) ([]OutboxMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, appointment_id, channel, template, payload, send_after, status, last_error, created_at, updated_at
		FROM notifications_outbox
		WHERE ($1 = '' OR status = $1)
		ORDER BY send_after
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		err := rows.Scan(
			&m.ID,
			&m.AppointmentID,
			&m.Channel,
			&m.Template,
			&m.Payload,
			&m.SendAfter,
			&m.Status,
			&m.LastError,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// AppointmentBooked enqueues one reminder per enabled preference of the
// patient, scheduled lead_minutes ahead of the appointment start.
func (s *PgStore) AppointmentBooked(ctx context.Context, appt *scheduling.Appointment) error {
	return s.enqueueForAppointment(ctx, appt, "appointment_booked", func(pref NotificationPreference) time.Time {
		return appt.StartAt.Add(-time.Duration(pref.LeadMinutes) * time.Minute)
	})
}

// AppointmentCanceled enqueues an immediate cancellation notice per enabled
// preference of the patient.
func (s *PgStore) AppointmentCanceled(ctx context.Context, appt *scheduling.Appointment) error {
	now := s.now().UTC()
	return s.enqueueForAppointment(ctx, appt, "appointment_canceled", func(NotificationPreference) time.Time {
		return now
	})
}

func (s *PgStore) enqueueForAppointment(ctx context.Context, appt *scheduling.Appointment, template string, sendAfter func(NotificationPreference) time.Time) error {
	prefs, err := s.ListPreferences(ctx, "patient", &appt.PatientID)
	if err != nil {
		return fmt.Errorf("list notification preferences: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID.String(),
		"provider_id":    appt.ProviderID.String(),
		"start_at":       appt.StartAt,
		"end_at":         appt.EndAt,
	})
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	apptID := appt.ID
	for _, pref := range prefs {
		if !pref.Enabled {
			continue
		}
		msg := &OutboxMessage{
			AppointmentID: &apptID,
			Channel:       pref.Channel,
			Template:      template,
			Payload:       payload,
			SendAfter:     sendAfter(pref),
		}
		if err := s.enqueue(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// Audit

// Record implements scheduling.AuditSink.
func (s *PgStore) Record(ctx context.Context, entry scheduling.AuditEntry) error {
	var metadata []byte
	if entry.Metadata != nil {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			s.logger.Warn("marshal audit metadata failed", zap.String("action", entry.Action), zap.Error(err))
		} else {
			metadata = data
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor_type, actor_id, action, entity_type, entity_id, metadata, event_ts)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, entry.Actor.Type, entry.Actor.ID, entry.Action, entry.EntityType, entry.EntityID, metadata)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (s *PgStore) ListAuditLogs(ctx context.Context, limit int) ([]AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, actor_type, actor_id, action, entity_type, entity_id, ip, metadata, event_ts
		FROM audit_logs
		ORDER BY event_ts DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AuditLog
	for rows.Next() {
		var a AuditLog
		err := rows.Scan(
			&a.ID,
			&a.ActorType,
			&a.ActorID,
			&a.Action,
			&a.EntityType,
			&a.EntityID,
			&a.IP,
			&a.Metadata,
			&a.EventTS,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
