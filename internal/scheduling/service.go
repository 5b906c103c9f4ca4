package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Actor identifies who performed an operation, for the audit trail.
type Actor struct {
	Type string // patient, provider, admin, system
	ID   *uuid.UUID
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Actor{Type: "system"}
}

type AuditEntry struct {
	Actor      Actor
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	Metadata   map[string]any
}

// AuditSink records audit entries. Failures are logged by the service and
// never fail the operation that produced them.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// NotificationSink enqueues appointment lifecycle notifications for later
// delivery by an external consumer.
type NotificationSink interface {
	AppointmentBooked(ctx context.Context, appt *Appointment) error
	AppointmentCanceled(ctx context.Context, appt *Appointment) error
}

// Service is the provider availability and booking engine. All writes to the
// appointment ledger pass through its conflict guard.
type Service struct {
	repo        Repository
	audit       AuditSink        // optional
	notify      NotificationSink // optional
	logger      *zap.Logger
	horizonDays int
	slotDur     time.Duration
	now         func() time.Time
}

func NewService(repo Repository, audit AuditSink, notify NotificationSink, logger *zap.Logger, horizonDays, slotMinutes int) *Service {
	return &Service{
		repo:        repo,
		audit:       audit,
		notify:      notify,
		logger:      logger,
		horizonDays: horizonDays,
		slotDur:     time.Duration(slotMinutes) * time.Minute,
		now:         time.Now,
	}
}

// GetAvailability computes the provider's bookable slots over the horizon
// [today, today+horizonDays] in the provider's local timezone, alongside the
// raw rules and exceptions the computation consumed.
func (s *Service) GetAvailability(ctx context.Context, providerID uuid.UUID) (*Availability, error) {
	provider, err := s.repo.GetProviderByID(ctx, providerID)
	if err != nil {
		return nil, err
	}

	loc, tzName := resolveTimezone(provider.Timezone)
	now := s.now().In(loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	horizonEnd := dayStart.AddDate(0, 0, s.horizonDays+1)

	rules, err := s.repo.ListRulesByProvider(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}

	exceptions, err := s.repo.ListExceptionsByProvider(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("list availability exceptions: %w", err)
	}

	appointments, err := s.repo.ListBlockingAppointments(ctx, providerID, Interval{Start: dayStart, End: horizonEnd})
	if err != nil {
		return nil, fmt.Errorf("list blocking appointments: %w", err)
	}

	busy := make([]Interval, 0, len(appointments)+len(exceptions))
	for _, a := range appointments {
		busy = append(busy, a.Interval())
	}
	for _, e := range exceptions {
		if e.IsBlocking {
			busy = append(busy, Interval{Start: e.StartAt, End: e.EndAt})
		}
	}

	windows := ExpandRules(rules, dayStart, s.horizonDays)
	slots := GenerateSlots(windows, busy, s.slotDur, now)

	return &Availability{
		Provider:   provider,
		Rules:      rules,
		Exceptions: exceptions,
		Slots:      slots,
		Timezone:   tzName,
	}, nil
}

// Book creates an appointment after running the conflict guard. The overlap
// check and the insert share one transaction serialized per provider, so two
// concurrent requests for overlapping intervals cannot both commit.
func (s *Service) Book(ctx context.Context, providerID, patientID uuid.UUID, startAt, endAt time.Time) (*Appointment, error) {
	if err := validateInterval(startAt, endAt); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		return nil, err
	}

	var created *Appointment
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		if err := r.LockProvider(ctx, providerID); err != nil {
			return err
		}

		if err := checkConflicts(ctx, r, providerID, Interval{Start: startAt, End: endAt}, uuid.Nil); err != nil {
			return err
		}

		appt := &Appointment{
			PatientID:  patientID,
			ProviderID: providerID,
			StartAt:    startAt,
			EndAt:      endAt,
			Status:     StatusBooked,
		}
		if err := r.CreateAppointment(ctx, appt); err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "appointment.booked", "appointment", created.ID, map[string]any{
		"provider_id": providerID.String(),
		"patient_id":  patientID.String(),
		"start_at":    startAt,
		"end_at":      endAt,
	})
	if s.notify != nil {
		if err := s.notify.AppointmentBooked(ctx, created); err != nil {
			s.logger.Warn("enqueue booking notification failed",
				zap.String("appointment_id", created.ID.String()), zap.Error(err))
		}
	}

	return created, nil
}

// Reschedule moves an appointment to a new interval under the same conflict
// guard, excluding the appointment itself from the overlap check. A blocking
// appointment transitions to rescheduled; terminal statuses keep their
// status and only the interval changes.
func (s *Service) Reschedule(ctx context.Context, appointmentID uuid.UUID, startAt, endAt time.Time) (*Appointment, error) {
	if err := validateInterval(startAt, endAt); err != nil {
		return nil, err
	}

	var updated *Appointment
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		appt, err := r.GetAppointmentByID(ctx, appointmentID)
		if err != nil {
			return err
		}

		if err := r.LockProvider(ctx, appt.ProviderID); err != nil {
			return err
		}

		if err := checkConflicts(ctx, r, appt.ProviderID, Interval{Start: startAt, End: endAt}, appt.ID); err != nil {
			return err
		}

		appt.StartAt = startAt
		appt.EndAt = endAt
		if appt.Status.Blocking() {
			appt.Status = StatusRescheduled
		}
		if err := r.UpdateAppointment(ctx, appt); err != nil {
			return err
		}
		updated = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "appointment.rescheduled", "appointment", updated.ID, map[string]any{
		"start_at": startAt,
		"end_at":   endAt,
	})

	return updated, nil
}

// Cancel marks an appointment canceled. Cancelling an already-canceled
// appointment is a no-op that returns the current state.
func (s *Service) Cancel(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appt.Status == StatusCanceled {
		return appt, nil
	}

	appt.Status = StatusCanceled
	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "appointment.canceled", "appointment", appt.ID, nil)
	if s.notify != nil {
		if err := s.notify.AppointmentCanceled(ctx, appt); err != nil {
			s.logger.Warn("enqueue cancellation notification failed",
				zap.String("appointment_id", appt.ID.String()), zap.Error(err))
		}
	}

	return appt, nil
}

// DeletePatient removes a patient and their canceled appointments in one
// transaction. Deletion is refused while any booked or rescheduled
// appointment exists.
func (s *Service) DeletePatient(ctx context.Context, patientID uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		if _, err := r.GetPatientByID(ctx, patientID); err != nil {
			return err
		}

		active, err := r.CountBlockingAppointmentsByPatient(ctx, patientID)
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrActiveAppointments
		}

		// Canceled appointments go first to satisfy the FK on patients.
		if _, err := r.DeleteCanceledAppointmentsByPatient(ctx, patientID); err != nil {
			return err
		}

		return r.DeletePatientRow(ctx, patientID)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, "patient.deleted", "patient", patientID, nil)
	return nil
}

// checkConflicts queries the provider's blocking appointments overlapping
// the proposed interval and rejects on any overlap, skipping excludeID when
// updating an existing appointment.
func checkConflicts(ctx context.Context, r Repository, providerID uuid.UUID, proposed Interval, excludeID uuid.UUID) error {
	blocking, err := r.ListBlockingAppointments(ctx, providerID, proposed)
	if err != nil {
		return fmt.Errorf("list blocking appointments: %w", err)
	}
	for _, b := range blocking {
		if excludeID != uuid.Nil && b.ID == excludeID {
			continue
		}
		if proposed.Overlaps(b.Interval()) {
			return ErrBookingConflict
		}
	}
	return nil
}

func validateInterval(startAt, endAt time.Time) error {
	if startAt.IsZero() || endAt.IsZero() {
		return ErrMissingInterval
	}
	if !startAt.Before(endAt) {
		return ErrInvalidInterval
	}
	return nil
}

// resolveTimezone loads the provider's IANA zone, falling back to UTC for
// empty or unrecognized names.
func resolveTimezone(name string) (*time.Location, string) {
	if name == "" {
		return time.UTC, "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, "UTC"
	}
	return loc, name
}

func (s *Service) recordAudit(ctx context.Context, action, entityType string, entityID uuid.UUID, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	id := entityID
	entry := AuditEntry{
		Actor:      ActorFrom(ctx),
		Action:     action,
		EntityType: entityType,
		EntityID:   &id,
		Metadata:   metadata,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("record audit entry failed", zap.String("action", action), zap.Error(err))
	}
}
