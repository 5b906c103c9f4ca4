package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrProviderNotFound    = errors.New("provider not found")
	ErrRuleNotFound        = errors.New("availability rule not found")
	ErrExceptionNotFound   = errors.New("availability exception not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrBookingConflict means the proposed interval overlaps an existing
	// blocking appointment for the provider.
	ErrBookingConflict = errors.New("provider already has a blocking appointment in that interval")

	// ErrActiveAppointments blocks patient deletion while any booked or
	// rescheduled appointment exists.
	ErrActiveAppointments = errors.New("patient has active appointments")

	ErrMissingInterval = errors.New("start_at and end_at are required")
	ErrInvalidInterval = errors.New("start_at must be before end_at")
	ErrInvalidRule     = errors.New("invalid availability rule")
	ErrInvalidRecord   = errors.New("invalid record")
)

func errInvalidRulef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRule, fmt.Sprintf(format, args...))
}

// AppointmentFilter narrows ListAppointments. Zero values mean "any".
type AppointmentFilter struct {
	PatientID  *uuid.UUID
	ProviderID *uuid.UUID
	Status     AppointmentStatus
}

// Repository contains all DB interactions needed by the scheduling service.
type Repository interface {
	// WithTx runs fn against a transactional view of the repository. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error

	// LockProvider serializes writers for one provider. Only meaningful
	// inside WithTx; the lock is released when the transaction ends.
	LockProvider(ctx context.Context, providerID uuid.UUID) error

	CreatePatient(ctx context.Context, p *Patient) error
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetPatientByEmail(ctx context.Context, email string) (*Patient, error)
	ListPatients(ctx context.Context) ([]Patient, error)
	UpdatePatient(ctx context.Context, p *Patient) error
	DeletePatientRow(ctx context.Context, id uuid.UUID) error

	CreateProvider(ctx context.Context, p *Provider) error
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	GetProviderByEmail(ctx context.Context, email string) (*Provider, error)
	ListProviders(ctx context.Context) ([]Provider, error)
	UpdateProvider(ctx context.Context, p *Provider) error

	CreateRule(ctx context.Context, r *AvailabilityRule) error
	GetRuleByID(ctx context.Context, id uuid.UUID) (*AvailabilityRule, error)
	ListRulesByProvider(ctx context.Context, providerID uuid.UUID) ([]AvailabilityRule, error)
	UpdateRule(ctx context.Context, r *AvailabilityRule) error
	DeleteRule(ctx context.Context, id uuid.UUID) error

	CreateException(ctx context.Context, e *AvailabilityException) error
	GetExceptionByID(ctx context.Context, id uuid.UUID) (*AvailabilityException, error)
	ListExceptionsByProvider(ctx context.Context, providerID uuid.UUID) ([]AvailabilityException, error)
	UpdateException(ctx context.Context, e *AvailabilityException) error
	DeleteException(ctx context.Context, id uuid.UUID) error

	CreateAppointment(ctx context.Context, a *Appointment) error
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error)
	// ListBlockingAppointments returns booked/rescheduled appointments for
	// the provider whose interval overlaps window.
	ListBlockingAppointments(ctx context.Context, providerID uuid.UUID, window Interval) ([]Appointment, error)
	UpdateAppointment(ctx context.Context, a *Appointment) error

	// For the cancellation cascade.
	CountBlockingAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) (int, error)
	DeleteCanceledAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) (int64, error)
}
