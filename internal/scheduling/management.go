package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Management operations for the records the engine computes over. Updates
// are field-by-field through explicit structs; there is no dynamic patching.

func errInvalidRecordf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, fmt.Sprintf(format, args...))
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	if p.FirstName == "" || p.LastName == "" {
		return nil, errInvalidRecordf("first_name and last_name are required")
	}
	if p.Email == "" {
		return nil, errInvalidRecordf("email is required")
	}
	if err := s.repo.CreatePatient(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetPatientByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context) ([]Patient, error) {
	return s.repo.ListPatients(ctx)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	if p.FirstName == "" || p.LastName == "" || p.Email == "" {
		return nil, errInvalidRecordf("first_name, last_name and email are required")
	}
	if err := s.repo.UpdatePatient(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) CreateProvider(ctx context.Context, p *Provider) (*Provider, error) {
	if p.DisplayName == "" {
		return nil, errInvalidRecordf("display_name is required")
	}
	if p.Email == "" {
		return nil, errInvalidRecordf("email is required")
	}
	if err := s.repo.CreateProvider(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return s.repo.GetProviderByID(ctx, id)
}

func (s *Service) ListProviders(ctx context.Context) ([]Provider, error) {
	return s.repo.ListProviders(ctx)
}

func (s *Service) UpdateProvider(ctx context.Context, p *Provider) (*Provider, error) {
	if p.DisplayName == "" || p.Email == "" {
		return nil, errInvalidRecordf("display_name and email are required")
	}
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	if err := s.repo.UpdateProvider(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateRule validates the authoring convention before persisting: weekday
// 1=Monday..7=Sunday, parseable wall-clock times in increasing order.
func (s *Service) CreateRule(ctx context.Context, r *AvailabilityRule) (*AvailabilityRule, error) {
	if err := ValidateRuleWeekday(r.Weekday); err != nil {
		return nil, err
	}
	if err := ValidateRuleTimes(r.StartTime, r.EndTime); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetProviderByID(ctx, r.ProviderID); err != nil {
		return nil, err
	}
	if err := s.repo.CreateRule(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) ListRules(ctx context.Context, providerID uuid.UUID) ([]AvailabilityRule, error) {
	return s.repo.ListRulesByProvider(ctx, providerID)
}

func (s *Service) UpdateRule(ctx context.Context, r *AvailabilityRule) (*AvailabilityRule, error) {
	if err := ValidateRuleWeekday(r.Weekday); err != nil {
		return nil, err
	}
	if err := ValidateRuleTimes(r.StartTime, r.EndTime); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetRuleByID(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	r.ProviderID = existing.ProviderID
	if err := s.repo.UpdateRule(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteRule(ctx, id)
}

func (s *Service) CreateException(ctx context.Context, e *AvailabilityException) (*AvailabilityException, error) {
	if err := validateInterval(e.StartAt, e.EndAt); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetProviderByID(ctx, e.ProviderID); err != nil {
		return nil, err
	}
	if err := s.repo.CreateException(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) ListExceptions(ctx context.Context, providerID uuid.UUID) ([]AvailabilityException, error) {
	return s.repo.ListExceptionsByProvider(ctx, providerID)
}

func (s *Service) UpdateException(ctx context.Context, e *AvailabilityException) (*AvailabilityException, error) {
	if err := validateInterval(e.StartAt, e.EndAt); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetExceptionByID(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	e.ProviderID = existing.ProviderID
	if err := s.repo.UpdateException(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) DeleteException(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteException(ctx, id)
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	if f.Status != "" && !f.Status.Known() {
		return nil, errInvalidRecordf("unknown appointment status %q", f.Status)
	}
	return s.repo.ListAppointments(ctx, f)
}

// FindPatientByEmail and FindProviderByEmail back the demo login flow.
func (s *Service) FindPatientByEmail(ctx context.Context, email string) (*Patient, error) {
	return s.repo.GetPatientByEmail(ctx, email)
}

func (s *Service) FindProviderByEmail(ctx context.Context, email string) (*Provider, error) {
	return s.repo.GetProviderByEmail(ctx, email)
}
