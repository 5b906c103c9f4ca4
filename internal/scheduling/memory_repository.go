package scheduling

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository used by tests and local
// experimentation. A single mutex stands in for the per-provider advisory
// lock: WithTx holds it for the whole callback, so the conflict guard sees
// the same read-then-write atomicity it gets from Postgres.
type MemoryRepository struct {
	mu   sync.Mutex
	inTx bool

	patients     map[uuid.UUID]Patient
	providers    map[uuid.UUID]Provider
	rules        map[uuid.UUID]AvailabilityRule
	exceptions   map[uuid.UUID]AvailabilityException
	appointments map[uuid.UUID]Appointment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients:     make(map[uuid.UUID]Patient),
		providers:    make(map[uuid.UUID]Provider),
		rules:        make(map[uuid.UUID]AvailabilityRule),
		exceptions:   make(map[uuid.UUID]AvailabilityException),
		appointments: make(map[uuid.UUID]Appointment),
	}
}

func (r *MemoryRepository) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

type memorySnapshot struct {
	patients     map[uuid.UUID]Patient
	providers    map[uuid.UUID]Provider
	rules        map[uuid.UUID]AvailabilityRule
	exceptions   map[uuid.UUID]AvailabilityException
	appointments map[uuid.UUID]Appointment
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (r *MemoryRepository) snapshot() memorySnapshot {
	return memorySnapshot{
		patients:     copyMap(r.patients),
		providers:    copyMap(r.providers),
		rules:        copyMap(r.rules),
		exceptions:   copyMap(r.exceptions),
		appointments: copyMap(r.appointments),
	}
}

func (r *MemoryRepository) restore(s memorySnapshot) {
	r.patients = s.patients
	r.providers = s.providers
	r.rules = s.rules
	r.exceptions = s.exceptions
	r.appointments = s.appointments
}

func (r *MemoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.snapshot()
	txRepo := &MemoryRepository{
		inTx:         true,
		patients:     r.patients,
		providers:    r.providers,
		rules:        r.rules,
		exceptions:   r.exceptions,
		appointments: r.appointments,
	}

	if err := fn(ctx, txRepo); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *MemoryRepository) LockProvider(ctx context.Context, providerID uuid.UUID) error {
	// The transaction mutex already serializes all writers.
	return nil
}

// Patients

func (r *MemoryRepository) CreatePatient(ctx context.Context, p *Patient) error {
	defer r.lock()()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.patients[p.ID] = *p
	return nil
}

func (r *MemoryRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	defer r.lock()()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) GetPatientByEmail(ctx context.Context, email string) (*Patient, error) {
	defer r.lock()()
	for _, p := range r.patients {
		if strings.EqualFold(p.Email, email) {
			out := p
			return &out, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (r *MemoryRepository) ListPatients(ctx context.Context) ([]Patient, error) {
	defer r.lock()()
	out := make([]Patient, 0, len(r.patients))
	for _, p := range r.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (r *MemoryRepository) UpdatePatient(ctx context.Context, p *Patient) error {
	defer r.lock()()
	if _, ok := r.patients[p.ID]; !ok {
		return ErrPatientNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	r.patients[p.ID] = *p
	return nil
}

func (r *MemoryRepository) DeletePatientRow(ctx context.Context, id uuid.UUID) error {
	defer r.lock()()
	if _, ok := r.patients[id]; !ok {
		return ErrPatientNotFound
	}
	delete(r.patients, id)
	return nil
}

// Providers

func (r *MemoryRepository) CreateProvider(ctx context.Context, p *Provider) error {
	defer r.lock()()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.providers[p.ID] = *p
	return nil
}

func (r *MemoryRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	defer r.lock()()
	p, ok := r.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) GetProviderByEmail(ctx context.Context, email string) (*Provider, error) {
	defer r.lock()()
	for _, p := range r.providers {
		if strings.EqualFold(p.Email, email) {
			out := p
			return &out, nil
		}
	}
	return nil, ErrProviderNotFound
}

func (r *MemoryRepository) ListProviders(ctx context.Context) ([]Provider, error) {
	defer r.lock()()
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

func (r *MemoryRepository) UpdateProvider(ctx context.Context, p *Provider) error {
	defer r.lock()()
	if _, ok := r.providers[p.ID]; !ok {
		return ErrProviderNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	r.providers[p.ID] = *p
	return nil
}

// Availability rules

func (r *MemoryRepository) CreateRule(ctx context.Context, ar *AvailabilityRule) error {
	defer r.lock()()
	if ar.ID == uuid.Nil {
		ar.ID = uuid.New()
	}
	r.rules[ar.ID] = *ar
	return nil
}

func (r *MemoryRepository) GetRuleByID(ctx context.Context, id uuid.UUID) (*AvailabilityRule, error) {
	defer r.lock()()
	ar, ok := r.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	return &ar, nil
}

func (r *MemoryRepository) ListRulesByProvider(ctx context.Context, providerID uuid.UUID) ([]AvailabilityRule, error) {
	defer r.lock()()
	var out []AvailabilityRule
	for _, ar := range r.rules {
		if ar.ProviderID == providerID {
			out = append(out, ar)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (r *MemoryRepository) UpdateRule(ctx context.Context, ar *AvailabilityRule) error {
	defer r.lock()()
	if _, ok := r.rules[ar.ID]; !ok {
		return ErrRuleNotFound
	}
	r.rules[ar.ID] = *ar
	return nil
}

func (r *MemoryRepository) DeleteRule(ctx context.Context, id uuid.UUID) error {
	defer r.lock()()
	if _, ok := r.rules[id]; !ok {
		return ErrRuleNotFound
	}
	delete(r.rules, id)
	return nil
}

// Availability exceptions

func (r *MemoryRepository) CreateException(ctx context.Context, e *AvailabilityException) error {
	defer r.lock()()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now().UTC()
	r.exceptions[e.ID] = *e
	return nil
}

func (r *MemoryRepository) GetExceptionByID(ctx context.Context, id uuid.UUID) (*AvailabilityException, error) {
	defer r.lock()()
	e, ok := r.exceptions[id]
	if !ok {
		return nil, ErrExceptionNotFound
	}
	return &e, nil
}

func (r *MemoryRepository) ListExceptionsByProvider(ctx context.Context, providerID uuid.UUID) ([]AvailabilityException, error) {
	defer r.lock()()
	var out []AvailabilityException
	for _, e := range r.exceptions {
		if e.ProviderID == providerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (r *MemoryRepository) UpdateException(ctx context.Context, e *AvailabilityException) error {
	defer r.lock()()
	if _, ok := r.exceptions[e.ID]; !ok {
		return ErrExceptionNotFound
	}
	r.exceptions[e.ID] = *e
	return nil
}

func (r *MemoryRepository) DeleteException(ctx context.Context, id uuid.UUID) error {
	defer r.lock()()
	if _, ok := r.exceptions[id]; !ok {
		return ErrExceptionNotFound
	}
	delete(r.exceptions, id)
	return nil
}

// Appointments

func (r *MemoryRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	defer r.lock()()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	r.appointments[a.ID] = *a
	return nil
}

func (r *MemoryRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	defer r.lock()()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	defer r.lock()()
	var out []Appointment
	for _, a := range r.appointments {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.ProviderID != nil && a.ProviderID != *f.ProviderID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (r *MemoryRepository) ListBlockingAppointments(ctx context.Context, providerID uuid.UUID, window Interval) ([]Appointment, error) {
	defer r.lock()()
	var out []Appointment
	for _, a := range r.appointments {
		if a.ProviderID != providerID || !a.Status.Blocking() {
			continue
		}
		if !window.Overlaps(a.Interval()) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (r *MemoryRepository) UpdateAppointment(ctx context.Context, a *Appointment) error {
	defer r.lock()()
	if _, ok := r.appointments[a.ID]; !ok {
		return ErrAppointmentNotFound
	}
	a.UpdatedAt = time.Now().UTC()
	r.appointments[a.ID] = *a
	return nil
}

func (r *MemoryRepository) CountBlockingAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	defer r.lock()()
	count := 0
	for _, a := range r.appointments {
		if a.PatientID == patientID && a.Status.Blocking() {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) DeleteCanceledAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) (int64, error) {
	defer r.lock()()
	var deleted int64
	for id, a := range r.appointments {
		if a.PatientID == patientID && a.Status == StatusCanceled {
			delete(r.appointments, id)
			deleted++
		}
	}
	return deleted, nil
}
