package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAudit struct {
	entries []AuditEntry
}

func (f *fakeAudit) Record(ctx context.Context, entry AuditEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeNotify struct {
	booked   []uuid.UUID
	canceled []uuid.UUID
}

func (f *fakeNotify) AppointmentBooked(ctx context.Context, appt *Appointment) error {
	f.booked = append(f.booked, appt.ID)
	return nil
}

func (f *fakeNotify) AppointmentCanceled(ctx context.Context, appt *Appointment) error {
	f.canceled = append(f.canceled, appt.ID)
	return nil
}

type serviceFixture struct {
	svc      *Service
	repo     *MemoryRepository
	audit    *fakeAudit
	notify   *fakeNotify
	provider *Provider
	patient  *Patient
	now      time.Time
}

// newServiceFixture builds a service over the in-memory repository with one
// provider (weekdays 09:00-17:00) and one patient, frozen at Monday 08:00.
func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctx := context.Background()

	repo := NewMemoryRepository()
	audit := &fakeAudit{}
	notify := &fakeNotify{}
	svc := NewService(repo, audit, notify, zap.NewNop(), 14, 30)

	now := mondayMidnight.Add(8 * time.Hour)
	svc.now = func() time.Time { return now }

	provider, err := svc.CreateProvider(ctx, &Provider{
		DisplayName: "Dr. Rivera",
		Specialty:   "Dermatology",
		Email:       "rivera@clinic.test",
		Timezone:    "UTC",
	})
	require.NoError(t, err)

	for weekday := 1; weekday <= 7; weekday++ {
		_, err = svc.CreateRule(ctx, &AvailabilityRule{
			ProviderID: provider.ID,
			Weekday:    weekday,
			StartTime:  "09:00",
			EndTime:    "17:00",
		})
		require.NoError(t, err)
	}

	patient, err := svc.CreatePatient(ctx, &Patient{
		FirstName: "Ana",
		LastName:  "Reyes",
		Email:     "ana@example.test",
	})
	require.NoError(t, err)

	return &serviceFixture{
		svc:      svc,
		repo:     repo,
		audit:    audit,
		notify:   notify,
		provider: provider,
		patient:  patient,
		now:      now,
	}
}

func (f *serviceFixture) slotAt(hour, min int) (time.Time, time.Time) {
	start := mondayMidnight.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
	return start, start.Add(30 * time.Minute)
}

func TestBookRejectsOverlap(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	start, end := f.slotAt(10, 0)
	_, err := f.svc.Book(ctx, f.provider.ID, f.patient.ID, start, end)
	require.NoError(t, err)

	// Partial overlap with the existing booking.
	start2, end2 := f.slotAt(10, 15)
	_, err = f.svc.Book(ctx, f.provider.ID, f.patient.ID, start2, end2)
	assert.ErrorIs(t, err, ErrBookingConflict)

	// Back to back is fine.
	start3, end3 := f.slotAt(10, 30)
	appt, err := f.svc.Book(ctx, f.provider.ID, f.patient.ID, start3, end3)
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, appt.Status)
}

func TestBookIgnoresNonBlockingStatuses(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	start, end := f.slotAt(11, 0)
	appt, err := f.svc.Book(ctx, f.provider.ID, f.patient.ID, start, end)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, appt.ID)
	require.NoError(t, err)

	// The canceled appointment no longer blocks its interval.
	rebooked, err := f.svc.Book(ctx, f.provider.ID, f.patient.ID, start, end)
	require.NoError(t, err)
	assert.NotEqual(t, appt.ID, rebooked.ID)
}

func TestBookValidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	start, end := f.slotAt(10, 0)

	_, err := f.svc.Book(ctx, f.provider.ID, f.patient.ID, time.Time{}, end)
	assert.ErrorIs(t, err, ErrMissingInterval)

	_, err = f.svc.Book(ctx, f.provider.ID, f.patient.ID, end, start)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = f.svc.Book(ctx, f.provider.ID, f.patient.ID, start, start)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = f.svc.Book(ctx, f.provider.ID, uuid.New(), start, end)
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = f.svc.Book(ctx, uuid.New(), f.patient.ID, start, end)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestBookEmitsAuditAndNotification(t *testing.T) {
	f := newServiceFixture(t)
	actorID := f.patient.ID
	ctx := WithActor(context.Background(), Actor{Type: "patient", ID: &actorID})

	start, end := f.slotAt(9, 0)
	appt, err := f.svc.Book(ctx, f.provider.ID, f.patient.ID, start, end)
	require.NoError(t, err)

	require.NotEmpty(t, f.audit.entries)
	last := f.audit.entries[len(f.audit.entries)-1]
	assert.Equal(t, "appointment.booked", last.Action)
	assert.Equal(t, "patient", last.Actor.Type)
	require.NotNil(t, last.EntityID)
	assert.Equal(t, appt.ID, *last.EntityID)

	assert.Equal(t, []uuid.UUID{appt.ID}, f.notify.booked)
}

func TestRescheduleExcludesSelf(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	start, end := f.slotAt(10, 0)
	appt, err := f.svc.Book(ctx, f.provider.ID, f.patient.ID, start, end)
	require.NoError(t, err)

	// Shifting into an interval that overlaps only the appointment itself
	// must not count as a conflict.
	newStart, newEnd := f.slotAt(10, 15)
	updated, err := f.svc.Reschedule(ctx, appt.ID, newStart, newEnd)
	require.NoError(t, err)
	assert.Equal(t, StatusRescheduled, updated.Status)
	assert.Equal(t, newStart, updated.StartAt)
	assert.Equal(t, newEnd, updated.EndAt)
}

func TestRescheduleConflictsWithOthers(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	startA, endA := f.slotAt(10, 0)
	_, err := f.svc.Book(ctx, f.provider.ID, f.patient.ID, startA, endA)
	require.NoError(t, err)

	startB, endB := f.slotAt(14, 0)
	apptB, err := f.svc.Book(ctx, f.provider.ID, f.patient.ID, startB, endB)
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, apptB.ID, startA, endA)
	assert.ErrorIs(t, err, ErrBookingConflict)

	// The failed reschedule must not have moved it.
	current, err := f.svc.GetAppointment(ctx, apptB.ID)
	require.NoError(t, err)
	assert.Equal(t, startB, current.StartAt)
	assert.Equal(t, StatusBooked, current.Status)
}

func TestRescheduleKeepsTerminalStatus(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	start, end := f.slotAt(10, 0)
	appt, err := f.svc.Book(ctx, f.provider.ID, f.patient.ID, start, end)
	require.NoError(t, err)

	appt.Status = StatusCompleted
	require.NoError(t, f.repo.UpdateAppointment(ctx, appt))

	newStart, newEnd := f.slotAt(15, 0)
	updated, err := f.svc.Reschedule(ctx, appt.ID, newStart, newEnd)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
}

func TestRescheduleUnknownAppointment(t *testing.T) {
	f := newServiceFixture(t)
	start, end := f.slotAt(10, 0)

	_, err := f.svc.Reschedule(context.Background(), uuid.New(), start, end)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	start, end := f.slotAt(10, 0)
	appt, err := f.svc.Book(ctx, f.provider.ID, f.patient.ID, start, end)
	require.NoError(t, err)

	first, err := f.svc.Cancel(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, first.Status)

	second, err := f.svc.Cancel(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, second.Status)

	// Only the first cancel enqueues a notification.
	assert.Equal(t, []uuid.UUID{appt.ID}, f.notify.canceled)
}

func TestDeletePatientRefusedWhileActive(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	start, end := f.slotAt(10, 0)
	appt, err := f.svc.Book(ctx, f.provider.ID, f.patient.ID, start, end)
	require.NoError(t, err)

	err = f.svc.DeletePatient(ctx, f.patient.ID)
	assert.ErrorIs(t, err, ErrActiveAppointments)

	// Rescheduled still blocks deletion.
	newStart, newEnd := f.slotAt(11, 0)
	_, err = f.svc.Reschedule(ctx, appt.ID, newStart, newEnd)
	require.NoError(t, err)
	err = f.svc.DeletePatient(ctx, f.patient.ID)
	assert.ErrorIs(t, err, ErrActiveAppointments)

	// The refused delete left everything in place.
	_, err = f.svc.GetPatient(ctx, f.patient.ID)
	require.NoError(t, err)
}

func TestDeletePatientCascadesCanceled(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	start, end := f.slotAt(10, 0)
	appt, err := f.svc.Book(ctx, f.provider.ID, f.patient.ID, start, end)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, appt.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeletePatient(ctx, f.patient.ID))

	_, err = f.svc.GetPatient(ctx, f.patient.ID)
	assert.ErrorIs(t, err, ErrPatientNotFound)
	_, err = f.svc.GetAppointment(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestDeletePatientUnknown(t *testing.T) {
	f := newServiceFixture(t)
	err := f.svc.DeletePatient(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestGetAvailabilitySlotRoundTrip(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	avail, err := f.svc.GetAvailability(ctx, f.provider.ID)
	require.NoError(t, err)
	require.NotEmpty(t, avail.Slots)
	assert.Equal(t, "UTC", avail.Timezone)

	target := avail.Slots[0]
	assert.False(t, target.StartAt.Before(f.now.Add(-30*time.Minute)))

	_, err = f.svc.Book(ctx, f.provider.ID, f.patient.ID, target.StartAt, target.EndAt)
	require.NoError(t, err)

	after, err := f.svc.GetAvailability(ctx, f.provider.ID)
	require.NoError(t, err)
	for _, s := range after.Slots {
		assert.False(t, s.StartAt.Equal(target.StartAt) && s.EndAt.Equal(target.EndAt),
			"booked slot must disappear from availability")
	}
	assert.Len(t, after.Slots, len(avail.Slots)-1)
}

func TestGetAvailabilityBlockingException(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	before, err := f.svc.GetAvailability(ctx, f.provider.ID)
	require.NoError(t, err)

	// Block Tuesday morning entirely.
	tuesday := mondayMidnight.AddDate(0, 0, 1)
	_, err = f.svc.CreateException(ctx, &AvailabilityException{
		ProviderID: f.provider.ID,
		StartAt:    tuesday.Add(9 * time.Hour),
		EndAt:      tuesday.Add(13 * time.Hour),
		IsBlocking: true,
	})
	require.NoError(t, err)

	after, err := f.svc.GetAvailability(ctx, f.provider.ID)
	require.NoError(t, err)
	assert.Len(t, after.Slots, len(before.Slots)-8)
	for _, s := range after.Slots {
		blocked := Interval{Start: tuesday.Add(9 * time.Hour), End: tuesday.Add(13 * time.Hour)}
		assert.False(t, (Interval{Start: s.StartAt, End: s.EndAt}).Overlaps(blocked))
	}
}

func TestGetAvailabilityNonBlockingException(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	before, err := f.svc.GetAvailability(ctx, f.provider.ID)
	require.NoError(t, err)

	tuesday := mondayMidnight.AddDate(0, 0, 1)
	_, err = f.svc.CreateException(ctx, &AvailabilityException{
		ProviderID: f.provider.ID,
		StartAt:    tuesday.Add(9 * time.Hour),
		EndAt:      tuesday.Add(13 * time.Hour),
		IsBlocking: false,
	})
	require.NoError(t, err)

	after, err := f.svc.GetAvailability(ctx, f.provider.ID)
	require.NoError(t, err)
	assert.Len(t, after.Slots, len(before.Slots), "annotations do not consume slots")
	assert.Len(t, after.Exceptions, 1)
}

func TestGetAvailabilityTimezoneFallback(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.provider.Timezone = "Not/AZone"
	_, err := f.svc.UpdateProvider(ctx, f.provider)
	require.NoError(t, err)

	avail, err := f.svc.GetAvailability(ctx, f.provider.ID)
	require.NoError(t, err)
	assert.Equal(t, "UTC", avail.Timezone)
	require.NotEmpty(t, avail.Slots)
	assert.Equal(t, time.UTC, avail.Slots[0].StartAt.Location())
}

func TestGetAvailabilityUnknownProvider(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.GetAvailability(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestCreateRuleValidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRule(ctx, &AvailabilityRule{
		ProviderID: f.provider.ID,
		Weekday:    0,
		StartTime:  "09:00",
		EndTime:    "17:00",
	})
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = f.svc.CreateRule(ctx, &AvailabilityRule{
		ProviderID: f.provider.ID,
		Weekday:    1,
		StartTime:  "17:00",
		EndTime:    "09:00",
	})
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = f.svc.CreateRule(ctx, &AvailabilityRule{
		ProviderID: uuid.New(),
		Weekday:    1,
		StartTime:  "09:00",
		EndTime:    "17:00",
	})
	assert.ErrorIs(t, err, ErrProviderNotFound)
}
