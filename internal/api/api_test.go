package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omasdev/provider-scheduling/internal/scheduling"
	"github.com/omasdev/provider-scheduling/internal/session"
)

type memorySessionStore struct {
	sessions map[string]*session.Session
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[string]*session.Session)}
}

func (s *memorySessionStore) Create(ctx context.Context, userType string, userID uuid.UUID, displayName, email string) (*session.Session, error) {
	sess := &session.Session{
		Token:       uuid.NewString(),
		UserType:    userType,
		UserID:      userID,
		DisplayName: displayName,
		Email:       email,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	s.sessions[sess.Token] = sess
	return sess, nil
}

func (s *memorySessionStore) Get(ctx context.Context, token string) (*session.Session, error) {
	sess, ok := s.sessions[token]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return sess, nil
}

func (s *memorySessionStore) Revoke(ctx context.Context, token string) error {
	delete(s.sessions, token)
	return nil
}

type apiFixture struct {
	router   http.Handler
	sessions *memorySessionStore
	svc      *scheduling.Service
	provider *scheduling.Provider
	patient  *scheduling.Patient
	token    string
}

const testPIN = "4321"

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()

	repo := scheduling.NewMemoryRepository()
	svc := scheduling.NewService(repo, nil, nil, zap.NewNop(), 14, 30)
	sessions := newMemorySessionStore()

	r := chi.NewRouter()
	r.Post("/auth/login", loginHandler(svc, sessions, testPIN))
	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware(sessions))

		r.Get("/auth/session", sessionHandler())
		r.Post("/auth/logout", logoutHandler(sessions))

		r.Post("/patients", createPatientHandler(svc))
		r.Delete("/patients/{id}", deletePatientHandler(svc))
		r.Get("/providers/{id}/availability", getAvailabilityHandler(svc))
		r.Post("/appointments", createAppointmentHandler(svc))
		r.Get("/appointments", listAppointmentsHandler(svc))
		r.Put("/appointments/{id}", rescheduleAppointmentHandler(svc))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(svc))
	})

	provider, err := svc.CreateProvider(ctx, &scheduling.Provider{
		DisplayName: "Dr. Rivera",
		Specialty:   "Cardiology",
		Email:       "rivera@clinic.test",
		Timezone:    "UTC",
	})
	require.NoError(t, err)

	for weekday := 1; weekday <= 7; weekday++ {
		_, err = svc.CreateRule(ctx, &scheduling.AvailabilityRule{
			ProviderID: provider.ID,
			Weekday:    weekday,
			StartTime:  "09:00",
			EndTime:    "17:00",
		})
		require.NoError(t, err)
	}

	patient, err := svc.CreatePatient(ctx, &scheduling.Patient{
		FirstName: "Ana",
		LastName:  "Reyes",
		Email:     "ana@example.test",
	})
	require.NoError(t, err)

	sess, err := sessions.Create(ctx, session.UserTypePatient, patient.ID, "Ana Reyes", patient.Email)
	require.NoError(t, err)

	return &apiFixture{
		router:   r,
		sessions: sessions,
		svc:      svc,
		provider: provider,
		patient:  patient,
		token:    sess.Token,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(sessionHeader, f.token)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func futureSlot(hour int) (string, string) {
	day := time.Now().UTC().AddDate(0, 0, 2)
	start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC)
	return start.Format(time.RFC3339), start.Add(30 * time.Minute).Format(time.RFC3339)
}

func (f *apiFixture) bookingBody(start, end string) map[string]string {
	return map[string]string{
		"patient_id":  f.patient.ID.String(),
		"provider_id": f.provider.ID.String(),
		"start_at":    start,
		"end_at":      end,
	}
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication_required", decodeError(t, rec).Error)
}

func TestLoginFlow(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"user_type": "patient",
		"email":     "ANA@example.test",
		"pin":       testPIN,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string          `json:"token"`
		User  SessionResponse `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, f.patient.ID, resp.User.UserID)
	assert.Equal(t, "patient", resp.User.UserType)
}

func TestLoginRejectsBadPIN(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"user_type": "patient",
		"email":     f.patient.Email,
		"pin":       "0000",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_pin", decodeError(t, rec).Error)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"user_type": "provider",
		"email":     "nobody@clinic.test",
		"pin":       testPIN,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "provider_not_found", decodeError(t, rec).Error)
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/auth/session", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookAppointmentConflict(t *testing.T) {
	f := newAPIFixture(t)
	start, end := futureSlot(10)

	rec := f.do(t, http.MethodPost, "/appointments", f.bookingBody(start, end))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "booked", created.Status)

	rec = f.do(t, http.MethodPost, "/appointments", f.bookingBody(start, end))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "booking_conflict", decodeError(t, rec).Error)
}

func TestBookAppointmentValidation(t *testing.T) {
	f := newAPIFixture(t)
	start, end := futureSlot(10)

	rec := f.do(t, http.MethodPost, "/appointments", f.bookingBody(end, start))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Error)

	body := f.bookingBody(start, end)
	body["patient_id"] = "not-a-uuid"
	rec = f.do(t, http.MethodPost, "/appointments", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = f.bookingBody("yesterday", end)
	rec = f.do(t, http.MethodPost, "/appointments", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRescheduleAndCancel(t *testing.T) {
	f := newAPIFixture(t)
	start, end := futureSlot(10)

	rec := f.do(t, http.MethodPost, "/appointments", f.bookingBody(start, end))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	newStart, newEnd := futureSlot(14)
	rec = f.do(t, http.MethodPut, fmt.Sprintf("/appointments/%s", created.ID), map[string]string{
		"start_at": newStart,
		"end_at":   newEnd,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var moved AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &moved))
	assert.Equal(t, "rescheduled", moved.Status)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/cancel", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Cancel again: same answer, no error.
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/cancel", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var canceled AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &canceled))
	assert.Equal(t, "canceled", canceled.Status)
}

func TestCancelUnknownAppointment(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/cancel", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "appointment_not_found", decodeError(t, rec).Error)
}

func TestDeletePatientGuard(t *testing.T) {
	f := newAPIFixture(t)
	start, end := futureSlot(10)

	rec := f.do(t, http.MethodPost, "/appointments", f.bookingBody(start, end))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("/patients/%s", f.patient.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "patient_has_active_appointments", decodeError(t, rec).Error)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/cancel", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("/patients/%s", f.patient.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetAvailability(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/providers/%s/availability", f.provider.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AvailabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, f.provider.ID, resp.Provider.ID)
	assert.Equal(t, "UTC", resp.Timezone)
	assert.Len(t, resp.Weekly, 7)
	require.NotEmpty(t, resp.UpcomingSlots)
	assert.Equal(t, 30, resp.UpcomingSlots[0].SlotMinutes)
}

func TestGetAvailabilityUnknownProvider(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/providers/%s/availability", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "provider_not_found", decodeError(t, rec).Error)
}

func TestCreatePatientValidation(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/patients", map[string]string{
		"first_name": "Luis",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Error)

	rec = f.do(t, http.MethodPost, "/patients", map[string]string{
		"first_name": "Luis",
		"last_name":  "Mora",
		"email":      "luis@example.test",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}
