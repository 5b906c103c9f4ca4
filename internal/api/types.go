package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/omasdev/provider-scheduling/internal/records"
	"github.com/omasdev/provider-scheduling/internal/scheduling"
)

// Request payloads. Each entity has an explicit allow-listed struct; unknown
// fields are ignored by the decoder and can never mutate state.

type LoginRequest struct {
	UserType string `json:"user_type"`
	Email    string `json:"email"`
	PIN      string `json:"pin"`
}

type LogoutRequest struct {
	Token string `json:"token"`
}

type PatientRequest struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Email       string  `json:"email"`
	Phone       *string `json:"phone"`
	DateOfBirth *string `json:"date_of_birth"`
}

type ProviderRequest struct {
	DisplayName string  `json:"display_name"`
	Specialty   string  `json:"specialty"`
	Email       string  `json:"email"`
	Phone       *string `json:"phone"`
	Timezone    string  `json:"timezone"`
}

type RuleRequest struct {
	ProviderID string  `json:"provider_id"`
	Weekday    int     `json:"weekday"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	Location   *string `json:"location"`
}

type ExceptionRequest struct {
	ProviderID string  `json:"provider_id"`
	StartAt    string  `json:"start_at"`
	EndAt      string  `json:"end_at"`
	Reason     *string `json:"reason"`
	// Absent means blocking; only an explicit false makes it non-blocking.
	IsBlocking *bool `json:"is_blocking"`
}

type CreateAppointmentRequest struct {
	PatientID  string `json:"patient_id"`
	ProviderID string `json:"provider_id"`
	StartAt    string `json:"start_at"`
	EndAt      string `json:"end_at"`
}

type RescheduleRequest struct {
	StartAt string `json:"start_at"`
	EndAt   string `json:"end_at"`
}

type PaymentRequest struct {
	AppointmentID   *string `json:"appointment_id"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Status          string  `json:"status"`
	ProviderAccount *string `json:"provider_account"`
}

type PreferenceRequest struct {
	UserType    string `json:"user_type"`
	UserID      string `json:"user_id"`
	Channel     string `json:"channel"`
	LeadMinutes int    `json:"lead_minutes"`
	Enabled     *bool  `json:"enabled"`
}

// Responses

type SessionResponse struct {
	Token       string    `json:"token"`
	UserType    string    `json:"user_type"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type PatientResponse struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Phone       *string   `json:"phone"`
	DateOfBirth *string   `json:"date_of_birth"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProviderResponse struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Specialty   string    `json:"specialty"`
	Email       string    `json:"email"`
	Phone       *string   `json:"phone"`
	Timezone    string    `json:"timezone"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RuleResponse struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Weekday    int       `json:"weekday"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Location   *string   `json:"location"`
}

type ExceptionResponse struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
	Reason     *string   `json:"reason"`
	IsBlocking bool      `json:"is_blocking"`
	CreatedAt  time.Time `json:"created_at"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	ProviderID  uuid.UUID `json:"provider_id"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Status      string    `json:"status"`
	OutcomeNote *string   `json:"outcome_note"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type AvailabilityResponse struct {
	Provider      ProviderResponse    `json:"provider"`
	Weekly        []RuleResponse      `json:"weekly"`
	Exceptions    []ExceptionResponse `json:"exceptions"`
	UpcomingSlots []scheduling.Slot   `json:"upcoming_slots"`
	Timezone      string              `json:"timezone"`
}

type PaymentResponse struct {
	ID              uuid.UUID  `json:"id"`
	AppointmentID   *uuid.UUID `json:"appointment_id"`
	Amount          float64    `json:"amount"`
	Currency        string     `json:"currency"`
	Status          string     `json:"status"`
	ProviderAccount *string    `json:"provider_account"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type PreferenceResponse struct {
	ID          uuid.UUID `json:"id"`
	UserType    string    `json:"user_type"`
	UserID      uuid.UUID `json:"user_id"`
	Channel     string    `json:"channel"`
	LeadMinutes int       `json:"lead_minutes"`
	Enabled     bool      `json:"enabled"`
}

type OutboxResponse struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID *uuid.UUID `json:"appointment_id"`
	Channel       string     `json:"channel"`
	Template      string     `json:"template"`
	Payload       string     `json:"payload,omitempty"`
	SendAfter     time.Time  `json:"send_after"`
	Status        string     `json:"status"`
	LastError     *string    `json:"last_error"`
	CreatedAt     time.Time  `json:"created_at"`
}

type AuditLogResponse struct {
	ID         int64      `json:"id"`
	ActorType  string     `json:"actor_type"`
	ActorID    *uuid.UUID `json:"actor_id"`
	Action     string     `json:"action"`
	EntityType string     `json:"entity_type"`
	EntityID   *uuid.UUID `json:"entity_id"`
	IP         *string    `json:"ip"`
	Metadata   string     `json:"metadata,omitempty"`
	EventTS    time.Time  `json:"event_ts"`
}

// Converters

func toPatientResponse(p *scheduling.Patient) PatientResponse {
	var dob *string
	if p.DateOfBirth != nil {
		s := p.DateOfBirth.Format("2006-01-02")
		dob = &s
	}
	return PatientResponse{
		ID:          p.ID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Email:       p.Email,
		Phone:       p.Phone,
		DateOfBirth: dob,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProviderResponse(p *scheduling.Provider) ProviderResponse {
	return ProviderResponse{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Specialty:   p.Specialty,
		Email:       p.Email,
		Phone:       p.Phone,
		Timezone:    p.Timezone,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toRuleResponse(r *scheduling.AvailabilityRule) RuleResponse {
	return RuleResponse{
		ID:         r.ID,
		ProviderID: r.ProviderID,
		Weekday:    r.Weekday,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Location:   r.Location,
	}
}

func toExceptionResponse(e *scheduling.AvailabilityException) ExceptionResponse {
	return ExceptionResponse{
		ID:         e.ID,
		ProviderID: e.ProviderID,
		StartAt:    e.StartAt,
		EndAt:      e.EndAt,
		Reason:     e.Reason,
		IsBlocking: e.IsBlocking,
		CreatedAt:  e.CreatedAt,
	}
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		PatientID:   a.PatientID,
		ProviderID:  a.ProviderID,
		StartAt:     a.StartAt,
		EndAt:       a.EndAt,
		Status:      string(a.Status),
		OutcomeNote: a.OutcomeNote,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toPaymentResponse(p *records.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		AppointmentID:   p.AppointmentID,
		Amount:          p.Amount,
		Currency:        p.Currency,
		Status:          string(p.Status),
		ProviderAccount: p.ProviderAccount,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func toPreferenceResponse(p *records.NotificationPreference) PreferenceResponse {
	return PreferenceResponse{
		ID:          p.ID,
		UserType:    p.UserType,
		UserID:      p.UserID,
		Channel:     string(p.Channel),
		LeadMinutes: p.LeadMinutes,
		Enabled:     p.Enabled,
	}
}

func toOutboxResponse(m *records.OutboxMessage) OutboxResponse {
	return OutboxResponse{
		ID:            m.ID,
		AppointmentID: m.AppointmentID,
		Channel:       string(m.Channel),
		Template:      m.Template,
		Payload:       string(m.Payload),
		SendAfter:     m.SendAfter,
		Status:        string(m.Status),
		LastError:     m.LastError,
		CreatedAt:     m.CreatedAt,
	}
}

func toAuditLogResponse(a *records.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:         a.ID,
		ActorType:  a.ActorType,
		ActorID:    a.ActorID,
		Action:     a.Action,
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		IP:         a.IP,
		Metadata:   string(a.Metadata),
		EventTS:    a.EventTS,
	}
}
