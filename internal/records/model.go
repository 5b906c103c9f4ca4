package records

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrPreferenceNotFound = errors.New("notification preference not found")
	ErrInvalidPayment     = errors.New("invalid payment")
	ErrInvalidPreference  = errors.New("invalid notification preference")
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

func (s PaymentStatus) Known() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRefunded, PaymentFailed:
		return true
	}
	return false
}

type Payment struct {
	ID              uuid.UUID
	AppointmentID   *uuid.UUID
	Amount          float64
	Currency        string
	Status          PaymentStatus
	ProviderAccount *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

func (c Channel) Known() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

type NotificationPreference struct {
	ID          uuid.UUID
	UserType    string // patient or provider
	UserID      uuid.UUID
	Channel     Channel
	LeadMinutes int
	Enabled     bool
}

type OutboxStatus string

const (
	OutboxQueued  OutboxStatus = "queued"
	OutboxSending OutboxStatus = "sending"
	OutboxSent    OutboxStatus = "sent"
	OutboxFailed  OutboxStatus = "failed"
)

// OutboxMessage is a queued notification awaiting an external consumer.
type OutboxMessage struct {
	ID            uuid.UUID
	AppointmentID *uuid.UUID
	Channel       Channel
	Template      string
	Payload       []byte
	SendAfter     time.Time
	Status        OutboxStatus
	LastError     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type AuditLog struct {
	ID         int64
	ActorType  string
	ActorID    *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	IP         *string
	Metadata   []byte
	EventTS    time.Time
}
