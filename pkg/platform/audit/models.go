package audit

import (
	"context"
	"time"

	id "kudose/pkg/domain"
)

// AuditEvent names an action recorded in the audit trail.
type AuditEvent string

const (
	EventProfileCreated             AuditEvent = "profile_created"
	EventProfileUpdated             AuditEvent = "profile_updated"
	EventHandleConfirmed            AuditEvent = "handle_confirmed"
	EventSellerApplicationSubmitted AuditEvent = "seller_application_submitted"
	EventSellerApplicationApproved  AuditEvent = "seller_application_approved"
	EventSellerApplicationRejected  AuditEvent = "seller_application_rejected"
)

// Event is the transport-agnostic record handed to stores.
type Event struct {
	Timestamp   time.Time
	PrincipalID id.PrincipalID
	Action      string
	// Subject identifies the affected resource: a handle or an application id.
	Subject   string
	Decision  string
	Reason    string
	RequestID string
	// ActorID is set when an administrator acts on another principal's data.
	ActorID string
}

// ComplianceEvent is emitted with fail-closed semantics: if it cannot be
// persisted the calling operation fails.
type ComplianceEvent struct {
	Timestamp   time.Time
	PrincipalID id.PrincipalID
	Action      AuditEvent
	Subject     string
	Decision    string
	Reason      string
	RequestID   string
	ActorID     string
}

// ToEvent converts to the store representation.
func (e ComplianceEvent) ToEvent() Event {
	return Event{
		Timestamp:   e.Timestamp,
		PrincipalID: e.PrincipalID,
		Action:      string(e.Action),
		Subject:     e.Subject,
		Decision:    e.Decision,
		Reason:      e.Reason,
		RequestID:   e.RequestID,
		ActorID:     e.ActorID,
	}
}

// Store persists audit events. Postgres implementations join the
// transaction carried in ctx.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// OutboxEntry is one undelivered row of the outbox.
type OutboxEntry struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}
