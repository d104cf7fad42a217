package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "kudose/pkg/domain"
	dErrors "kudose/pkg/domain-errors"
)

// Status is the lifecycle state of a seller application.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Decision is an administrator's verdict on a pending application.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Status returns the terminal status the decision produces.
func (d Decision) Status() Status {
	if d == DecisionApprove {
		return StatusApproved
	}
	return StatusRejected
}

const (
	FieldMaxLength        = 200
	DecisionNoteMaxLength = 500
)

// Application is an append-only request for seller status.
//
// Invariants:
//   - created pending; moves once to approved or rejected and stays there
//   - at most one pending application per principal
//   - TOSAgreed is always true
type Application struct {
	ID                 id.ApplicationID `json:"id"`
	PrincipalID        id.PrincipalID   `json:"principal_id"`
	Status             Status           `json:"status"`
	DisplayName        *string          `json:"display_name"`
	DiscordName        string           `json:"discord_name"`
	VRChatName         string           `json:"vrchat_name"`
	ContactEmail       string           `json:"contact_email"`
	StoreOrSocialLink  string           `json:"store_or_social_link"`
	TOSAgreed          bool             `json:"tos_agreed"`
	DecisionNote       *string          `json:"decision_note"`
	DecidedBy          *id.PrincipalID  `json:"-"`
	DecidedAt          *time.Time       `json:"decided_at,omitempty"`
	SubmittedIP        string           `json:"-"`
	SubmittedUserAgent string           `json:"-"`
	SubmittedDevice    string           `json:"-"`
	CreatedAt          time.Time        `json:"created_at"`
}

func (a *Application) IsPending() bool { return a.Status == StatusPending }

// CanDecide rejects decisions on terminal applications.
func (a *Application) CanDecide() error {
	if !a.IsPending() {
		return dErrors.New(dErrors.CodeAlreadyDecided, "application has already been decided")
	}
	return nil
}

// ApplyDecision moves a pending application to its terminal status.
func (a *Application) ApplyDecision(decision Decision, note *string, actor id.PrincipalID, now time.Time) {
	a.Status = decision.Status()
	a.DecisionNote = note
	decidedBy := actor
	a.DecidedBy = &decidedBy
	decidedAt := now
	a.DecidedAt = &decidedAt
}

func (a *Application) Clone() *Application {
	c := *a
	if a.DisplayName != nil {
		v := *a.DisplayName
		c.DisplayName = &v
	}
	if a.DecisionNote != nil {
		v := *a.DecisionNote
		c.DecisionNote = &v
	}
	if a.DecidedBy != nil {
		v := *a.DecidedBy
		c.DecidedBy = &v
	}
	if a.DecidedAt != nil {
		v := *a.DecidedAt
		c.DecidedAt = &v
	}
	return &c
}

// Submission holds the applicant-supplied fields.
type Submission struct {
	DiscordName       string
	VRChatName        string
	ContactEmail      string
	StoreOrSocialLink string
	TOSAgreed         bool
}

func (s *Submission) Normalize() {
	s.DiscordName = strings.TrimSpace(s.DiscordName)
	s.VRChatName = strings.TrimSpace(s.VRChatName)
	s.ContactEmail = strings.TrimSpace(s.ContactEmail)
	s.StoreOrSocialLink = strings.TrimSpace(s.StoreOrSocialLink)
}

// Validate checks fields in a fixed order and reports the first failure.
// An empty contact email falls back to accountEmail.
func (s *Submission) Validate(accountEmail string) error {
	if err := requireField("discord_name", s.DiscordName); err != nil {
		return err
	}
	if err := requireField("vrchat_name", s.VRChatName); err != nil {
		return err
	}
	if s.ContactEmail == "" {
		s.ContactEmail = strings.TrimSpace(accountEmail)
	}
	if err := requireField("contact_email", s.ContactEmail); err != nil {
		return err
	}
	if err := requireField("store_or_social_link", s.StoreOrSocialLink); err != nil {
		return err
	}
	if !s.TOSAgreed {
		return dErrors.Validation("tos_agreed", "terms of service must be accepted")
	}
	return nil
}

func requireField(field, value string) error {
	if value == "" {
		return dErrors.Validation(field, field+" is required")
	}
	if utf8.RuneCountInString(value) > FieldMaxLength {
		return dErrors.Validation(field, field+" is too long")
	}
	return nil
}

// SubmitterMetadata is captured from the request for reviewer context.
type SubmitterMetadata struct {
	IP        string
	UserAgent string
}

// NewApplication builds a pending application from a validated submission.
func NewApplication(principalID id.PrincipalID, sub Submission, displayName *string, meta SubmitterMetadata, now time.Time) *Application {
	return &Application{
		ID:                 id.NewApplicationID(),
		PrincipalID:        principalID,
		Status:             StatusPending,
		DisplayName:        displayName,
		DiscordName:        sub.DiscordName,
		VRChatName:         sub.VRChatName,
		ContactEmail:       sub.ContactEmail,
		StoreOrSocialLink:  sub.StoreOrSocialLink,
		TOSAgreed:          sub.TOSAgreed,
		SubmittedIP:        meta.IP,
		SubmittedUserAgent: meta.UserAgent,
		SubmittedDevice:    DescribeDevice(meta.UserAgent),
		CreatedAt:          now,
	}
}
