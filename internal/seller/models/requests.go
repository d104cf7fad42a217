package models

import (
	"strings"

	id "kudose/pkg/domain"
	dErrors "kudose/pkg/domain-errors"
)

// SubmitApplicationRequest is the body of POST /v1/me/seller-application.
type SubmitApplicationRequest struct {
	DiscordName       string `json:"discord_name"`
	VRChatName        string `json:"vrchat_name"`
	ContactEmail      string `json:"contact_email"`
	StoreOrSocialLink string `json:"store_or_social_link"`
	TOSAgreed         bool   `json:"tos_agreed"`
}

func (r *SubmitApplicationRequest) Normalize() {
	sub := r.ToSubmission()
	sub.Normalize()
	*r = SubmitApplicationRequest(sub)
}

// Validate accepts every decodable body. Field rules depend on the account
// email and run in the service.
func (r *SubmitApplicationRequest) Validate() error {
	return nil
}

func (r *SubmitApplicationRequest) ToSubmission() Submission {
	return Submission(*r)
}

// LatestApplicationResponse wraps GetLatest so "no application" is an
// explicit null.
type LatestApplicationResponse struct {
	Application *Application `json:"application"`
}

// DecideRequest is the body of POST /v1/admin/seller-applications/{id}/decision.
type DecideRequest struct {
	Decision Decision `json:"decision"`
	Note     *string  `json:"note"`
}

func (r *DecideRequest) Normalize() {
	r.Decision = Decision(strings.ToLower(strings.TrimSpace(string(r.Decision))))
	if r.Note != nil {
		note := strings.TrimSpace(*r.Note)
		if note == "" {
			r.Note = nil
		} else {
			r.Note = &note
		}
	}
}

func (r *DecideRequest) Validate() error {
	if !r.Decision.IsValid() {
		return dErrors.Validation("decision", "decision must be approve or reject")
	}
	if r.Note != nil && len([]rune(*r.Note)) > DecisionNoteMaxLength {
		return dErrors.Validation("note", "note is too long")
	}
	return nil
}

// ReviewApplication is the administrator's view of an application: the
// applicant-facing fields plus who decided it and where it was submitted from.
type ReviewApplication struct {
	*Application
	DecidedBy          *id.PrincipalID `json:"decided_by,omitempty"`
	SubmittedIP        string          `json:"submitted_ip,omitempty"`
	SubmittedDevice    string          `json:"submitted_device,omitempty"`
	SubmittedUserAgent string          `json:"submitted_user_agent,omitempty"`
}

func NewReviewApplication(app *Application) *ReviewApplication {
	return &ReviewApplication{
		Application:        app,
		DecidedBy:          app.DecidedBy,
		SubmittedIP:        app.SubmittedIP,
		SubmittedDevice:    app.SubmittedDevice,
		SubmittedUserAgent: app.SubmittedUserAgent,
	}
}

// PendingListResponse is returned by the admin queue endpoint.
type PendingListResponse struct {
	Applications []*ReviewApplication `json:"applications"`
}

func NewPendingListResponse(apps []*Application) PendingListResponse {
	out := make([]*ReviewApplication, 0, len(apps))
	for _, app := range apps {
		out = append(out, NewReviewApplication(app))
	}
	return PendingListResponse{Applications: out}
}

type PendingCountResponse struct {
	Count int `json:"count"`
}
