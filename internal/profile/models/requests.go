package models

import (
	"strings"

	dErrors "kudose/pkg/domain-errors"
)

// ConfirmHandleRequest is the body of POST /v1/me/handle.
type ConfirmHandleRequest struct {
	Handle string `json:"handle"`
}

func (r *ConfirmHandleRequest) Normalize() {
	r.Handle = strings.TrimSpace(r.Handle)
}

// Validate only checks presence; normalization and length rules run in the
// service so every caller gets them.
func (r *ConfirmHandleRequest) Validate() error {
	if r.Handle == "" {
		return dErrors.Validation("handle", "handle is required")
	}
	return nil
}

// UpdateProfileRequest is the body of PATCH /v1/me/profile. Omitted fields
// are left unchanged; empty strings clear them.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
}

func (r *UpdateProfileRequest) Normalize() {
	u := r.ToUpdate()
	u.Normalize()
	r.DisplayName, r.Bio = u.DisplayName, u.Bio
}

func (r *UpdateProfileRequest) Validate() error {
	u := r.ToUpdate()
	if u.IsEmpty() {
		return dErrors.New(dErrors.CodeBadRequest, "at least one of display_name or bio is required")
	}
	return u.Validate()
}

func (r *UpdateProfileRequest) ToUpdate() DetailsUpdate {
	return DetailsUpdate{DisplayName: r.DisplayName, Bio: r.Bio}
}

// ProfileResponse is returned to the profile owner.
type ProfileResponse struct {
	Profile      *Profile     `json:"profile"`
	Capabilities Capabilities `json:"capabilities"`
}

func NewProfileResponse(p *Profile) *ProfileResponse {
	return &ProfileResponse{Profile: p, Capabilities: p.Capabilities()}
}
