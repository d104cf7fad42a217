package models

import (
	"time"

	id "kudose/pkg/domain"
	dErrors "kudose/pkg/domain-errors"
)

// Role is the capability tier of a profile.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

func (r Role) IsValid() bool {
	return r == RoleBuyer || r == RoleSeller
}

// Profile is the one-per-principal account record.
//
// Invariants:
//   - ID equals the principal id and never changes
//   - HandleConfirmed only moves false -> true, and implies Handle != nil
//   - once HandleConfirmed, Handle is immutable
//   - Role starts as buyer and only an approved seller application promotes it
//   - IsAdmin is managed out of band and never written by this service
type Profile struct {
	ID              id.PrincipalID `json:"id"`
	Email           *string        `json:"email"`
	Handle          *string        `json:"handle"`
	DisplayName     *string        `json:"display_name"`
	HandleConfirmed bool           `json:"handle_confirmed"`
	Bio             *string        `json:"bio"`
	Role            Role           `json:"role"`
	IsAdmin         bool           `json:"is_admin"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewProfile builds a profile with bootstrap defaults.
func NewProfile(principalID id.PrincipalID, email string, now time.Time) *Profile {
	p := &Profile{
		ID:        principalID,
		Role:      RoleBuyer,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if email != "" {
		p.Email = &email
	}
	return p
}

// CanConfirmHandle rejects a second confirmation.
func (p *Profile) CanConfirmHandle() error {
	if p.HandleConfirmed {
		return dErrors.New(dErrors.CodeAlreadyConfirmed, "handle is already confirmed")
	}
	return nil
}

// ApplyHandleConfirmation sets the handle and confirms it. The display name
// defaults to the handle only when it is unset.
func (p *Profile) ApplyHandleConfirmation(handle string, now time.Time) {
	h := handle
	p.Handle = &h
	if p.DisplayName == nil || *p.DisplayName == "" {
		dn := handle
		p.DisplayName = &dn
	}
	p.HandleConfirmed = true
	p.UpdatedAt = now
}

// ApplyDetails replaces display name and bio. Nil fields are left as is;
// empty strings clear the field.
func (p *Profile) ApplyDetails(u DetailsUpdate, now time.Time) {
	if u.DisplayName != nil {
		p.DisplayName = nilIfEmpty(*u.DisplayName)
	}
	if u.Bio != nil {
		p.Bio = nilIfEmpty(*u.Bio)
	}
	p.UpdatedAt = now
}

// PromoteToSeller grants the seller role.
func (p *Profile) PromoteToSeller(now time.Time) {
	p.Role = RoleSeller
	p.UpdatedAt = now
}

func (p *Profile) IsSeller() bool { return p.Role == RoleSeller }

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Email = clonePtr(p.Email)
	c.Handle = clonePtr(p.Handle)
	c.DisplayName = clonePtr(p.DisplayName)
	c.Bio = clonePtr(p.Bio)
	return &c
}

// Capabilities gates UI affordances from the profile state.
type Capabilities struct {
	CanListServices bool `json:"can_list_services"`
	NeedsHandle     bool `json:"needs_handle"`
	IsAdmin         bool `json:"is_admin"`
}

func (p *Profile) Capabilities() Capabilities {
	return Capabilities{
		CanListServices: p.Role == RoleSeller,
		NeedsHandle:     !p.HandleConfirmed,
		IsAdmin:         p.IsAdmin,
	}
}

// PublicProfile is what anyone may see under /u/{handle}.
type PublicProfile struct {
	Handle      string  `json:"handle"`
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	Role        Role    `json:"role"`
}

func (p *Profile) Public() *PublicProfile {
	out := &PublicProfile{
		DisplayName: clonePtr(p.DisplayName),
		Bio:         clonePtr(p.Bio),
		Role:        p.Role,
	}
	if p.Handle != nil {
		out.Handle = *p.Handle
	}
	return out
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
