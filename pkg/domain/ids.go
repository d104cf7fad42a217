// Package domain holds the typed identifiers shared across modules.
//
// Identifiers are distinct named types over uuid.UUID so a principal id can
// never be passed where an application id is expected.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "kudose/pkg/domain-errors"
)

// PrincipalID identifies an authenticated caller. It doubles as the profile
// primary key.
type PrincipalID uuid.UUID

// ApplicationID identifies a seller application.
type ApplicationID uuid.UUID

func (id PrincipalID) String() string { return uuid.UUID(id).String() }
func (id PrincipalID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id ApplicationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id PrincipalID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *PrincipalID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id ApplicationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ApplicationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// NewApplicationID returns a fresh random application id.
func NewApplicationID() ApplicationID {
	return ApplicationID(uuid.New())
}

// ParsePrincipalID parses a principal id at a trust boundary.
func ParsePrincipalID(s string) (PrincipalID, error) {
	u, err := parseUUID(s, "principal id")
	if err != nil {
		return PrincipalID{}, err
	}
	return PrincipalID(u), nil
}

// ParseApplicationID parses an application id at a trust boundary.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s, "application id")
	if err != nil {
		return ApplicationID{}, err
	}
	return ApplicationID(u), nil
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, label+" is required")
	}
	// Standard textual form only; rejects urn:/braced variants and padding.
	if len(s) != 36 {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+label)
	}
	return u, nil
}
