package models

import (
	"regexp"
	"strings"
	"unicode/utf8"

	dErrors "kudose/pkg/domain-errors"
)

const (
	HandleMinLength      = 3
	HandleMaxLength      = 20
	BioMaxLength         = 200
	DisplayNameMaxLength = 50
)

var (
	whitespaceRun   = regexp.MustCompile(`[\s\p{Z}\x{FEFF}]+`)
	handleForbidden = regexp.MustCompile(`[^a-z0-9_]`)
)

// NormalizeHandle trims, lowercases, turns whitespace runs (Unicode spaces
// included) into a single underscore and drops anything outside [a-z0-9_].
func NormalizeHandle(raw string) string {
	h := strings.ToLower(strings.TrimSpace(raw))
	h = whitespaceRun.ReplaceAllString(h, "_")
	return handleForbidden.ReplaceAllString(h, "")
}

// ValidateHandle checks a normalized handle's length.
func ValidateHandle(handle string) error {
	switch {
	case handle == "":
		return dErrors.Validation("handle", "handle is required")
	case len(handle) < HandleMinLength:
		return dErrors.Validation("handle", "handle must be at least 3 characters")
	case len(handle) > HandleMaxLength:
		return dErrors.Validation("handle", "handle must be at most 20 characters")
	}
	return nil
}

// DetailsUpdate carries a self-service edit of the free-form profile fields.
type DetailsUpdate struct {
	DisplayName *string
	Bio         *string
}

// Normalize trims both fields.
func (u *DetailsUpdate) Normalize() {
	if u.DisplayName != nil {
		v := strings.TrimSpace(*u.DisplayName)
		u.DisplayName = &v
	}
	if u.Bio != nil {
		v := strings.TrimSpace(*u.Bio)
		u.Bio = &v
	}
}

// Validate enforces length limits in characters.
func (u *DetailsUpdate) Validate() error {
	if u.DisplayName != nil && utf8.RuneCountInString(*u.DisplayName) > DisplayNameMaxLength {
		return dErrors.Validation("display_name", "display_name must be at most 50 characters")
	}
	if u.Bio != nil && utf8.RuneCountInString(*u.Bio) > BioMaxLength {
		return dErrors.Validation("bio", "bio must be at most 200 characters")
	}
	return nil
}

func (u *DetailsUpdate) IsEmpty() bool {
	return u.DisplayName == nil && u.Bio == nil
}
