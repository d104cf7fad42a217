package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kudose/pkg/domain-errors"
)

func TestParsePrincipalID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParsePrincipalID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParsePrincipalID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParsePrincipalID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParsePrincipalID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, PrincipalID(valid), id)
		assert.Equal(t, valid.String(), id.String())
	})
}

func TestParseID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE profiles;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Braced form", "{550e8400-e29b-41d4-a716-446655440000}", true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errPrincipal := ParsePrincipalID(tt.input)
			_, errApp := ParseApplicationID(tt.input)
			if tt.wantErr {
				require.Error(t, errPrincipal)
				require.Error(t, errApp)
				return
			}
			require.NoError(t, errPrincipal)
			require.NoError(t, errApp)
		})
	}
}

func TestIsNil(t *testing.T) {
	assert.True(t, PrincipalID{}.IsNil())
	assert.True(t, ApplicationID{}.IsNil())
	assert.False(t, NewApplicationID().IsNil())
}

func TestJSONUsesCanonicalText(t *testing.T) {
	appID := NewApplicationID()
	b, err := json.Marshal(struct {
		ID ApplicationID `json:"id"`
	}{appID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+appID.String()+`"}`, string(b))

	var decoded struct {
		ID PrincipalID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, appID.String(), decoded.ID.String())
}
