package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret!x", 4)
	require.NoError(t, err)
	require.NotEqual(t, "Sup3rSecret!x", hash)

	assert.True(t, VerifyPassword(hash, "Sup3rSecret!x"))
	assert.False(t, VerifyPassword(hash, "sup3rsecret!x"))
	assert.False(t, VerifyPassword("not-a-hash", "Sup3rSecret!x"))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     []string
	}{
		{
			name:     "valid",
			password: "Abcdef1@",
			want:     nil,
		},
		{
			name:     "too short only",
			password: "Ab1@xyz",
			want:     []string{"Password must be at least 8 characters long"},
		},
		{
			name:     "missing uppercase and digit",
			password: "abcdefg@",
			want: []string{
				"Password must contain at least one uppercase letter",
				"Password must contain at least one number",
			},
		},
		{
			name:     "everything wrong",
			password: "",
			want: []string{
				"Password must be at least 8 characters long",
				"Password must contain at least one uppercase letter",
				"Password must contain at least one lowercase letter",
				"Password must contain at least one number",
				"Password must contain at least one special character (@$!%*?&#)",
			},
		},
		{
			name:     "special char outside allowed set",
			password: "Abcdefg1^",
			want:     []string{"Password must contain at least one special character (@$!%*?&#)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidatePassword(tt.password)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))
}

func TestValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "first.last@sub.example.com"}
	for _, e := range valid {
		assert.True(t, ValidEmail(e), e)
	}
	invalid := []string{"", "plain", "@example.com", "a@", "a@nodot", "a@.com", "a b@example.com", "a@example."}
	for _, e := range invalid {
		assert.False(t, ValidEmail(e), e)
	}
}
