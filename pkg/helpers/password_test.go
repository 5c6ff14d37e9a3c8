package helpers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	prev := PasswordCost
	PasswordCost = bcrypt.MinCost
	t.Cleanup(func() { PasswordCost = prev })

	hash, err := HashPassword("rahasia1")
	require.NoError(t, err)
	assert.NotEqual(t, "rahasia1", hash)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	tests := []struct {
		name  string
		hash  string
		plain string
		want  bool
	}{
		{"match", hash, "rahasia1", true},
		{"wrong password", hash, "rahasia2", false},
		{"empty hash", "", "", false},
		{"malformed hash", "not-bcrypt", "rahasia1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareHashAndPassword(tt.hash, tt.plain))
		})
	}

	_, err = HashPassword(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	_, err = HashPassword(strings.Repeat("a", MaxPasswordBytes))
	assert.NoError(t, err)
}
