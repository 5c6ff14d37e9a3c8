package helpers

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(clock *fakeClock) *JWTManager {
	return NewJWTManager("test-secret", SessionTTL).WithClock(clock.Now)
}

func TestJWTManager_IssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	m := newTestManager(clock)

	tok, exp, err := m.IssueSessionToken(42, "USER")
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(12*time.Hour), exp)

	claims, err := m.VerifySessionToken(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "USER", claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestJWTManager_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		wantErr error
	}{
		{name: "11h59m still valid", advance: 11*time.Hour + 59*time.Minute},
		{name: "12h01m expired", advance: 12*time.Hour + time.Minute, wantErr: ErrTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{t: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
			m := newTestManager(clock)
			tok, _, err := m.IssueSessionToken(7, "ADMIN")
			require.NoError(t, err)

			clock.Advance(tt.advance)
			claims, err := m.VerifySessionToken(tok)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(7), claims.UserID)
		})
	}
}

func TestJWTManager_RejectsTamperedAndForeignTokens(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	m := newTestManager(clock)
	tok, _, err := m.IssueSessionToken(1, "USER")
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	other := NewJWTManager("another-secret", SessionTTL).WithClock(clock.Now)
	foreign, _, err := other.IssueSessionToken(1, "USER")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &SessionClaims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour))},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, in := range map[string]string{
		"tampered": tampered,
		"foreign":  foreign,
		"unsigned": unsigned,
		"garbage":  "not-a-token",
		"empty":    "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.VerifySessionToken(in)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestJWTManager_MissingSecret(t *testing.T) {
	m := NewJWTManager("", SessionTTL)
	_, _, err := m.IssueSessionToken(1, "USER")
	assert.ErrorIs(t, err, ErrSigningKeyMissing)
}

func TestNewResetToken(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tok, exp := NewResetToken(now)
	assert.NotEmpty(t, tok)
	assert.Equal(t, now.Add(time.Hour), exp)

	tok2, _ := NewResetToken(now)
	assert.NotEqual(t, tok, tok2)
}

func TestNewVerificationToken_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		tok := NewVerificationToken()
		assert.GreaterOrEqual(t, len(tok), 10)
		_, dup := seen[tok]
		require.False(t, dup)
		seen[tok] = struct{}{}
	}
}
