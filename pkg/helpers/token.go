package helpers

import (
	"time"

	"github.com/google/uuid"
)

const ResetTokenTTL = time.Hour

// NewVerificationToken returns a random, unguessable email verification token.
func NewVerificationToken() string {
	return uuid.NewString()
}

// NewResetToken returns a password reset token and the instant it stops being accepted.
func NewResetToken(now time.Time) (string, time.Time) {
	return uuid.NewString(), now.Add(ResetTokenTTL)
}
