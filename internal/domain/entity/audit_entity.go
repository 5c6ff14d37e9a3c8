package entity

import "time"

// AuditEntry records an account action for later review.
type AuditEntry struct {
	ID        int64
	UserID    *int64
	Email     string
	Action    string
	IP        string
	UserAgent string
	Metadata  map[string]any
	CreatedAt time.Time
}
