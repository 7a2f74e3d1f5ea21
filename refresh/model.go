package refresh

import "time"

// Token is one stored refresh credential. The opaque Token value is the
// credential itself; possession is the proof, so the row is the single
// source of truth for its validity.
type Token struct {
	ID          uint64 `gorm:"primaryKey"`
	Token       string `gorm:"size:128;not null;uniqueIndex"`
	PrincipalID uint64 `gorm:"index;not null"`
	ExpiresAt   time.Time
	Revoked     bool `gorm:"default:false;index"`
	DeviceInfo  string
	IPAddress   string
	UserAgent   string
	LastUsedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName keeps the table name stable regardless of GORM's pluralization.
func (Token) TableName() string { return "refresh_tokens" }

// Valid reports whether the credential is usable at the given instant.
func (t *Token) Valid(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}
