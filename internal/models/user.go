package models

import (
	"encoding/json"
	"time"
)

// Account lifecycle statuses as observed by this service.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// ProviderLocal marks accounts created with an email/password pair. A local
// account's provider migrates to a federated provider on first OAuth login
// against a matching email; the reverse never happens.
const ProviderLocal = "local"

// User is the identity root. PasswordHash is nil for pure federated accounts,
// ProviderSubject is nil for local accounts.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	PasswordHash    *string    `json:"-"`
	Provider        string     `json:"provider"`
	ProviderSubject *string    `json:"-"`
	FCMToken        *string    `json:"-"`
	FCMPlatform     *string    `json:"-"`
	Status          string     `json:"status"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	Profile         *Profile   `json:"profile,omitempty"`
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// HasPassword reports whether the account can authenticate locally.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Profile is the public persona, one-to-one with User. The gamification
// counters (level, experience, points) are written by other services and only
// displayed here.
type Profile struct {
	UserID       string     `json:"-"`
	Nickname     string     `json:"nickname"`
	Bio          string     `json:"bio"`
	AvatarURL    *string    `json:"avatarUrl,omitempty"`
	IsPublic     bool       `json:"isPublic"`
	Level        int        `json:"level"`
	Experience   int        `json:"experience"`
	Points       int        `json:"points"`
	PremiumUntil *time.Time `json:"premiumUntil,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// IsPremium is derived, never stored: the entitlement is live while
// premium_until is set and strictly in the future.
func (p *Profile) IsPremium() bool {
	return p.PremiumUntil != nil && p.PremiumUntil.After(time.Now())
}

// MarshalJSON adds the derived isPremium field to the wire shape.
func (p *Profile) MarshalJSON() ([]byte, error) {
	type alias Profile
	return json.Marshal(struct {
		*alias
		IsPremium bool `json:"isPremium"`
	}{
		alias:     (*alias)(p),
		IsPremium: p.IsPremium(),
	})
}
