package domain

import "time"

type User struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Email      string    `json:"email" gorm:"uniqueIndex;not null"`
	Password   string    `json:"-"` // Never return password in JSON
	Name       string    `json:"name"`
	PictureURL string    `json:"picture_url,omitempty"`
	GoogleSub  string    `json:"-" gorm:"index"`
	Provider   string    `json:"provider"` // "email" or "google"
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type RefreshToken struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserCredentials holds the Google OAuth tokens the ingestion pipeline
// uses to reach the user's mailbox. The OAuth handshake itself happens
// outside this service; we only store its result.
type UserCredentials struct {
	UserID       string    `json:"user_id" gorm:"primaryKey"`
	AccessToken  string    `json:"-" gorm:"not null"`
	RefreshToken string    `json:"-"`
	Expiry       time.Time `json:"expiry"`
	UpdatedAt    time.Time `json:"updated_at"`
}
