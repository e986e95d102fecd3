package repository

import authdomain "mailgreen-backend/internal/auth/domain"

// UserRepository defines the interface for user and credential storage
type UserRepository interface {
	Create(user *authdomain.User) error
	FindByEmail(email string) (*authdomain.User, error)
	FindByID(id string) (*authdomain.User, error)
	Update(user *authdomain.User) error

	SaveRefreshToken(token *authdomain.RefreshToken) error
	FindRefreshToken(token string) (*authdomain.RefreshToken, error)
	DeleteRefreshToken(token string) error

	// SaveCredentials upserts the user's Google OAuth tokens
	SaveCredentials(creds *authdomain.UserCredentials) error
	// FindCredentials returns nil when the user has no stored tokens
	FindCredentials(userID string) (*authdomain.UserCredentials, error)
}
