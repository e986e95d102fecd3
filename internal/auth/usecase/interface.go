package usecase

import (
	authdomain "mailgreen-backend/internal/auth/domain"
	authdto "mailgreen-backend/internal/auth/dto"
)

// AuthUsecase defines the identity boundary the rest of the service
// depends on
type AuthUsecase interface {
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	GoogleSignIn(req *authdto.GoogleSignInRequest) (*authdto.TokenResponse, error)
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	ValidateToken(tokenString string) (*authdomain.User, error)
}
