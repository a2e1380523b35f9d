package auth

import (
	"context"
	"time"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/auth/session"
	"github.com/frahmantamala/civic-report/internal/core/user"
	"github.com/golang-jwt/jwt/v5"
)

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*AuthResponse, error)
	Authenticate(ctx context.Context, dto LoginDTO) (*AuthResponse, error)
	Resolve(ctx context.Context, token string) (*internal.Identity, error)
	Logout(ctx context.Context, token string) error
}

type RepositoryAPI interface {
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	GetUserByID(ctx context.Context, id int64) (*user.User, error)
	CreateUser(ctx context.Context, u *user.User) error
}

type SessionStore interface {
	Save(ctx context.Context, sessionID string, data session.Data, expiresAt time.Time) error
	Lookup(ctx context.Context, sessionID string) (session.Data, error)
	Revoke(ctx context.Context, sessionID string) error
}

type TokenGeneratorAPI interface {
	Generate(userID int64, role user.Role, sessionID string) (token string, expiresAt time.Time, err error)
	Validate(tokenString string) (*Claims, error)
}

// Claims represents JWT token claims. RegisteredClaims.ID carries the session id.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

type UserResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Points     int64  `json:"points"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
}

func ToUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       string(u.Role),
		Department: u.Department,
		Points:     u.Points,
		Phone:      u.Phone,
		Address:    u.Address,
	}
}
