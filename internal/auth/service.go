package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/auth/session"
	"github.com/frahmantamala/civic-report/internal/core/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service is the main auth service with dependencies
type Service struct {
	userRepo       RepositoryAPI
	sessions       SessionStore
	tokenGenerator TokenGeneratorAPI
	bcryptCost     int
	logger         *slog.Logger
}

// NewService creates a new auth service
func NewService(userRepo RepositoryAPI, sessions SessionStore, tokenGen TokenGeneratorAPI, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:       userRepo,
		sessions:       sessions,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

// NewJWTTokenGenerator creates a new HS256 token generator
func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTTokenGenerator{
		Secret: []byte(secret),
		TTL:    ttl,
		Issuer: "civic-report",
	}
}

// Register creates a citizen account and signs it in.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*AuthResponse, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &user.User{
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: hash,
		Role:         user.RoleCitizen,
		Phone:        dto.Phone,
		Address:      dto.Address,
		IsActive:     true,
	}

	if err := s.userRepo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, internal.ErrEmailExists) {
			s.logger.Warn("registration rejected: email already registered", "email", dto.Email)
			return nil, internal.ErrEmailExists
		}
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("citizen registered", "user_id", u.ID)
	return s.startSession(ctx, u)
}

// Authenticate validates credentials and opens a new session
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*AuthResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.userRepo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(dto.Email)))
	if err != nil {
		if !errors.Is(err, internal.ErrUserNotFound) {
			s.logger.Error("failed to load user for login", "error", err)
		}
		return nil, internal.ErrInvalidCredentials
	}

	if !u.IsActive {
		return nil, internal.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, internal.ErrInvalidCredentials
	}

	return s.startSession(ctx, u)
}

func (s *Service) startSession(ctx context.Context, u *user.User) (*AuthResponse, error) {
	sessionID := uuid.NewString()

	token, expiresAt, err := s.tokenGenerator.Generate(u.ID, u.Role, sessionID)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue token", err)
	}

	data := session.Data{UserID: u.ID, Role: string(u.Role), CreatedAt: time.Now()}
	if err := s.sessions.Save(ctx, sessionID, data, expiresAt); err != nil {
		s.logger.Error("failed to save session", "error", err, "user_id", u.ID)
		return nil, internal.NewInternalError("failed to start session", err)
	}

	return &AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      ToUserResponse(u),
	}, nil
}

// Resolve turns a bearer token into the caller's identity. Role and department
// are read from the user store so changes apply without a new login.
func (s *Service) Resolve(ctx context.Context, token string) (*internal.Identity, error) {
	if token == "" {
		return nil, internal.ErrMissingToken
	}

	claims, err := s.tokenGenerator.Validate(token)
	if err != nil {
		return nil, err
	}

	data, err := s.sessions.Lookup(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, internal.ErrSessionRevoked
		}
		s.logger.Error("session lookup failed", "error", err)
		return nil, internal.NewInternalError("failed to resolve session", err)
	}
	if data.UserID != claims.UserID {
		s.logger.Warn("session does not belong to token subject", "session_user", data.UserID, "token_user", claims.UserID)
		return nil, internal.ErrInvalidToken
	}

	u, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if !u.IsActive {
		return nil, internal.ErrInvalidToken
	}

	return &internal.Identity{
		UserID:     u.ID,
		Role:       string(u.Role),
		Department: u.Department,
		SessionID:  claims.ID,
	}, nil
}

// Logout revokes the session behind token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return internal.ErrMissingToken
	}

	claims, err := s.tokenGenerator.Validate(token)
	if err != nil {
		return err
	}

	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		s.logger.Error("failed to revoke session", "error", err, "user_id", claims.UserID)
		return internal.NewInternalError("failed to revoke session", err)
	}

	s.logger.Info("session revoked", "user_id", claims.UserID)
	return nil
}

// Generate signs a token bound to sessionID.
func (j *JWTTokenGenerator) Generate(userID int64, role user.Role, sessionID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(j.TTL)

	claims := &Claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    j.Issuer,
			Subject:   fmt.Sprintf("%d", userID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// Validate validates a JWT token and returns claims
func (j *JWTTokenGenerator) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, internal.ErrInvalidToken
	}

	return claims, nil
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
