package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wuwenbin0122/vishai/internal/models"
	"github.com/wuwenbin0122/vishai/internal/store"
)

var (
	ErrSecretRequired     = errors.New("auth: jwt secret required")
	ErrEmailExists        = errors.New("auth: user already exists")
	ErrUsernameRequired   = errors.New("auth: username is required")
	ErrEmailRequired      = errors.New("auth: email is required")
	ErrPasswordTooWeak    = errors.New("auth: password must be at least 6 characters")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrUserNotFound       = errors.New("auth: user not found")
)

const minPasswordLength = 6

type SignupInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

// Service issues and verifies bearer tokens over a UserStore. Tokens carry
// only the user id (sub) and a jti used by the optional denylist.
type Service struct {
	secret   []byte
	ttl      time.Duration
	users    store.UserStore
	denylist Denylist
}

func NewService(secret string, ttl time.Duration, users store.UserStore, denylist Denylist) (*Service, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrSecretRequired
	}
	if users == nil {
		return nil, errors.New("auth: user store required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if denylist == nil {
		denylist = NewMemoryDenylist()
	}

	return &Service{
		secret:   []byte(secret),
		ttl:      ttl,
		users:    users,
		denylist: denylist,
	}, nil
}

func (s *Service) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	email := store.NormalizeEmail(input.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if utf8.RuneCountInString(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooWeak
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("auth: lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("auth: create user: %w", err)
	}

	return s.issue(user)
}

// Login returns ErrInvalidCredentials for both an unknown email and a wrong
// password.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := store.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(*user)
}

// VerifyToken accepts a raw token or a "Bearer <token>" value. Every failure
// wraps ErrInvalidToken.
func (s *Service) VerifyToken(ctx context.Context, token string) (*jwt.RegisteredClaims, error) {
	token = StripBearer(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: denylist: %v", ErrInvalidToken, err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", ErrInvalidToken)
	}

	return claims, nil
}

// Revoke denies claims until their natural expiry.
func (s *Service) Revoke(ctx context.Context, claims *jwt.RegisteredClaims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}

	until := time.Now().UTC().Add(s.ttl)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return s.denylist.Revoke(ctx, claims.ID, until)
}

func (s *Service) Profile(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("auth: lookup user: %w", err)
	}
	return user.Sanitize(), nil
}

func (s *Service) issue(user models.User) (*AuthResult, error) {
	token, expiresAt, err := s.generateToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Sanitize(),
	}, nil
}

func (s *Service) generateToken(userID string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// StripBearer removes an optional "Bearer " prefix (case-insensitive).
func StripBearer(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return value
}
