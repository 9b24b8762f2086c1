// Package auth implements single-admin authentication: a bcrypt
// password hash stored in the settings table and HS256 JWTs for API
// access.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/strmforge/strmforge/internal/database"
)

const tokenExpiry = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoPasswordSet      = errors.New("no password has been set")
	ErrPasswordRequired   = errors.New("password is required")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
)

// Service handles authentication operations.
type Service struct {
	db        *database.DB
	jwtSecret []byte
}

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
}

// NewService creates a new auth service. An empty jwtSecret loads the
// persisted secret, generating and storing one on first run so tokens
// survive restarts.
func NewService(db *database.DB, jwtSecret string) (*Service, error) {
	secret := []byte(jwtSecret)

	if len(secret) == 0 {
		var err error
		secret, err = loadOrGenerateSecret(db)
		if err != nil {
			return nil, err
		}
	}

	return &Service{
		db:        db,
		jwtSecret: secret,
	}, nil
}

func loadOrGenerateSecret(db *database.DB) ([]byte, error) {
	ctx := context.Background()
	stored, err := db.GetSetting(ctx, database.SettingJWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to load JWT secret: %w", err)
	}
	if stored != "" {
		secret, decErr := hex.DecodeString(stored)
		if decErr != nil {
			return nil, fmt.Errorf("failed to decode stored JWT secret: %w", decErr)
		}
		return secret, nil
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	if err := db.SetSetting(ctx, database.SettingJWTSecret, hex.EncodeToString(secret)); err != nil {
		return nil, fmt.Errorf("failed to persist JWT secret: %w", err)
	}
	return secret, nil
}

// SetPassword sets or updates the admin password.
func (s *Service) SetPassword(ctx context.Context, password string) error {
	if password == "" {
		return ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.db.SetSetting(ctx, database.SettingAdminPasswordHash, string(hash))
}

// ValidatePassword checks if the provided password is correct.
func (s *Service) ValidatePassword(ctx context.Context, password string) error {
	hash, err := s.db.GetSetting(ctx, database.SettingAdminPasswordHash)
	if err != nil {
		return fmt.Errorf("failed to get password: %w", err)
	}
	if hash == "" {
		return ErrNoPasswordSet
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// IsPasswordSet returns true if a password has been configured.
func (s *Service) IsPasswordSet(ctx context.Context) bool {
	hash, err := s.db.GetSetting(ctx, database.SettingAdminPasswordHash)
	return err == nil && hash != ""
}

// Login validates the password and returns a fresh token.
func (s *Service) Login(ctx context.Context, password string) (string, error) {
	if err := s.ValidatePassword(ctx, password); err != nil {
		return "", err
	}
	return s.GenerateToken()
}

// GenerateToken creates a new JWT token.
func (s *Service) GenerateToken() (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "strmforge",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
