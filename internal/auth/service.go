package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/girijasivakumar242/IARS/internal/storage/models"
	"github.com/girijasivakumar242/IARS/internal/storage/sqlite"
	"github.com/girijasivakumar242/IARS/pkg/logger"
)

var (
	ErrEmailTaken    = errors.New("teacher already exists")
	ErrMissingFields = errors.New("name, email and password are required")
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// the two are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// TokenBlacklist revokes tokens until their natural expiry. A nil blacklist
// disables revocation (logout becomes a client-side concern).
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, token string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, token string) (bool, error)
}

type Service struct {
	db        *sqlite.Client
	secret    []byte
	tokenTTL  time.Duration
	blacklist TokenBlacklist
}

func NewService(db *sqlite.Client, secret string, tokenTTL time.Duration, blacklist TokenBlacklist) *Service {
	return &Service{
		db:        db,
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		blacklist: blacklist,
	}
}

func (s *Service) Signup(ctx context.Context, name, email, password string) (*models.Teacher, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" || email == "" || password == "" {
		return nil, "", ErrMissingFields
	}

	_, err := s.db.GetTeacherByEmail(ctx, email)
	if err == nil {
		return nil, "", ErrEmailTaken
	}
	if !errors.Is(err, sqlite.ErrNotFound) {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	teacher := &models.Teacher{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}

	if err := s.db.CreateTeacher(ctx, teacher); err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(teacher.ID)
	if err != nil {
		return nil, "", err
	}

	return teacher, token, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*models.Teacher, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	teacher, err := s.db.GetTeacherByEmail(ctx, email)
	if errors.Is(err, sqlite.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(teacher.ID)
	if err != nil {
		return nil, "", err
	}

	logger.Info("Teacher logged in", zap.String("teacher_id", teacher.ID))
	return teacher, token, nil
}

// Logout revokes the presented token for its remaining validity. Without a
// blacklist this is a no-op success.
func (s *Service) Logout(ctx context.Context, token string) error {
	if s.blacklist == nil {
		return nil
	}

	claims, err := s.parseToken(token)
	if err != nil {
		// An unparseable token cannot authenticate anything; nothing to revoke.
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	return s.blacklist.BlacklistToken(ctx, token, ttl)
}

// ValidateToken checks signature, expiry and revocation, returning the
// authenticated teacher id.
func (s *Service) ValidateToken(ctx context.Context, token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", ErrInvalidToken
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsTokenRevoked(ctx, token)
		if err != nil {
			return "", fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return "", ErrInvalidToken
		}
	}

	return claims.Subject, nil
}

func (s *Service) issueToken(teacherID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   teacherID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

func (s *Service) parseToken(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
