package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is the lifetime of issued tokens
const TokenTTL = 7 * 24 * time.Hour

// Service registers and authenticates users
type Service struct {
	repo         *Repository
	secret       []byte
	bcryptRounds int
	validate     *validator.Validate
	log          zerolog.Logger
	now          func() time.Time
}

// NewService creates a new auth service
func NewService(repo *Repository, secret string, bcryptRounds int, log zerolog.Logger) *Service {
	if bcryptRounds < bcrypt.MinCost || bcryptRounds > bcrypt.MaxCost {
		bcryptRounds = bcrypt.DefaultCost
	}
	return &Service{
		repo:         repo,
		secret:       []byte(secret),
		bcryptRounds: bcryptRounds,
		validate:     newValidator(),
		log:          log.With().Str("service", "auth").Logger(),
		now:          time.Now,
	}
}

// Register validates the input, stores the user with a bcrypt hash and
// returns a session token
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptRounds)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Name:     in.Name,
		Email:    in.Email,
		Password: string(hash),
		Phone:    in.Phone,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("User registered")
	return s.session(user)
}

// Login checks the credentials and returns a session token
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByEmail(ctx, in.Email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.session(user)
}

// Profile returns the user behind a set of claims
func (s *Service) Profile(ctx context.Context, claims *Claims) (*User, error) {
	return s.repo.GetByID(ctx, claims.ID)
}

// IssueToken signs an HS256 token for the user
func (s *Service) IssueToken(user *User) (string, error) {
	now := s.now()
	claims := Claims{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Verified: user.Verified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken verifies signature and expiry and returns the claims
func (s *Service) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) session(user *User) (*Session, error) {
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Session{User: user, Token: token}, nil
}
