// Package accounts implements credential management and session tokens:
// registration, sign-in, refresh-token rotation and sign-out.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dpetukhov/rosterhub/internal/common"
	"github.com/dpetukhov/rosterhub/internal/server/auth"
	"github.com/dpetukhov/rosterhub/internal/server/config"
	"github.com/dpetukhov/rosterhub/internal/server/models"
	"github.com/dpetukhov/rosterhub/internal/server/repositories/credentials"
	"github.com/dpetukhov/rosterhub/internal/server/repositories/refreshtokens"
)

// Local validation failures, reported to the client verbatim.
var (
	ErrInvalidEmail = errors.New("email address is not valid")
	ErrWeakPassword = errors.New("password must be at least 6 characters")
)

const minPasswordLength = 6

// refreshTokenBytes sizes the random refresh token (hex-encoded to twice
// this many characters).
const refreshTokenBytes = 32

// TokenBundle is the result of a successful register/sign-in/refresh.
type TokenBundle struct {
	UID          string
	AccessToken  string
	RefreshToken string
}

type Service struct {
	creds                        credentials.Repository
	refreshTokens                refreshtokens.Repository
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewService(creds credentials.Repository, refreshTokens refreshtokens.Repository, cfg *config.Config) *Service {
	return &Service{
		creds:                        creds,
		refreshTokens:                refreshTokens,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register creates a credential and signs the new user in. The email is
// normalized to lower case; uniqueness is enforced by the store
// (common.ErrEmailTaken).
func (s *Service) Register(ctx context.Context, email, password string) (*TokenBundle, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate(email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	cred := &models.Credential{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.creds.Create(ctx, cred); err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return nil, common.ErrEmailTaken
		}
		return nil, common.ErrInternal
	}

	return s.issueTokens(ctx, cred.ID)
}

// SignIn verifies the password and issues a token pair. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, email, password string) (*TokenBundle, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	cred, err := s.creds.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, common.ErrInternal
	}

	if bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)) != nil {
		return nil, common.ErrUnauthorized
	}

	return s.issueTokens(ctx, cred.ID)
}

// Refresh exchanges a live refresh token for a new pair, rotating the
// refresh token in the process.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenBundle, error) {
	rt, err := s.refreshTokens.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrRefreshTokenExpired
		}
		return nil, common.ErrInternal
	}
	if time.Now().After(rt.ExpiresAt) {
		_ = s.refreshTokens.Delete(ctx, rt.Token)
		return nil, common.ErrRefreshTokenExpired
	}

	accessToken, err := auth.GenerateToken(rt.UserID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}
	next, err := common.RandHex(refreshTokenBytes)
	if err != nil {
		return nil, common.ErrInternal
	}
	if err := s.refreshTokens.Rotate(ctx, rt.Token, rt.UserID, next, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrInternal
	}

	return &TokenBundle{UID: rt.UserID, AccessToken: accessToken, RefreshToken: next}, nil
}

// SignOut revokes the refresh token. Unknown tokens are not an error; the
// session is gone either way.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokens.Delete(ctx, refreshToken); err != nil {
		return common.ErrInternal
	}
	return nil
}

func (s *Service) issueTokens(ctx context.Context, userID string) (*TokenBundle, error) {
	accessToken, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}

	refreshToken, err := common.RandHex(refreshTokenBytes)
	if err != nil {
		return nil, common.ErrInternal
	}
	if err := s.refreshTokens.Create(ctx, userID, refreshToken, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrInternal
	}

	return &TokenBundle{UID: userID, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func validate(email, password string) error {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
