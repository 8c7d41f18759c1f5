package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/labreport-go-api/internal/dto"
)

// ErrInvalidRefreshToken is returned when a refresh token fails
// signature or claim validation.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// TokenService issues and refreshes the JWT pair used by API clients.
// Access tokens are signed with the access secret consumed by the JWT
// middleware; refresh tokens use a separate secret so a leaked access
// token cannot mint new credentials.
type TokenService interface {
	IssuePair(userID, role string) (dto.TokenPair, error)
	Refresh(refreshToken string) (dto.TokenPair, error)
}

type tokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenService constructs a TokenService from the two signing secrets.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) TokenService {
	return &tokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (s *tokenService) IssuePair(userID, role string) (dto.TokenPair, error) {
	issuedAt := s.now()

	access, err := s.sign(s.accessSecret, userID, role, issuedAt, issuedAt.Add(s.accessTTL))
	if err != nil {
		return dto.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := s.sign(s.refreshSecret, userID, role, issuedAt, issuedAt.Add(s.refreshTTL))
	if err != nil {
		return dto.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return dto.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// Refresh validates the refresh token and rotates the whole pair.
func (s *tokenService) Refresh(refreshToken string) (dto.TokenPair, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(refreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.refreshSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return dto.TokenPair{}, ErrInvalidRefreshToken
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		return dto.TokenPair{}, ErrInvalidRefreshToken
	}
	role, _ := claims["role"].(string)

	return s.IssuePair(userID, role)
}

func (s *tokenService) sign(secret []byte, userID, role string, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": issuedAt.Unix(),
		"exp": expiresAt.Unix(),
	}
	if role != "" {
		claims["role"] = role
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
