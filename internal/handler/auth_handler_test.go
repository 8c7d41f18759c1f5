package handler_test

import (
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labreport-go-api/internal/dto"
	"github.com/noah-isme/labreport-go-api/internal/handler"
	"github.com/noah-isme/labreport-go-api/internal/service"
)

const (
	testAccessSecret  = "access-secret"
	testRefreshSecret = "refresh-secret"
)

func setupAuth(t *testing.T, refreshTTL time.Duration) (*fiber.App, service.TokenService) {
	t.Helper()

	tokens := service.NewTokenService(testAccessSecret, testRefreshSecret, 15*time.Minute, refreshTTL)

	app := fiber.New()
	handler.NewAuthHandler(tokens, zerolog.New(io.Discard)).Register(app.Group("/api/v1/auth"))

	return app, tokens
}

func TestRefreshRotatesTokenPair(t *testing.T) {
	app, tokens := setupAuth(t, time.Hour)

	pair, err := tokens.IssuePair("student-1", "student")
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/refresh", "", "",
		dto.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var rotated dto.TokenPair
	decodeData(t, resp, &rotated)
	require.NotEmpty(t, rotated.AccessToken)
	require.NotEmpty(t, rotated.RefreshToken)
	require.Equal(t, int64((15*time.Minute).Seconds()), rotated.ExpiresIn)

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(rotated.AccessToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(testAccessSecret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	require.Equal(t, "student-1", claims["sub"])
	require.Equal(t, "student", claims["role"])
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	app, tokens := setupAuth(t, time.Hour)

	pair, err := tokens.IssuePair("student-1", "student")
	require.NoError(t, err)

	// Access tokens are signed with the other secret and must not refresh.
	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/refresh", "", "",
		dto.RefreshRequest{RefreshToken: pair.AccessToken})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	app, tokens := setupAuth(t, -time.Minute)

	pair, err := tokens.IssuePair("student-1", "student")
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/refresh", "", "",
		dto.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshRequiresToken(t *testing.T) {
	app, _ := setupAuth(t, time.Hour)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/refresh", "", "", dto.RefreshRequest{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
