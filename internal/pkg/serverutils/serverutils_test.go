package serverutils

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startup-hunter-be/internal/repository/contract"
	"startup-hunter-be/pkg/store"
)

func TestUserFromHeader(t *testing.T) {
	secret := "s3cret"
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u-42"}).SignedString([]byte(secret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid", "Bearer " + signed, "u-42"},
		{"missing", "", AnonymousUser},
		{"wrong secret", "Bearer " + signed + "x", AnonymousUser},
		{"not bearer", "Basic abc", AnonymousUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, userFromHeader(tt.header, secret))
		})
	}
	assert.Equal(t, AnonymousUser, userFromHeader("Bearer "+signed, ""))
}

type sample struct {
	Stage string `json:"stage" validate:"required,oneof=input trends"`
}

func TestErrorHandlerMiddleware(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"precondition", &store.StepError{Kind: store.ErrorKindPrecondition, Message: "No trends available"}, 422},
		{"infrastructure", &store.StepError{Kind: store.ErrorKindInfrastructure, Message: "MVP template not found"}, 502},
		{"validation", ValidateRequest(sample{Stage: "nope"}), 400},
		{"not found", contract.ErrSessionNotFound, 404},
		{"fiber", fiber.NewError(fiber.StatusBadRequest, "bad"), 400},
		{"other", errors.New("boom"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(ErrorHandlerMiddleware())
			app.Get("/", func(*fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tt.code, resp.StatusCode, string(body))
			assert.Contains(t, string(body), `"success":false`)
		})
	}
}
