package serverutils

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-platform-be/internal/pkg/apperror"
	"ai-platform-be/pkg/cache"
	"ai-platform-be/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

func decode(t *testing.T, resp *http.Response) BaseResponse[any] {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out BaseResponse[any]
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestErrorHandlerMiddleware_MapsKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", apperror.New(apperror.ErrValidation, "bad"), 400},
		{"unauthorized", apperror.New(apperror.ErrUnauthorized, "no"), 401},
		{"not found", apperror.New(apperror.ErrNotFound, "missing"), 404},
		{"conflict", apperror.New(apperror.ErrAlreadyExists, "dup"), 409},
		{"too large", apperror.New(apperror.ErrPayloadTooLarge, "big"), 413},
		{"extraction", apperror.New(apperror.ErrExtractionFailed, "empty"), 422},
		{"rate limited", apperror.New(apperror.ErrRateLimited, "slow down"), 429},
		{"store", apperror.New(apperror.ErrStore, "qdrant down"), 502},
		{"provider", apperror.New(apperror.ErrProviderUnavailable, "no key"), 503},
		{"fiber error", fiber.NewError(fiber.StatusTeapot, "teapot"), 418},
		{"unknown", io.ErrUnexpectedEOF, 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(ErrorHandlerMiddleware(nopLogger{}))
			app.Get("/", func(ctx *fiber.Ctx) error { return tc.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.code, resp.StatusCode)

			body := decode(t, resp)
			assert.False(t, body.Success)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestErrorHandlerMiddleware_HidesInternalErrors(t *testing.T) {
	code, msg := StatusFor(io.ErrUnexpectedEOF)
	assert.Equal(t, 500, code)
	assert.Equal(t, "internal server error", msg)
}

type sampleRequest struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"min=1,max=20"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sampleRequest{Name: "x", Count: 3}))

	err := ValidateRequest(sampleRequest{Count: 50})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "count must be at most 20")
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newAuthApp(secret string, disabled bool) *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware(nopLogger{}))
	app.Use(NewJwtMiddleware(secret, disabled))
	app.Get("/me", func(ctx *fiber.Ctx) error {
		id, err := UserID(ctx)
		if err != nil {
			return err
		}
		return ctx.SendString(id.String())
	})
	return app
}

func TestJwtMiddleware(t *testing.T) {
	const secret = "test-secret"
	userID := "5b1f6a1e-5c9b-4c39-9a51-8a3f2f6b9c11"

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, secret, jwt.MapClaims{"user_id": userID}))

		resp, err := newAuthApp(secret, false).Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, userID, string(body))
	})

	t.Run("token in query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me?token="+signToken(t, secret, jwt.MapClaims{"user_id": userID}), nil)
		resp, err := newAuthApp(secret, false).Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		resp, err := newAuthApp(secret, false).Test(httptest.NewRequest(http.MethodGet, "/me", nil))
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("wrong secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "other", jwt.MapClaims{"user_id": userID}))
		resp, err := newAuthApp(secret, false).Test(req)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("auth disabled injects dev user", func(t *testing.T) {
		resp, err := newAuthApp(secret, true).Test(httptest.NewRequest(http.MethodGet, "/me", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, DevUserID.String(), string(body))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	store := cache.NewMemoryStore("ratelimit", time.Minute)
	limiter := ratelimit.NewLimiter(store, 2, time.Minute)

	app := fiber.New()
	app.Use(ErrorHandlerMiddleware(nopLogger{}))
	app.Use(RateLimitMiddleware(limiter, nopLogger{}))
	app.Get("/", func(ctx *fiber.Ctx) error { return ctx.SendStatus(fiber.StatusNoContent) })

	for i, want := range []int{204, 204, 429} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, "request %d", i+1)
		if want == 429 {
			assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
			assert.NotEmpty(t, resp.Header.Get("Retry-After"))
		}
	}
}
