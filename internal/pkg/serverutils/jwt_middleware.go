package serverutils

import (
	"fmt"

	"ai-platform-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const localsUserID = "user_id"

// DevUserID is injected for every request when auth is disabled.
var DevUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// NewJwtMiddleware validates an HS256 bearer token and stores its user_id
// claim in ctx.Locals. Websocket clients may pass the token as ?token=.
func NewJwtMiddleware(secret string, disabled bool) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if disabled {
			ctx.Locals(localsUserID, DevUserID.String())
			return ctx.Next()
		}

		tokenStr := ""
		authHeader := ctx.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		} else {
			tokenStr = ctx.Query("token")
		}
		if tokenStr == "" {
			return apperror.New(apperror.ErrUnauthorized, "missing token")
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return apperror.New(apperror.ErrUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return apperror.New(apperror.ErrUnauthorized, "invalid claims")
		}
		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			return apperror.New(apperror.ErrUnauthorized, "token has no user_id")
		}

		ctx.Locals(localsUserID, userID)
		return ctx.Next()
	}
}

// UserID reads the authenticated user set by NewJwtMiddleware.
func UserID(ctx *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := ctx.Locals(localsUserID).(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.New(apperror.ErrUnauthorized, "invalid user id")
	}
	return id, nil
}
