package serverutils

import (
	"math"
	"strconv"

	"ai-platform-be/internal/pkg/apperror"
	"ai-platform-be/internal/pkg/logger"
	"ai-platform-be/pkg/metrics"
	"ai-platform-be/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// RateLimitMiddleware keys on the authenticated user, else the client IP.
// Limiter backend errors let the request through.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		identifier, _ := ctx.Locals(localsUserID).(string)
		if identifier == "" {
			identifier = ctx.IP()
		}

		res, err := limiter.Allow(ctx.UserContext(), identifier)
		if err != nil {
			log.Warn("RATELIMIT", "limiter unavailable", map[string]interface{}{"error": err.Error()})
			return ctx.Next()
		}

		ctx.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		ctx.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		ctx.Set("X-RateLimit-Reset", strconv.Itoa(int(math.Ceil(res.ResetAfter.Seconds()))))

		if !res.Allowed {
			metrics.RateLimited.Inc()
			ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(res.ResetAfter.Seconds()))))
			return apperror.New(apperror.ErrRateLimited, "rate limit exceeded")
		}
		return ctx.Next()
	}
}
