package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// Debounce rejects a user's repeat of the same request while the limiter's
// window is open. It must run after JWTAuth.
func Debounce(limiter Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(uuid.UUID)
		if !ok {
			return c.Next()
		}
		if !limiter.Allow(c.UserContext(), userID.String()+":"+c.Path()) {
			return fiber.NewError(fiber.StatusTooManyRequests, "request already in progress, try again shortly")
		}
		return c.Next()
	}
}
