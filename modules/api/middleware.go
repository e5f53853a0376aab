package api

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	domain "github.com/example/todo-cache-demo/domain/user"
)

// UserContextKey is the key used to store user claims in the Fiber context.
const UserContextKey = "user"

// Authorizer resolves a session token to identity claims.
type Authorizer interface {
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
}

// AuthMiddleware creates a middleware that validates Bearer tokens and
// stores the resolved claims in the request context. Requests without a
// resolvable identity are rejected with 401 before any store or cache
// access happens.
func AuthMiddleware(authorizer Authorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(MessageResponse{
				Success: false,
				Message: "Unauthorized access, try login first",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(MessageResponse{
				Success: false,
				Message: "Invalid authorization header format. Use: Bearer <token>",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(MessageResponse{
				Success: false,
				Message: "Token is required",
			})
		}

		claims, err := authorizer.ValidateToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(MessageResponse{
				Success: false,
				Message: "Invalid or expired token",
			})
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}

// claimsFromContext returns the claims the auth middleware stored.
func claimsFromContext(c *fiber.Ctx) (*domain.Claims, bool) {
	claims, ok := c.Locals(UserContextKey).(*domain.Claims)
	return claims, ok
}
