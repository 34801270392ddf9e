package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// claimsKey is the fiber locals slot the middleware stores verified claims
// under.
const claimsKey = "authClaims"

// RoleAdmin is a meta-role accepted by RequireAuth that matches any admin
// role stored in the token.
const RoleAdmin = "admin"

// RequireAuth verifies the bearer token and, when roles are given, requires
// the token's role to be one of them.
func (au *Auth) RequireAuth(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return unauthorized(c, "missing bearer token")
		}
		claims, err := au.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return unauthorized(c, "invalid or expired token")
		}
		if len(roles) > 0 && !roleAllowed(claims.Role, roles) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "insufficient role",
			})
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// ClaimsFrom returns the claims RequireAuth stored, nil when the route is
// unauthenticated.
func ClaimsFrom(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(claimsKey).(*Claims)
	return claims
}

func roleAllowed(role string, allowed []string) bool {
	isAdmin := role == "super_admin" || role == "election_admin"
	for _, a := range allowed {
		if a == role || (a == RoleAdmin && isAdmin) {
			return true
		}
	}
	return false
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
