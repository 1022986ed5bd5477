package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/mongo-activity/internal/utils"
)

// AuthRoleAdmin is the role that may read any user's history.
const AuthRoleAdmin = "admin"

// SelfOrAdmin lets a request through when the authenticated user_id matches
// the route parameter param, or when the caller is an admin.
// It is a pass-through when authentication is disabled.
func SelfOrAdmin(enabled bool, param string, handler fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !enabled {
			return handler(c)
		}

		userID, ok := UserID(c)
		if !ok {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		if normalizeRoleValue(c.Locals(userRoleLocal)) == AuthRoleAdmin {
			return handler(c)
		}

		target, err := strconv.ParseInt(strings.TrimSpace(c.Params(param)), 10, 64)
		if err != nil || target != userID {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}

		return handler(c)
	}
}

const scopedUserLocal = "scoped_user_id"

// ScopeToSelf restricts non-admin callers to their own records. Admins pass
// unscoped. It is a pass-through when authentication is disabled.
func ScopeToSelf(enabled bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !enabled {
			return c.Next()
		}

		userID, ok := UserID(c)
		if !ok {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		if normalizeRoleValue(c.Locals(userRoleLocal)) != AuthRoleAdmin {
			c.Locals(scopedUserLocal, userID)
		}
		return c.Next()
	}
}

// ScopedUserID returns the user a request was restricted to by ScopeToSelf.
func ScopedUserID(c *fiber.Ctx) (int64, bool) {
	id, ok := c.Locals(scopedUserLocal).(int64)
	return id, ok
}
