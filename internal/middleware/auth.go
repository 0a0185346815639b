package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/pkg/jwtutil"
	"github.com/suteetoe/storecore/pkg/logger"
)

const identityKey = "identity"

// Identity is the authenticated caller as supplied to the core
type Identity struct {
	UserID uint
	Email  string
	Role   model.Role
}

// CurrentIdentity returns the identity set by JWTAuthMiddleware
func CurrentIdentity(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// SetIdentity stores id on the request, for handlers and tests
func SetIdentity(c echo.Context, id Identity) {
	c.Set(identityKey, id)
}

// JWTAuthMiddleware creates a middleware that validates JWT tokens
func JWTAuthMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				log.Warn("Missing authorization header")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Missing authorization header"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn("Invalid authorization header format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid authorization header format"})
			}

			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token"})
			}

			SetIdentity(c, Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.UserRole()})
			log.Debug("JWT token validated successfully",
				zap.Uint("user_id", claims.UserID),
				zap.String("role", claims.Role))

			return next(c)
		}
	}
}

// RequireRole lets the request through when the caller's role passes allow
func RequireRole(allow func(model.Role) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CurrentIdentity(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
			}
			if !allow(id.Role) {
				logger.FromEcho(c).Warn("Role not allowed",
					zap.Uint("user_id", id.UserID),
					zap.String("role", string(id.Role)),
					zap.String("path", c.Path()))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Insufficient permissions"})
			}
			return next(c)
		}
	}
}

// RequireManager admits assistants and admins
func RequireManager() echo.MiddlewareFunc {
	return RequireRole(model.Role.CanManage)
}

// RequireAdmin admits admins only
func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(model.Role.CanDelete)
}
