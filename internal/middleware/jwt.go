package middleware // reusable HTTP middleware for the staff-facing endpoints

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// StaffAuth returns an Echo middleware that validates a Bearer access
// token and injects the staff identity into the request context.  Token
// issuance lives in the external auth service; this middleware only
// verifies the HS256 signature with the shared secret and extracts the
// claims the scan/refund handlers need: subject (staff ID), org and
// role.  Handlers read them via StaffID(c), OrgID(c) and c.Get("role").
func StaffAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			staffID, ok := numericClaim(claims, "sub")
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject claim"})
			}
			orgID, ok := numericClaim(claims, "org")
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid org claim"})
			}
			c.Set("staff_id", staffID)
			c.Set("org_id", orgID)
			c.Set("role", claims["role"])
			return next(c)
		}
	}
}

// numericClaim reads a claim that may arrive as JSON number or string.
func numericClaim(claims jwt.MapClaims, key string) (uint64, bool) {
	switch v := claims[key].(type) {
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// StaffID returns the authenticated staff member's ID from context.
func StaffID(c echo.Context) (uint64, bool) {
	id, ok := c.Get("staff_id").(uint64)
	return id, ok
}

// OrgID returns the authenticated staff member's organization ID.
func OrgID(c echo.Context) (uint64, bool) {
	id, ok := c.Get("org_id").(uint64)
	return id, ok
}
