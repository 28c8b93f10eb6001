package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var allPermissions = []string{
	"analysis.create",
	"analysis.view",
	"analysis.cancel",
}

func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cc := c.(*AppContext)
		app := cc.App

		if !app.AuthEnabled() {
			cc.User = &AppUser{
				UserID:      "anonymous",
				Role:        "admin",
				Permissions: allPermissions,
			}
			return next(c)
		}

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")

		// Master API Key bypass
		if app.MasterAPIKey != "" && token == app.MasterAPIKey {
			cc.User = &AppUser{
				UserID:      "master",
				Role:        "admin",
				Permissions: allPermissions,
			}
			return next(c)
		}
		if app.Key == nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		// Parse JWT token
		parsed, err := jwt.Parse(token, app.Key.Keyfunc)
		if err != nil || !parsed.Valid {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		var userID string
		if idClaim, ok := claims["id"].(string); ok {
			userID = idClaim
		} else if idFloat, ok := claims["id"].(float64); ok {
			userID = strconv.FormatInt(int64(idFloat), 10)
		} else if sub, err := claims.GetSubject(); err == nil && sub != "" {
			userID = sub
		} else {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid user ID"})
		}

		role := "user"
		if roleClaim, ok := claims["role"].(string); ok {
			role = roleClaim
		}

		var permissions []string
		if permsClaim, ok := claims["permissions"].([]any); ok {
			for _, p := range permsClaim {
				if pStr, ok := p.(string); ok {
					permissions = append(permissions, pStr)
				}
			}
		}

		if role == "admin" && len(permissions) == 0 {
			permissions = allPermissions
		}

		cc.User = &AppUser{
			UserID:      userID,
			Role:        role,
			Permissions: permissions,
		}

		return next(c)
	}
}
