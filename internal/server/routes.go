package server

import (
	"github.com/OFFIS-RIT/castnet/internal/server/middleware"
	"github.com/OFFIS-RIT/castnet/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Analysis routes
	apiRoutes.POST("/analyses", routes.CreateAnalysisHandler, middleware.RequirePermission("analysis.create"))
	apiRoutes.POST("/analyses/sync", routes.RunAnalysisHandler, middleware.RequirePermission("analysis.create"))
	apiRoutes.GET("/analyses/:id", routes.GetAnalysisHandler, middleware.RequirePermission("analysis.view"))
	apiRoutes.DELETE("/analyses/:id", routes.CancelAnalysisHandler, middleware.RequirePermission("analysis.cancel"))
}
