package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/castnet/internal/server/middleware"
	"github.com/OFFIS-RIT/castnet/internal/server/util"
	"github.com/OFFIS-RIT/castnet/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// CreateAnalysisHandler starts a background analysis and returns its id.
func CreateAnalysisHandler(c echo.Context) error {
	type createAnalysisResponse struct {
		ID     string         `json:"id"`
		Status util.RunStatus `json:"status"`
	}

	req, msg := bindAnalysisRequest(c)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: msg})
	}

	id, err := gonanoid.New()
	if err != nil {
		logger.Error("[Server] Failed to generate analysis id", "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
	}

	cc := c.(*middleware.AppContext)
	app := cc.App
	ctx, err := app.Runs.Start(context.WithoutCancel(c.Request().Context()), id, cc.User.UserID)
	if errors.Is(err, util.ErrTooManyRuns) {
		return c.JSON(http.StatusTooManyRequests, errorResponse{Message: "Too many active analyses"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
	}

	go func() {
		if _, err := runAnalysis(ctx, app, id, cc.User.UserID, req); err != nil {
			logger.Warn("[Server] Analysis did not complete", "id", id, "err", err)
		}
	}()

	logger.Info("[Server] Analysis started", "id", id, "user", cc.User.UserID)
	return c.JSON(http.StatusAccepted, createAnalysisResponse{ID: id, Status: util.RunStatusQueued})
}

// RunAnalysisHandler runs an analysis within the request and returns the
// result. The run is registered so it can be observed and cancelled.
func RunAnalysisHandler(c echo.Context) error {
	req, msg := bindAnalysisRequest(c)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: msg})
	}

	id, err := gonanoid.New()
	if err != nil {
		logger.Error("[Server] Failed to generate analysis id", "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
	}

	cc := c.(*middleware.AppContext)
	app := cc.App
	ctx, err := app.Runs.Start(c.Request().Context(), id, cc.User.UserID)
	if errors.Is(err, util.ErrTooManyRuns) {
		return c.JSON(http.StatusTooManyRequests, errorResponse{Message: "Too many active analyses"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
	}

	result, err := runAnalysis(ctx, app, id, cc.User.UserID, req)
	if err != nil {
		return c.JSON(errorStatus(err))
	}
	return c.JSON(http.StatusOK, result)
}
