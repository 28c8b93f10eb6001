package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/castnet/internal/server/middleware"
	"github.com/OFFIS-RIT/castnet/internal/server/util"
	"github.com/OFFIS-RIT/castnet/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CancelAnalysisHandler requests cancellation of a running analysis.
func CancelAnalysisHandler(c echo.Context) error {
	type cancelAnalysisData struct {
		ID string `param:"id" validate:"required"`
	}

	type cancelAnalysisResponse struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}

	data := new(cancelAnalysisData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request params"})
	}

	cc := c.(*middleware.AppContext)
	view, ok := cc.App.Runs.Get(data.ID)
	if !ok || !middleware.CanAccessRun(cc.User, view.Owner) {
		return c.JSON(http.StatusNotFound, errorResponse{Message: "Analysis not found"})
	}

	err := cc.App.Runs.Cancel(data.ID)
	switch {
	case errors.Is(err, util.ErrRunNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Message: "Analysis not found"})
	case errors.Is(err, util.ErrRunFinished):
		return c.JSON(http.StatusConflict, errorResponse{Message: "Analysis already finished"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
	}

	logger.Info("[Server] Analysis cancellation requested", "id", data.ID, "user", cc.User.UserID)
	return c.JSON(http.StatusAccepted, cancelAnalysisResponse{ID: data.ID, Message: "Cancellation requested"})
}
