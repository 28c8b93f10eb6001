package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/castnet/internal/server/middleware"
	"github.com/OFFIS-RIT/castnet/internal/server/util"
	"github.com/OFFIS-RIT/castnet/pkg/common"

	"github.com/labstack/echo/v4"
)

// GetAnalysisHandler reports the status, progress and result of a run.
// Runs no longer in memory are looked up in the result archive. Runs of
// other users are reported as not found.
func GetAnalysisHandler(c echo.Context) error {
	type getAnalysisData struct {
		ID string `param:"id" validate:"required"`
	}

	data := new(getAnalysisData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request params"})
	}

	cc := c.(*middleware.AppContext)
	app := cc.App

	if view, ok := app.Runs.Get(data.ID); ok {
		if !middleware.CanAccessRun(cc.User, view.Owner) {
			return c.JSON(http.StatusNotFound, errorResponse{Message: "Analysis not found"})
		}
		return c.JSON(http.StatusOK, view)
	}

	if app.Results != nil {
		doc := new(common.ArchivedAnalysis)
		err := app.Results.Get(c.Request().Context(), data.ID, doc)
		if err == nil && doc.Result != nil && middleware.CanAccessRun(cc.User, doc.Owner) {
			return c.JSON(http.StatusOK, util.RunView{
				ID:         data.ID,
				Owner:      doc.Owner,
				Status:     util.RunStatusCompleted,
				Result:     doc.Result,
				FinishedAt: &doc.FinishedAt,
			})
		}
	}
	return c.JSON(http.StatusNotFound, errorResponse{Message: "Analysis not found"})
}
