package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/castnet/internal/analysis"
	"github.com/OFFIS-RIT/castnet/internal/server/middleware"
	"github.com/OFFIS-RIT/castnet/pkg/common"
	"github.com/OFFIS-RIT/castnet/pkg/logger"
	"github.com/OFFIS-RIT/castnet/pkg/pipeline"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// bindAnalysisRequest decodes and checks the body shared by the create
// handlers. It returns a non-empty message when the request is rejected.
func bindAnalysisRequest(c echo.Context) (analysis.Request, string) {
	var req analysis.Request
	if err := c.Bind(&req); err != nil {
		return req, "Invalid request body"
	}
	if req.Text == "" && req.Source == nil {
		return req, "Either text or source is required"
	}
	if req.Source != nil {
		if err := c.Validate(req.Source); err != nil {
			return req, "Invalid source"
		}
		books := c.(*middleware.AppContext).App.Books
		if books == nil || !books.Supports(req.Source.Type) {
			return req, "Unsupported source type"
		}
	}
	if req.Extraction != nil {
		if err := c.Validate(req.Extraction); err != nil {
			return req, "Invalid extraction options"
		}
	}
	if req.Cooccurrence != nil {
		if err := c.Validate(req.Cooccurrence); err != nil {
			return req, "Invalid cooccurrence options"
		}
	}
	return req, ""
}

// runAnalysis executes one registered run and records its outcome.
func runAnalysis(ctx context.Context, app *middleware.App, id, owner string, req analysis.Request) (*common.AnalysisResult, error) {
	result, err := app.Service.Analyze(ctx, req, func(p pipeline.Progress) {
		app.Runs.Update(id, p)
	})
	if err == nil {
		result.ID = id
		if app.Results != nil {
			doc := common.ArchivedAnalysis{ID: id, Owner: owner, FinishedAt: time.Now(), Result: result}
			if _, archiveErr := app.Results.Put(ctx, id, doc); archiveErr != nil {
				logger.Error("[Server] Failed to archive result", "id", id, "err", archiveErr)
			}
		}
	}
	app.Runs.Finish(id, result, err)
	return result, err
}

// errorStatus maps a run error to its HTTP status.
func errorStatus(err error) (int, errorResponse) {
	var verr *pipeline.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Message: verr.Reason, Field: verr.Field}
	case errors.Is(err, analysis.ErrSource):
		return http.StatusUnprocessableEntity, errorResponse{Message: err.Error(), Field: "source"}
	case errors.Is(err, pipeline.ErrCancelled):
		return http.StatusConflict, errorResponse{Message: "Analysis cancelled"}
	default:
		return http.StatusInternalServerError, errorResponse{Message: err.Error()}
	}
}
