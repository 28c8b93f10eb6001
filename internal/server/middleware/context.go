package middleware

import (
	"context"

	"github.com/OFFIS-RIT/castnet/internal/analysis"
	"github.com/OFFIS-RIT/castnet/internal/server/util"
	"github.com/OFFIS-RIT/castnet/pkg/loader"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"
)

type AppUser struct {
	UserID      string
	Role        string
	Permissions []string
}

// ResultArchive persists finished results beyond the in-memory registry.
type ResultArchive interface {
	Put(ctx context.Context, id string, v any) (string, error)
	Get(ctx context.Context, id string, out any) error
}

// App holds the process-wide collaborators of the handlers. Key and
// Results are nil when their feature is not configured.
type App struct {
	Service      *analysis.Service
	Books        *loader.Router
	Runs         *util.RunRegistry
	Results      ResultArchive
	Key          keyfunc.Keyfunc
	MasterAPIKey string
}

// AuthEnabled reports whether requests must carry a bearer token.
func (a *App) AuthEnabled() bool {
	return a.Key != nil || a.MasterAPIKey != ""
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
