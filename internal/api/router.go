package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "notebridge/internal/api/context"
	"notebridge/internal/api/handlers"
	"notebridge/internal/api/middleware"
)

type Dependencies struct {
	OAuthHandler     *handlers.OAuthHandler
	LicenseHandler   *handlers.LicenseHandler
	UserHandler      *handlers.UserHandler
	NotesHandler     *handlers.NotesHandler
	WorkspaceHandler *handlers.WorkspaceHandler
	HealthHandler    *handlers.HealthHandler
	AuthMiddleware   *middleware.AuthMiddleware
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.GET("/api/v1/health", wrap(deps.HealthHandler.Handle))

	// Authorization flow
	router.POST("/api/v1/oauth/callback", wrap(deps.OAuthHandler.Callback))
	router.POST("/api/v1/license/activate", wrap(deps.LicenseHandler.Activate))

	authMid := deps.AuthMiddleware

	// Authenticated surface
	router.GET("/api/v1/user/info",
		chain(deps.UserHandler.Info, authMid.Handle))
	router.POST("/api/v1/user/target-resource",
		chain(deps.UserHandler.SetTargetResource, authMid.Handle))
	router.POST("/api/v1/workspace/search",
		chain(deps.WorkspaceHandler.Search, authMid.Handle))
	router.POST("/api/v1/notes",
		chain(deps.NotesHandler.Create, authMid.Handle))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
