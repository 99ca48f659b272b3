// Package web exposes the road dataset over HTTP: the merged map, the save
// endpoint, change feeds, and the admin surface for checkpointing.
//
// Authentication is delegated to the deployment front end: handlers trust
// the identity header set by the authenticating proxy, and admin endpoints
// require a shared token. Neither credential is issued here.
package web

import (
	"net/http"

	"github.com/roadlog/roadlog/pkg/core"
	"github.com/roadlog/roadlog/pkg/dlogger"
	"github.com/roadlog/roadlog/pkg/errors"
	"github.com/roadlog/roadlog/pkg/ingest"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// IdentityHeader carries the authenticated username, set by the front end
const IdentityHeader = "X-Forwarded-User"

// AdminTokenHeader carries the shared admin token
const AdminTokenHeader = "X-Admin-Token"

// ServerParams groups the dependencies of a Server
type ServerParams struct {
	Ledger     *core.Ledger
	Importer   *ingest.Client
	AdminToken string
	Logger     *zap.Logger
	_          struct{}
}

// Server handles the HTTP surface over a ledger
type Server struct {
	ledger     *core.Ledger
	importer   *ingest.Client
	adminToken string
	l          *zap.Logger
}

// NewServer builds a Server from its params
func NewServer(params ServerParams) (*Server, error) {
	if params.Ledger == nil {
		return nil, errors.New("web server requires a ledger")
	}
	srv := &Server{
		ledger:     params.Ledger,
		importer:   params.Importer,
		adminToken: params.AdminToken,
		l:          params.Logger,
	}
	if srv.importer == nil {
		srv.importer = ingest.New()
	}
	if srv.l == nil {
		srv.l = dlogger.MustGetLogger(dlogger.LogLevelInfo)
	}
	return srv, nil
}

// InitRouter builds the route table for a Server
func InitRouter(srv *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/map", srv.HandleMap())
	r.Get("/healthz", srv.HandleHealth())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(srv.RequireUser)
		r.Post("/api/save", srv.HandleSave())
		r.Get("/api/changes", srv.HandleChanges())
		r.Get("/api/import-bbox", srv.HandleImportBBox())
	})

	r.Group(func(r chi.Router) {
		r.Use(srv.RequireAdmin)
		r.Get("/api/user", srv.HandleUserActivity())
		r.Get("/admin/export", srv.HandleExport())
		r.Post("/admin/upload", srv.HandleUpload())
		r.Post("/admin/reset-baseline", srv.HandleResetBaseline())
	})

	return r
}
