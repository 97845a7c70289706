package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spotshot-backend/internal/engine"
	"github.com/DoyleJ11/spotshot-backend/internal/hub"
	"github.com/DoyleJ11/spotshot-backend/internal/store"
	"github.com/DoyleJ11/spotshot-backend/internal/ws"
)

type Deps struct {
	Hub       *hub.Hub
	Store     store.Store
	Rules     engine.Rules
	WS        ws.Options
	PublicURL string
	Log       *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	log := d.Log.Named("http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz(d.Hub))
	r.Get("/config", GameConfig(d.Rules))
	r.Get("/results", Results(d.Store, log))
	r.Get("/invite.png", Invite(d.PublicURL, log))

	wsOpts := d.WS
	wsOpts.Rules = d.Rules
	if wsOpts.Log == nil {
		wsOpts.Log = d.Log
	}
	r.Get("/ws", ws.Handler(d.Hub, wsOpts))
	return r
}
