// Package server exposes the REST API next to the socket endpoints.
package server

import (
	"fanous-live/auth"
	"fanous-live/contract"
	"fanous-live/observability"
	"fanous-live/services"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

type Dependencies struct {
	Auth            services.IAuthService
	Chat            services.IChatService
	Notifications   services.INotificationService
	Registry        contract.IRegistry
	Monitoring      *observability.MonitoringManager
	Issuer          *auth.TokenIssuer
	EventTransport  http.Handler
	LegacyTransport http.Handler
}

type Server struct {
	log  *slog.Logger
	deps Dependencies
}

// NewHandler wires every route. Everything under /api/v1 except auth
// requires a bearer token.
func NewHandler(log *slog.Logger, deps Dependencies) http.Handler {
	s := &Server{log: log, deps: deps}

	r := mux.NewRouter()
	r.Use(observability.InstrumentHandler)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	if deps.EventTransport != nil {
		r.Handle("/socket", deps.EventTransport).Methods(http.MethodGet)
	}
	if deps.LegacyTransport != nil {
		r.Handle("/ws", deps.LegacyTransport).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(auth.Middleware(deps.Issuer, unauthorized))

	protected.HandleFunc("/notifications", s.listNotifications).Methods(http.MethodGet)
	protected.HandleFunc("/notifications", s.createNotification).Methods(http.MethodPost)
	protected.HandleFunc("/notifications", s.clearNotifications).Methods(http.MethodDelete)
	protected.HandleFunc("/notifications/read", s.markAllNotificationsRead).Methods(http.MethodPut)
	protected.HandleFunc("/notifications/{id}/read", s.markNotificationRead).Methods(http.MethodPut)
	protected.HandleFunc("/notifications/{id}", s.deleteNotification).Methods(http.MethodDelete)

	protected.HandleFunc("/chat/unread", s.unreadCount).Methods(http.MethodGet)
	protected.HandleFunc("/chat/{peerId}", s.history).Methods(http.MethodGet)
	protected.HandleFunc("/chat/{peerId}/search", s.search).Methods(http.MethodGet)
	protected.HandleFunc("/chat/{peerId}", s.sendMessage).Methods(http.MethodPost)

	protected.HandleFunc("/presence", s.online).Methods(http.MethodGet)
	protected.HandleFunc("/presence/{userId}", s.presence).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeResult(w, http.StatusNotFound, "route not found", nil)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Monitoring.Report(s.deps.Registry.Count()))
}
