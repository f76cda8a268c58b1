// Package web serves conversion and inspection of uploaded documents.
package web

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/config"
	"github.com/mogaika/scenedoc/document"
	"github.com/mogaika/scenedoc/status"
	"github.com/mogaika/scenedoc/utils/logger"
)

type Server struct {
	Doc      *document.Document
	Settings *config.Settings
	Status   *status.Hub
}

func NewServer(doc *document.Document, settings *config.Settings) *Server {
	if settings == nil {
		settings = config.Default()
	}
	return &Server{Doc: doc, Settings: settings, Status: status.NewHub()}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/convert", s.HandlerConvert).Methods(http.MethodPost)
	api.HandleFunc("/inspect", s.HandlerInspect).Methods(http.MethodPost)
	api.HandleFunc("/status", s.HandlerStatus).Methods(http.MethodGet)
	api.Handle("/status/ws", s.Status).Methods(http.MethodGet)
	return r
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router()
	h = handlers.RecoveryHandler()(h)
	return handlers.LoggingHandler(os.Stdout, h)
}

func StartServer(addr string, s *Server) error {
	logger.L().Info("Starting server", zap.String("stage", "web"), zap.String("addr", addr))
	s.Status.Attach()
	defer s.Status.Detach()
	return http.ListenAndServe(addr, s.Handler())
}
