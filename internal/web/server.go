// Package web serves the upload, slicing, gallery and download flow over
// HTTP.
package web

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/interpose/middleware"
	"github.com/justinas/alice"

	"dicomslicer/internal/pipeline"
	"dicomslicer/internal/store"
)

// Server owns the HTTP surface of the slicer. It holds the rendering
// pipeline, the storage backend, and the parsed page templates.
type Server struct {
	log       *slog.Logger
	store     store.Store
	pipe      *pipeline.Pipeline
	maxUpload int64
	retention time.Duration
	tmpl      *template.Template
	router    *mux.Router
}

// Options configures a Server.
type Options struct {
	Log *slog.Logger
	// MaxUploadBytes caps the request body accepted by the upload handler.
	MaxUploadBytes int64
	// Retention is how long uploads and batches survive before the
	// post-download sweep reclaims them.
	Retention time.Duration
}

// New builds a Server around the given store and pipeline.
func New(st store.Store, pipe *pipeline.Pipeline, opts Options) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		log:       log,
		store:     st,
		pipe:      pipe,
		maxUpload: opts.MaxUploadBytes,
		retention: opts.Retention,
		tmpl:      tmpl,
	}

	router := mux.NewRouter()
	POST := router.Methods("POST").Subrouter()
	GET := router.Methods("GET", "HEAD").Subrouter()

	GET.HandleFunc("/", s.Index)
	POST.HandleFunc("/process", s.Process)
	GET.HandleFunc("/image/{batch}/{file}", s.ServeImage)
	GET.HandleFunc("/download", s.Download)
	POST.HandleFunc("/download_selected", s.DownloadSelected)

	s.router = router
	return s, nil
}

// Handler returns the routed handler wrapped in the standard middleware
// chain.
func (s *Server) Handler() http.Handler {
	standard := alice.New(
		middleware.GorillaLog(),
	)
	return standard.Then(s.router)
}
