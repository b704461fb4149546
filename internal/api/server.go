package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/soochol/flume/internal/pipeline"
	"github.com/soochol/flume/internal/sched"
)

// Server exposes pipeline introspection and control over HTTP.
type Server struct {
	runner    *pipeline.Runner
	scheduler *sched.Service
}

func NewServer(runner *pipeline.Runner, scheduler *sched.Service) *Server {
	return &Server{runner: runner, scheduler: scheduler}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/pipelines", func(r chi.Router) {
			r.Get("/", s.listPipelines)
			r.Post("/", s.createPipeline)
			r.Get("/{name}", s.getPipeline)
			r.Delete("/{name}", s.deletePipeline)
			r.Post("/{name}/run", s.runPipeline)
		})
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.listRuns)
			r.Get("/{id}", s.getRun)
		})
		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", s.listSchedules)
			r.Post("/", s.createSchedule)
			r.Delete("/{id}", s.deleteSchedule)
		})
		r.Get("/types", s.listTypes)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
