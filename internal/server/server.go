package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/recmeet/recmeet/internal/job"
	"github.com/recmeet/recmeet/internal/notify"
	"github.com/recmeet/recmeet/internal/queue"
	"github.com/recmeet/recmeet/internal/store"
)

// Intake accepts an uploaded audio reference and returns a job handle.
type Intake interface {
	Enqueue(ctx context.Context, audioRef, originalFilename string) (job.Job, error)
}

// Processor runs one queued job; the task queue delivers to it through the
// processing endpoint.
type Processor interface {
	Process(ctx context.Context, msg queue.Message) error
}

// Server is the HTTP surface: upload intake, status and listing lookups,
// subscriber registration and the task-queue processing target.
type Server struct {
	intake    Intake
	jobs      *job.Store
	objects   store.ObjectStore
	registry  notify.Registry
	processor Processor

	uploadDir      string
	maxUploadBytes func() int64
}

func New(intake Intake, jobs *job.Store, objects store.ObjectStore, registry notify.Registry, processor Processor, uploadDir string, maxUploadBytes func() int64) *Server {
	return &Server{
		intake:         intake,
		jobs:           jobs,
		objects:        objects,
		registry:       registry,
		processor:      processor,
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /jobs/{id}", s.handleJob)
	mux.HandleFunc("GET /meetings", s.handleMeetings)
	mux.HandleFunc("POST /subscribers", s.handleSubscribe)
	mux.HandleFunc("DELETE /subscribers", s.handleUnsubscribe)
	mux.HandleFunc("POST /tasks/process", s.handleProcessTask)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
