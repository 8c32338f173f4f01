package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/recmeet/recmeet/internal/job"
	"github.com/recmeet/recmeet/internal/notify"
	"github.com/recmeet/recmeet/internal/queue"
	"github.com/recmeet/recmeet/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleUpload streams the multipart audio field to the upload directory
// under a fresh name and enqueues a processing job. Responds 202; the
// caller polls the job status.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing 'audio' file in request")
		return
	}
	defer file.Close()

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "upload storage unavailable")
		return
	}

	localPath := filepath.Join(s.uploadDir, uuid.NewString()+".m4a")
	dst, err := os.Create(localPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "upload storage unavailable")
		return
	}

	// fixed-size copy buffer keeps memory flat for large recordings
	buf := make([]byte, 8192)
	_, err = io.CopyBuffer(dst, file, buf)
	closeErr := dst.Close()
	if err != nil || closeErr != nil {
		os.Remove(localPath)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	log.Info().Str("filename", header.Filename).Str("path", localPath).Msg("received upload")

	j, err := s.intake.Enqueue(r.Context(), localPath, header.Filename)
	if err != nil {
		os.Remove(localPath)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, j)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.jobs.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// meetingListing is one entry of the meetings index.
type meetingListing struct {
	Filename    string `json:"filename"`
	DisplayName string `json:"displayName"`
	Transcript  string `json:"transcript"`
	Summary     string `json:"summary"`

	createdAt time.Time
}

// handleMeetings lists persisted records, newest first. Objects under the
// meetings prefix that do not parse as records are skipped, not fatal.
func (s *Server) handleMeetings(w http.ResponseWriter, r *http.Request) {
	keys, err := s.objects.List(r.Context(), store.KeyPrefix)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	meetings := make([]meetingListing, 0, len(keys))
	for _, key := range keys {
		created, err := store.ParseKey(key)
		if err != nil {
			continue
		}
		data, err := s.objects.Get(r.Context(), key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("skipping unreadable record")
			continue
		}
		var rec store.MeetingRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("skipping unparsable record")
			continue
		}
		meetings = append(meetings, meetingListing{
			Filename:    strings.TrimPrefix(key, store.KeyPrefix),
			DisplayName: store.DisplayName(created),
			Transcript:  rec.Transcript,
			Summary:     rec.Summary,
			createdAt:   created,
		})
	}

	sort.Slice(meetings, func(i, j int) bool {
		return meetings[i].createdAt.After(meetings[j].createdAt)
	})
	writeJSON(w, http.StatusOK, meetings)
}

type subscriberRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscriberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}
	s.registry.Register(notify.Subscriber{Token: req.Token, RegisteredAt: time.Now()})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscriberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}
	s.registry.Unregister(req.Token)
	w.WriteHeader(http.StatusNoContent)
}

// handleProcessTask is the task queue's delivery target. A non-2xx response
// makes the queue redeliver, which retries the whole job.
func (s *Server) handleProcessTask(w http.ResponseWriter, r *http.Request) {
	var msg queue.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode task payload: %v", err))
		return
	}
	if msg.AudioRef == "" {
		writeError(w, http.StatusBadRequest, "missing audioRef")
		return
	}

	if err := s.processor.Process(r.Context(), msg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
