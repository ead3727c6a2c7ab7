// Package api exposes the HTTP interface for the reference bundling service.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/refbundle/refbundle/internal/archive"
	"github.com/refbundle/refbundle/internal/batch"
	"github.com/refbundle/refbundle/internal/config"
	"github.com/refbundle/refbundle/internal/metrics"
	"github.com/refbundle/refbundle/internal/refs"
	"github.com/refbundle/refbundle/internal/report"
)

// BatchRunner executes a reference batch to completion.
type BatchRunner interface {
	Run(ctx context.Context, references []refs.Reference) ([]refs.JobResult, error)
}

// ArchiveAssembler packs downloaded documents into an archive payload.
type ArchiveAssembler interface {
	Assemble(ctx context.Context, entries []refs.ArchiveEntry) ([]byte, error)
}

// Server wires HTTP handlers to the batch pipeline.
type Server struct {
	router    chi.Router
	runner    BatchRunner
	assembler ArchiveAssembler
	idGen     refs.IDGenerator
	clock     refs.Clock
	cfg       config.Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	runner BatchRunner,
	assembler ArchiveAssembler,
	idGen refs.IDGenerator,
	clock refs.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		runner:    runner,
		assembler: assembler,
		idGen:     idGen,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	// Batch runs are synchronous; the handler budget must outlast the batch
	// deadline plus archive assembly.
	r.Use(timeoutMiddleware(cfg.BatchDeadline() + cfg.ArchiveDeadline() + 30*time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/batches", s.runBatch)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// The pipeline has no warm state to wait for; readiness tracks liveness.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, s.logger)
}

type batchRequest struct {
	References []referencePayload `json:"references"`
}

type referencePayload struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	SourceURL string `json:"source_url"`
}

type batchResponse struct {
	BatchID       string           `json:"batch_id"`
	Report        refs.BatchReport `json:"report"`
	ArchiveBase64 string           `json:"archive_base64,omitempty"`
	ArchiveError  string           `json:"archive_error,omitempty"`
}

func (s *Server) runBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", s.logger)
		return
	}
	if len(req.References) == 0 {
		writeError(w, http.StatusBadRequest, "at least one reference required", s.logger)
		return
	}

	references := make([]refs.Reference, 0, len(req.References))
	for _, p := range req.References {
		references = append(references, refs.Reference{
			ID:        p.ID,
			Title:     p.Title,
			SourceURL: p.SourceURL,
		})
	}

	batchID, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate batch id", s.logger)
		return
	}

	started := s.clock.Now()
	results, err := s.runner.Run(r.Context(), references)
	if err != nil {
		var tooLarge *batch.TooLargeError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, tooLarge.Error(), s.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error(), s.logger)
		return
	}
	duration := s.clock.Now().Sub(started)
	metrics.ObserveBatchDuration(duration)

	rep := refs.BuildReport(batchID, results, duration)

	if r.URL.Query().Get("format") == "csv" {
		payload, err := report.CSV(rep)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to render csv", s.logger)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", "report-"+batchID+".csv"))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(payload); err != nil {
			s.logger.Error("csv write failed", zap.Error(err))
		}
		return
	}

	resp := batchResponse{BatchID: batchID, Report: rep}
	entries := archive.EntriesFromResults(results)
	payload, err := s.assembler.Assemble(r.Context(), entries)
	if err != nil {
		// Archive failure never discards the per-item report.
		resp.ArchiveError = err.Error()
	} else {
		resp.ArchiveBase64 = base64.StdEncoding.EncodeToString(payload)
	}

	writeJSON(w, http.StatusOK, resp, s.logger)
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *zap.Logger) {
	writeJSON(w, status, map[string]string{"error": msg}, logger)
}
