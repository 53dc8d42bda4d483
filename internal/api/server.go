// Package api exposes the batch lifecycle over HTTP: create a batch, start
// it, and poll its status.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/pixelfan/pixelfan/internal/domain"
	"github.com/pixelfan/pixelfan/internal/id"
	"github.com/pixelfan/pixelfan/internal/queue"
	"github.com/pixelfan/pixelfan/internal/store"
)

type Server struct {
	logger          *log.Logger
	queueClient     queueEnqueuer
	jobStore        store.JobStore
	storage         objectStorage
	rateLimiter     RateLimiter
	rateLimitHeader string
	presignTTL      time.Duration
	metrics         *metrics
	tracer          trace.Tracer
	mux             *http.ServeMux
}

type queueEnqueuer interface {
	EnqueueProcessBatch(ctx context.Context, payload queue.ProcessBatchPayload) (*asynq.TaskInfo, error)
}

type objectStorage interface {
	PresignedPutURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
}

// Options carry the optional collaborators; a nil Storage degrades
// object-store batches to an explicit error, a nil RateLimiter disables
// limiting.
type Options struct {
	Storage         objectStorage
	RateLimiter     RateLimiter
	RateLimitHeader string
	PresignTTL      time.Duration
}

func NewServer(logger *log.Logger, queueClient queueEnqueuer, jobStore store.JobStore, opts Options) *Server {
	presignTTL := opts.PresignTTL
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	storage := opts.Storage
	if storage == nil {
		storage = unavailableObjectStorage{}
	}
	rateLimitHeader := opts.RateLimitHeader
	if rateLimitHeader == "" {
		rateLimitHeader = "X-User-ID"
	}

	s := &Server{
		logger:          logger,
		queueClient:     queueClient,
		jobStore:        jobStore,
		storage:         storage,
		rateLimiter:     opts.RateLimiter,
		rateLimitHeader: rateLimitHeader,
		presignTTL:      presignTTL,
		metrics:         newMetrics(),
		tracer:          otel.Tracer("pixelfan/api"),
		mux:             http.NewServeMux(),
	}
	s.routes()
	return s
}

type unavailableObjectStorage struct{}

func (unavailableObjectStorage) PresignedPutURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", errors.New("object storage is unavailable")
}

func (unavailableObjectStorage) ObjectExists(_ context.Context, _ string) (bool, error) {
	return false, errors.New("object storage is unavailable")
}

func (s *Server) Handler() http.Handler {
	return s.metrics.withHTTPMetrics(s.withTracing(s.withRateLimit(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
	s.mux.HandleFunc("POST /v1/batches", s.handleCreateBatch)
	s.mux.HandleFunc("POST /v1/batches/{id}/start", s.handleStartBatch)
	s.mux.HandleFunc("GET /v1/batches/{id}", s.handleGetBatch)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	jobID := id.New()
	sourceType := strings.ToLower(strings.TrimSpace(req.SourceType))

	stages := domain.DefaultStageParams()
	if req.Stages != nil {
		stages = *req.Stages
	}

	uploads := make([]map[string]string, 0, len(req.Inputs))
	if sourceType == domain.SourceTypeObjectStore {
		for _, input := range req.Inputs {
			objectKey := path.Join("uploads", jobID, path.Base(input.ObjectKey))
			url, err := s.storage.PresignedPutURL(r.Context(), objectKey, s.presignTTL)
			if err != nil {
				s.logger.Printf("generate presigned url failed for batch %s: %v", jobID, err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to generate upload URL"})
				return
			}
			uploads = append(uploads, map[string]string{
				"object_key":        objectKey,
				"presigned_put_url": url,
			})
		}
	}

	inputs := make([]domain.BatchInput, len(req.Inputs))
	copy(inputs, req.Inputs)
	for i := range uploads {
		inputs[i].ObjectKey = uploads[i]["object_key"]
	}

	job := domain.Job{
		ID:           jobID,
		Status:       domain.JobStatusCreated,
		SourceType:   sourceType,
		WebhookURL:   req.WebhookURL,
		Inputs:       inputs,
		Stages:       stages,
		OutputPrefix: path.Join("outputs", jobID),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.jobStore.Create(r.Context(), job); err != nil {
		s.logger.Printf("create batch failed for batch %s: %v", job.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create batch"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":    job.ID,
		"status":    job.Status,
		"uploads":   uploads,
		"start_url": fmt.Sprintf("/v1/batches/%s/start", job.ID),
	})
}

func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, ok, err := s.jobStore.Get(r.Context(), jobID)
	if err != nil {
		s.logger.Printf("fetch batch failed for batch %s: %v", jobID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load batch"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "batch not found"})
		return
	}

	if err := s.verifySourcesExist(r.Context(), job); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	payload := queue.ProcessBatchPayload{
		JobID:        job.ID,
		SourceType:   job.SourceType,
		WebhookURL:   job.WebhookURL,
		Inputs:       job.Inputs,
		Stages:       job.Stages,
		OutputPrefix: job.OutputPrefix,
		RequestedAt:  time.Now().UTC(),
	}

	taskInfo, err := s.queueClient.EnqueueProcessBatch(r.Context(), payload)
	if err != nil {
		s.logger.Printf("enqueue failed for batch %s: %v", job.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to enqueue batch"})
		return
	}
	s.metrics.queueEnqueued.WithLabelValues(taskInfo.Queue).Inc()

	if _, err := s.jobStore.UpdateStatus(r.Context(), job.ID, domain.JobStatusQueued); err != nil {
		s.logger.Printf("update status failed for batch %s: %v", job.ID, err)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      job.ID,
		"status":      domain.JobStatusQueued,
		"queue":       taskInfo.Queue,
		"task_id":     taskInfo.ID,
		"state":       taskInfo.State.String(),
		"enqueued_at": taskInfo.NextProcessAt,
	})
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, ok, err := s.jobStore.Get(r.Context(), jobID)
	if err != nil {
		s.logger.Printf("fetch batch failed for batch %s: %v", jobID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load batch"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "batch not found"})
		return
	}

	body := map[string]any{
		"job_id":        job.ID,
		"status":        job.Status,
		"source_type":   job.SourceType,
		"inputs":        job.Inputs,
		"stages":        job.Stages,
		"output_prefix": job.OutputPrefix,
		"created_at":    job.CreatedAt,
		"updated_at":    job.UpdatedAt,
	}
	if job.Result != nil {
		body["result"] = job.Result
	}
	writeJSON(w, http.StatusOK, body)
}

// verifySourcesExist confirms every input is reachable before the batch is
// enqueued, so missing uploads fail at start time rather than in the worker.
func (s *Server) verifySourcesExist(ctx context.Context, job domain.Job) error {
	for _, input := range job.Inputs {
		switch job.SourceType {
		case domain.SourceTypeLocalFile:
			if _, err := os.Stat(input.ObjectKey); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("source object is missing: %s", input.ObjectKey)
				}
				return fmt.Errorf("source object check failed: %w", err)
			}
		default:
			exists, err := s.storage.ObjectExists(ctx, input.ObjectKey)
			if err != nil {
				return fmt.Errorf("source object check failed: %w", err)
			}
			if !exists {
				return fmt.Errorf("source object is missing: %s", input.ObjectKey)
			}
		}
	}
	return nil
}

func decodeJSON(r *http.Request, into any) error {
	const maxBodyBytes = 1 << 20
	limited := io.LimitReader(r.Body, maxBodyBytes)
	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON body: multiple JSON values are not allowed")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
