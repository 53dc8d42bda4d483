// Package worker consumes batch tasks from the queue and drives the
// combination pipeline for each one.
package worker

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pixelfan/pixelfan/internal/config"
	"github.com/pixelfan/pixelfan/internal/domain"
	"github.com/pixelfan/pixelfan/internal/pipeline"
	"github.com/pixelfan/pixelfan/internal/queue"
	"github.com/pixelfan/pixelfan/internal/stage"
	"github.com/pixelfan/pixelfan/internal/storage"
	"github.com/pixelfan/pixelfan/internal/store"
	"github.com/pixelfan/pixelfan/internal/webhook"
)

type Server struct {
	logger        *log.Logger
	server        *asynq.Server
	sem           chan struct{}
	storageClient *storage.Client
	localODir     string
	outputPrefix  string
	execOpts      pipeline.Options
	webhookClient webhookSender
	jobStore      store.JobStore
	metrics       *metrics
	tracer        trace.Tracer
}

type webhookSender interface {
	Send(ctx context.Context, endpoint, event string, payload any) error
}

func NewServer(
	logger *log.Logger,
	queueCfg config.QueueConfig,
	workerCfg config.WorkerConfig,
	storageClient *storage.Client,
	webhookClient *webhook.Client,
	jobStore store.JobStore,
) (*Server, error) {
	if storageClient == nil {
		return nil, fmt.Errorf("storage client is required")
	}

	s := &Server{
		logger: logger,
		server: asynq.NewServer(
			queueCfg.RedisClientOpt(),
			asynq.Config{
				Concurrency: workerCfg.Concurrency,
				Queues: map[string]int{
					queueCfg.Name: 1,
				},
				LogLevel: asynq.InfoLevel,
				ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
					retried, _ := asynq.GetRetryCount(ctx)
					maxRetry, _ := asynq.GetMaxRetry(ctx)
					logger.Printf("task failed type=%s retry=%d/%d err=%v", task.Type(), retried, maxRetry, err)
				}),
			},
		),
		sem:           make(chan struct{}, max(1, workerCfg.MaxActiveBatches)),
		storageClient: storageClient,
		localODir:     workerCfg.LocalOutputDir,
		outputPrefix:  workerCfg.OutputPrefix,
		execOpts: pipeline.Options{
			ImageWorkers:       workerCfg.ImageWorkers,
			CombinationWorkers: workerCfg.CombinationWorkers,
			ThumbnailBound:     workerCfg.ThumbnailBound,
		},
		webhookClient: webhookClient,
		jobStore:      jobStore,
		metrics:       newMetrics(),
		tracer:        otel.Tracer("pixelfan/worker"),
	}
	return s, nil
}

func (s *Server) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeProcessBatch, s.handleProcessBatch)
	return s.server.Run(mux)
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

func (s *Server) handleProcessBatch(ctx context.Context, task *asynq.Task) error {
	startedAt := time.Now()
	outcome := domain.JobStatusFailed

	payload, err := queue.ParseProcessBatchPayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx, span := s.tracer.Start(ctx, "worker.process_batch", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("batch.id", payload.JobID),
		attribute.String("batch.source_type", payload.SourceType),
		attribute.Int("batch.inputs", len(payload.Inputs)),
	)
	defer span.End()
	defer func() {
		s.metrics.batchDuration.WithLabelValues(payload.SourceType, outcome).Observe(time.Since(startedAt).Seconds())
		s.metrics.batchesTotal.WithLabelValues(payload.SourceType, outcome).Inc()
	}()

	s.sem <- struct{}{}
	s.metrics.activeBatches.Inc()
	defer func() {
		<-s.sem
		s.metrics.activeBatches.Dec()
	}()

	s.logger.Printf(
		"Working... job_id=%s source_type=%s inputs=%d",
		payload.JobID,
		payload.SourceType,
		len(payload.Inputs),
	)

	s.updateJobStatus(ctx, payload.JobID, domain.JobStatusProcessing)

	executor, err := s.executorFor(payload)
	if err != nil {
		s.updateJobStatus(ctx, payload.JobID, domain.JobStatusFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "executor setup failed")
		return fmt.Errorf("build executor: %v: %w", err, asynq.SkipRetry)
	}

	images := make([]domain.TaggedImage, 0, len(payload.Inputs))
	for _, input := range payload.Inputs {
		images = append(images, input.Tagged())
	}

	result, err := executor.Run(ctx, images)
	if err != nil {
		s.updateJobStatus(ctx, payload.JobID, domain.JobStatusFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch run failed")
		s.dispatchWebhook(ctx, payload, webhook.EventBatchFailed, map[string]any{
			"job_id":       payload.JobID,
			"status":       domain.JobStatusFailed,
			"source_type":  payload.SourceType,
			"requested_at": payload.RequestedAt,
			"failed_at":    time.Now().UTC(),
			"error":        err.Error(),
		})
		return fmt.Errorf("run batch: %w", err)
	}

	s.logger.Printf(
		"Processed job_id=%s images=%d skipped=%d outputs=%d failed=%d",
		payload.JobID,
		result.ImagesProcessed,
		result.ImagesSkipped,
		result.OutputsWritten,
		result.OutputsFailed,
	)
	s.updateJobStatus(ctx, payload.JobID, domain.JobStatusSucceeded)
	s.recordResult(ctx, payload.JobID, result)
	s.metrics.outputsWrittenTotal.Add(float64(result.OutputsWritten))
	s.metrics.outputsFailedTotal.Add(float64(result.OutputsFailed))
	s.metrics.imagesSkippedTotal.Add(float64(result.ImagesSkipped))

	if err := s.dispatchWebhook(ctx, payload, webhook.EventBatchCompleted, map[string]any{
		"job_id":       payload.JobID,
		"status":       domain.JobStatusSucceeded,
		"source_type":  payload.SourceType,
		"requested_at": payload.RequestedAt,
		"completed_at": time.Now().UTC(),
		"result":       result,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook dispatch failed")
		return err
	}

	outcome = domain.JobStatusSucceeded
	span.SetStatus(codes.Ok, "processed")
	return nil
}

// executorFor assembles the per-batch pipeline: stage builders come from the
// payload, the fetcher and emitter from its source type.
func (s *Server) executorFor(payload queue.ProcessBatchPayload) (*pipeline.Executor, error) {
	builders, err := stage.FromParams(payload.Stages)
	if err != nil {
		return nil, fmt.Errorf("stage params: %w", err)
	}

	var (
		fetcher pipeline.Fetcher
		emitter pipeline.Emitter
	)
	switch payload.SourceType {
	case domain.SourceTypeLocalFile:
		fetcher = pipeline.LocalFileFetcher{}
		emitter = pipeline.LocalDirEmitter{OutputDir: s.localODir}
	default:
		prefix := payload.OutputPrefix
		if prefix == "" {
			prefix = s.outputPrefix
		}
		fetcher = pipeline.ObjectStoreFetcher{Storage: s.storageClient}
		emitter = pipeline.ObjectStoreEmitter{Storage: s.storageClient, OutputPrefix: prefix}
	}

	return pipeline.NewExecutor(s.logger, builders, fetcher, emitter, s.execOpts)
}

func (s *Server) updateJobStatus(ctx context.Context, jobID, status string) {
	if s.jobStore == nil {
		return
	}
	if _, err := s.jobStore.UpdateStatus(ctx, jobID, status); err != nil {
		s.logger.Printf("job status update failed job_id=%s status=%s err=%v", jobID, status, err)
	}
}

func (s *Server) recordResult(ctx context.Context, jobID string, result domain.BatchResult) {
	if s.jobStore == nil {
		return
	}
	if err := s.jobStore.RecordResult(ctx, jobID, result); err != nil {
		s.logger.Printf("result write failed job_id=%s err=%v", jobID, err)
	}
}

func (s *Server) dispatchWebhook(ctx context.Context, payload queue.ProcessBatchPayload, event string, body map[string]any) error {
	if payload.WebhookURL == "" || s.webhookClient == nil {
		return nil
	}

	if err := s.webhookClient.Send(ctx, payload.WebhookURL, event, body); err != nil {
		s.logger.Printf("webhook delivery failed job_id=%s event=%s err=%v", payload.JobID, event, err)
		return fmt.Errorf("dispatch webhook: %w", err)
	}

	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
