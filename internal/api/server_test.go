package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pixelfan/pixelfan/internal/domain"
	"github.com/pixelfan/pixelfan/internal/queue"
	"github.com/pixelfan/pixelfan/internal/ratelimit"
	"github.com/pixelfan/pixelfan/internal/store"
)

type fakeEnqueuer struct {
	payload queue.ProcessBatchPayload
	called  bool
}

func (f *fakeEnqueuer) EnqueueProcessBatch(_ context.Context, payload queue.ProcessBatchPayload) (*asynq.TaskInfo, error) {
	f.payload = payload
	f.called = true
	return &asynq.TaskInfo{
		ID:            "task-1",
		Queue:         "default",
		State:         asynq.TaskStatePending,
		NextProcessAt: time.Now().UTC(),
	}, nil
}

type fakeStorage struct {
	exists bool
}

func (fakeStorage) PresignedPutURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://minio.local/" + objectKey + "?sig=test", nil
}

func (f fakeStorage) ObjectExists(_ context.Context, _ string) (bool, error) {
	return f.exists, nil
}

func newTestAPI(enqueuer *fakeEnqueuer, jobStore store.JobStore, opts Options) *Server {
	return NewServer(log.New(io.Discard, "", 0), enqueuer, jobStore, opts)
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, decoded
}

func TestCreateBatchObjectStoreIssuesUploads(t *testing.T) {
	jobStore := store.NewMemoryJobStore()
	s := newTestAPI(&fakeEnqueuer{}, jobStore, Options{Storage: fakeStorage{exists: true}})

	rec, body := doJSON(t, s.Handler(), http.MethodPost, "/v1/batches", map[string]any{
		"source_type": "object_store",
		"inputs":      []map[string]any{{"object_key": "cat.png"}, {"object_key": "dog.png", "tags": []string{"blurred"}}},
	})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		t.Fatal("response missing job_id")
	}

	uploads, _ := body["uploads"].([]any)
	if len(uploads) != 2 {
		t.Fatalf("uploads = %d, want 2", len(uploads))
	}
	first, _ := uploads[0].(map[string]any)
	objectKey, _ := first["object_key"].(string)
	if !strings.HasPrefix(objectKey, "uploads/"+jobID+"/") {
		t.Fatalf("upload object_key = %q, want uploads/%s/ prefix", objectKey, jobID)
	}
	if url, _ := first["presigned_put_url"].(string); url == "" {
		t.Fatal("upload missing presigned_put_url")
	}

	job, ok, err := jobStore.Get(context.Background(), jobID)
	if err != nil || !ok {
		t.Fatalf("load job: ok=%v err=%v", ok, err)
	}
	if job.Status != domain.JobStatusCreated {
		t.Fatalf("job status = %q, want %q", job.Status, domain.JobStatusCreated)
	}
	if !job.Stages.Rotation {
		t.Fatal("default stages should enable rotation")
	}
	if got := job.Inputs[1].Tags; len(got) != 1 || got[0] != "blurred" {
		t.Fatalf("input tags = %v, want [blurred]", got)
	}
}

func TestCreateBatchRejectsEmptyInputs(t *testing.T) {
	s := newTestAPI(&fakeEnqueuer{}, store.NewMemoryJobStore(), Options{})

	rec, _ := doJSON(t, s.Handler(), http.MethodPost, "/v1/batches", map[string]any{
		"source_type": "local_file",
		"inputs":      []map[string]any{},
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestStartBatchEnqueuesPayload(t *testing.T) {
	inputPath := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(inputPath, []byte("not-a-real-png"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	jobStore := store.NewMemoryJobStore()
	job := domain.Job{
		ID:           "batch-1",
		Status:       domain.JobStatusCreated,
		SourceType:   domain.SourceTypeLocalFile,
		Inputs:       []domain.BatchInput{{ObjectKey: inputPath}},
		Stages:       domain.DefaultStageParams(),
		OutputPrefix: "outputs/batch-1",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := jobStore.Create(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	enqueuer := &fakeEnqueuer{}
	s := newTestAPI(enqueuer, jobStore, Options{})

	rec, body := doJSON(t, s.Handler(), http.MethodPost, "/v1/batches/batch-1/start", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	if got, _ := body["status"].(string); got != domain.JobStatusQueued {
		t.Fatalf("response status = %q, want %q", got, domain.JobStatusQueued)
	}

	if !enqueuer.called {
		t.Fatal("expected batch to be enqueued")
	}
	if enqueuer.payload.JobID != "batch-1" {
		t.Fatalf("payload job_id = %q, want batch-1", enqueuer.payload.JobID)
	}
	if enqueuer.payload.OutputPrefix != "outputs/batch-1" {
		t.Fatalf("payload output_prefix = %q", enqueuer.payload.OutputPrefix)
	}

	updated, _, err := jobStore.Get(context.Background(), "batch-1")
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if updated.Status != domain.JobStatusQueued {
		t.Fatalf("job status = %q, want %q", updated.Status, domain.JobStatusQueued)
	}
}

func TestStartBatchMissingSourceConflicts(t *testing.T) {
	jobStore := store.NewMemoryJobStore()
	if err := jobStore.Create(context.Background(), domain.Job{
		ID:         "batch-2",
		Status:     domain.JobStatusCreated,
		SourceType: domain.SourceTypeObjectStore,
		Inputs:     []domain.BatchInput{{ObjectKey: "uploads/batch-2/missing.png"}},
		Stages:     domain.DefaultStageParams(),
	}); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	enqueuer := &fakeEnqueuer{}
	s := newTestAPI(enqueuer, jobStore, Options{Storage: fakeStorage{exists: false}})

	rec, _ := doJSON(t, s.Handler(), http.MethodPost, "/v1/batches/batch-2/start", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if enqueuer.called {
		t.Fatal("batch with missing source must not be enqueued")
	}
}

func TestGetBatchIncludesResult(t *testing.T) {
	jobStore := store.NewMemoryJobStore()
	if err := jobStore.Create(context.Background(), domain.Job{
		ID:         "batch-3",
		Status:     domain.JobStatusSucceeded,
		SourceType: domain.SourceTypeLocalFile,
		Inputs:     []domain.BatchInput{{ObjectKey: "a.png"}},
		Stages:     domain.DefaultStageParams(),
		Result:     &domain.BatchResult{ImagesProcessed: 1, OutputsWritten: 8},
	}); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	s := newTestAPI(&fakeEnqueuer{}, jobStore, Options{})
	rec, body := doJSON(t, s.Handler(), http.MethodGet, "/v1/batches/batch-3", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	result, _ := body["result"].(map[string]any)
	if result == nil {
		t.Fatal("response missing result")
	}
	if got := result["outputs_written"].(float64); got != 8 {
		t.Fatalf("outputs_written = %v, want 8", got)
	}
}

func TestGetBatchUnknownIDNotFound(t *testing.T) {
	s := newTestAPI(&fakeEnqueuer{}, store.NewMemoryJobStore(), Options{})
	rec, _ := doJSON(t, s.Handler(), http.MethodGet, "/v1/batches/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(_ context.Context, _ string) (ratelimit.Decision, error) {
	return ratelimit.Decision{Allowed: false, Remaining: 0, RetryAfter: 30 * time.Second}, nil
}

func TestRateLimitRejectsWrites(t *testing.T) {
	s := newTestAPI(&fakeEnqueuer{}, store.NewMemoryJobStore(), Options{RateLimiter: denyAllLimiter{}})

	rec, _ := doJSON(t, s.Handler(), http.MethodPost, "/v1/batches", map[string]any{
		"source_type": "local_file",
		"inputs":      []map[string]any{{"object_key": "a.png"}},
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	rec, _ = doJSON(t, s.Handler(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/v1/batches":           "/v1/batches",
		"/v1/batches/abc":       "/v1/batches/{id}",
		"/v1/batches/abc/start": "/v1/batches/{id}/start",
		"/healthz":              "/healthz",
		"/metrics":              "/metrics",
		"/something/else":       "/something/else",
	}
	for path, want := range cases {
		if got := routeLabel(path); got != want {
			t.Fatalf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}
