package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	JobStatusCreated    = "created"
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusSucceeded  = "succeeded"
	JobStatusFailed     = "failed"

	SourceTypeLocalFile   = "local_file"
	SourceTypeObjectStore = "object_store"
)

// BatchInput names one source image and the lineage tags it already carries.
type BatchInput struct {
	ObjectKey string   `json:"object_key"`
	Tags      []string `json:"tags,omitempty"`
}

func (i BatchInput) Tagged() TaggedImage {
	return TaggedImage{Ref: i.ObjectKey, Tags: NewTags(i.Tags...)}
}

type CreateBatchRequest struct {
	SourceType string       `json:"source_type"`
	WebhookURL string       `json:"webhook_url,omitempty"`
	Inputs     []BatchInput `json:"inputs"`
	Stages     *StageParams `json:"stages,omitempty"`
}

// BatchResult summarizes one finished batch run.
type BatchResult struct {
	ImagesProcessed int `json:"images_processed"`
	ImagesSkipped   int `json:"images_skipped"`
	OutputsWritten  int `json:"outputs_written"`
	OutputsFailed   int `json:"outputs_failed"`
}

type Job struct {
	ID           string
	Status       string
	SourceType   string
	WebhookURL   string
	Inputs       []BatchInput
	Stages       StageParams
	OutputPrefix string
	Result       *BatchResult
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r CreateBatchRequest) Validate() error {
	sourceType := strings.ToLower(strings.TrimSpace(r.SourceType))
	if sourceType == "" {
		return errors.New("source_type is required")
	}
	if sourceType != SourceTypeLocalFile && sourceType != SourceTypeObjectStore {
		return fmt.Errorf("unsupported source_type: %s", r.SourceType)
	}
	if len(r.Inputs) == 0 {
		return errors.New("inputs must contain at least one image")
	}
	for i, input := range r.Inputs {
		if strings.TrimSpace(input.ObjectKey) == "" {
			return fmt.Errorf("inputs[%d].object_key is required", i)
		}
	}
	if r.Stages != nil {
		if err := r.Stages.Validate(); err != nil {
			return fmt.Errorf("stages: %w", err)
		}
	}
	return nil
}
