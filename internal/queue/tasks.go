package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pixelfan/pixelfan/internal/domain"
)

const TypeProcessBatch = "batch:process"

type ProcessBatchPayload struct {
	JobID        string              `json:"job_id"`
	SourceType   string              `json:"source_type"`
	WebhookURL   string              `json:"webhook_url,omitempty"`
	Inputs       []domain.BatchInput `json:"inputs"`
	Stages       domain.StageParams  `json:"stages"`
	OutputPrefix string              `json:"output_prefix,omitempty"`
	RequestedAt  time.Time           `json:"requested_at"`
}

func NewProcessBatchTask(payload ProcessBatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal batch payload: %w", err)
	}
	return asynq.NewTask(TypeProcessBatch, body), nil
}

func ParseProcessBatchPayload(task *asynq.Task) (ProcessBatchPayload, error) {
	var payload ProcessBatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ProcessBatchPayload{}, fmt.Errorf("unmarshal batch payload: %w", err)
	}
	return payload, nil
}
