package store

import (
	"context"
	"errors"

	"github.com/pixelfan/pixelfan/internal/domain"
)

var ErrJobNotFound = errors.New("batch job not found")

type JobStore interface {
	Create(ctx context.Context, job domain.Job) error
	Get(ctx context.Context, id string) (domain.Job, bool, error)
	UpdateStatus(ctx context.Context, id, status string) (domain.Job, error)
	RecordResult(ctx context.Context, id string, result domain.BatchResult) error
}
