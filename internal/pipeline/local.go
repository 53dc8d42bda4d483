package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalFileFetcher reads source images straight off the filesystem.
type LocalFileFetcher struct{}

func (LocalFileFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("read input file %s: %w", ref, err)
	}
	return data, nil
}

// LocalDirEmitter writes outputs flat into a single directory. The caller is
// expected to have cleared it; the emitter only ensures it exists.
type LocalDirEmitter struct {
	OutputDir string
}

func (e LocalDirEmitter) Emit(_ context.Context, name string, data []byte) error {
	if strings.TrimSpace(e.OutputDir) == "" {
		return errors.New("output directory is required")
	}

	if err := os.MkdirAll(e.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	fullPath := filepath.Join(e.OutputDir, name)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}
