// Package pipeline contains the combinatorial engine: for every input image
// it enumerates each combination of stage variants, rematerializes the chosen
// stages deterministically, chains them, and persists one output per
// combination.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"math/rand"
	"path"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/pixelfan/pixelfan/internal/domain"
	"github.com/pixelfan/pixelfan/internal/imaging"
	"github.com/pixelfan/pixelfan/internal/stage"
	"github.com/pixelfan/pixelfan/internal/variation"
)

// Output names keep at most this many leading runes of the source stem before
// the stage fragments are appended.
const baseNameLimit = 10

// Executor runs every stage-variant combination for a batch of tagged images.
// Builders, fetcher, and emitter are shared read-only across all workers; each
// combination owns its own image buffer.
type Executor struct {
	logger             *log.Logger
	builders           []stage.Builder
	fetcher            Fetcher
	emitter            Emitter
	imageWorkers       int
	combinationWorkers int
	thumbnailBound     int
}

// Fetcher loads the raw bytes of a source image by its batch reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Emitter persists one finished output under its derived name.
type Emitter interface {
	Emit(ctx context.Context, name string, data []byte) error
}

// Options tune the two fan-out levels and output downsizing. Zero worker
// counts default to the CPU count; a zero ThumbnailBound disables downsizing.
type Options struct {
	ImageWorkers       int
	CombinationWorkers int
	ThumbnailBound     int
}

func NewExecutor(logger *log.Logger, builders []stage.Builder, fetcher Fetcher, emitter Emitter, opts Options) (*Executor, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if emitter == nil {
		return nil, errors.New("emitter is required")
	}

	imageWorkers := opts.ImageWorkers
	if imageWorkers <= 0 {
		imageWorkers = runtime.NumCPU()
	}
	combinationWorkers := opts.CombinationWorkers
	if combinationWorkers <= 0 {
		combinationWorkers = runtime.NumCPU()
	}

	return &Executor{
		logger:             logger,
		builders:           builders,
		fetcher:            fetcher,
		emitter:            emitter,
		imageWorkers:       imageWorkers,
		combinationWorkers: combinationWorkers,
		thumbnailBound:     opts.ThumbnailBound,
	}, nil
}

// Run processes the batch: one unit of work per image, and within each image
// one unit per variant combination, both unordered. Images that fail to decode
// are skipped; a persist failure kills only its own combination. The returned
// result is complete even when err is non-nil (context cancellation).
func (e *Executor) Run(ctx context.Context, images []domain.TaggedImage) (domain.BatchResult, error) {
	var processed, skipped, written, failed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.imageWorkers)

	for _, img := range images {
		g.Go(func() error {
			ok, err := e.processImage(ctx, img, &written, &failed)
			if err != nil {
				return err
			}
			if ok {
				processed.Add(1)
			} else {
				skipped.Add(1)
			}
			return nil
		})
	}

	err := g.Wait()
	return domain.BatchResult{
		ImagesProcessed: int(processed.Load()),
		ImagesSkipped:   int(skipped.Load()),
		OutputsWritten:  int(written.Load()),
		OutputsFailed:   int(failed.Load()),
	}, err
}

// processImage runs the full combination space for one image. The bool result
// reports whether the image was processed or skipped; the error is reserved
// for context cancellation.
func (e *Executor) processImage(ctx context.Context, img domain.TaggedImage, written, failed *atomic.Int64) (bool, error) {
	data, err := e.fetcher.Fetch(ctx, img.Ref)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		e.logger.Printf("skipping image ref=%s fetch_err=%v", img.Ref, err)
		return false, nil
	}

	base, err := imaging.Decode(data)
	if err != nil {
		e.logger.Printf("skipping image ref=%s decode_err=%v", img.Ref, err)
		return false, nil
	}

	fullStem := imageStem(img.Ref)
	stem := truncateStem(fullStem)
	seed := deriveSeed(fullStem)
	bases := e.stageBases(img.Tags)
	variants := e.buildVariants(seed, bases)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.combinationWorkers)

	odo := variation.NewOdometer(bases)
	for {
		digits, ok := odo.Next()
		if !ok {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.runCombination(ctx, base, stem, digits, variants); err != nil {
				failed.Add(1)
				e.logger.Printf("combination failed ref=%s digits=%v err=%v", img.Ref, digits, err)
				return nil
			}
			written.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return false, err
	}
	return true, nil
}

// stageBases computes one enumerator base per registered builder: the variant
// count when the builder is eligible for the image's original tags, else a
// pinned zero. Eligibility is decided here, once per image, never per
// combination.
func (e *Executor) stageBases(tags domain.Tags) []int {
	bases := make([]int, len(e.builders))
	for i, builder := range e.builders {
		if builder.ShouldExecute(tags) {
			bases[i] = builder.Variations()
		}
	}
	return bases
}

// buildVariants materializes each eligible builder's full variant list once
// per image, reseeding identically for every builder. By the determinism
// contract a rebuild per combination would yield the same lists, so building
// them once up front is purely an optimization.
func (e *Executor) buildVariants(seed uint64, bases []int) [][]stage.Stage {
	variants := make([][]stage.Stage, len(e.builders))
	for i, builder := range e.builders {
		if bases[i] == 0 {
			continue
		}
		rng := rand.New(rand.NewSource(int64(seed)))
		variants[i] = builder.Build(rng)
	}
	return variants
}

// runCombination applies the stages a digit-vector selects, in registration
// order, starting from a private copy of the decoded image, then persists the
// result. Digit d selects variant d-1; zero digits are skipped. The all-zero
// vector persists the unmodified image under the bare stem.
func (e *Executor) runCombination(ctx context.Context, base *image.RGBA, stem string, digits []int, variants [][]stage.Stage) error {
	img := imaging.Clone(base)
	name := stem

	for i, d := range digits {
		if d == 0 {
			continue
		}
		selected := variants[i][d-1]
		img, _ = selected.Apply(img)
		name += "_" + selected.Name()
	}

	if e.thumbnailBound > 0 {
		img = imaging.Thumbnail(img, e.thumbnailBound)
	}

	data, err := imaging.EncodePNG(img)
	if err != nil {
		return fmt.Errorf("encode output %s: %w", name, err)
	}
	if err := e.emitter.Emit(ctx, name+".png", data); err != nil {
		return fmt.Errorf("persist output %s: %w", name, err)
	}
	return nil
}

// imageStem is the reference's base name without its extension. Object keys
// and local paths share one stem rule.
func imageStem(ref string) string {
	base := path.Base(strings.ReplaceAll(ref, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// truncateStem bounds the output-name prefix; the stage fragments appended
// per combination carry the distinguishing detail.
func truncateStem(stem string) string {
	runes := []rune(stem)
	if len(runes) > baseNameLimit {
		return string(runes[:baseNameLimit])
	}
	return stem
}

// deriveSeed hashes the full (untruncated) stem. Identical names always yield
// identical seeds, which is what keeps variant selections reconstructible from
// a digit-vector alone.
func deriveSeed(stem string) uint64 {
	return xxhash.Sum64String(stem)
}
