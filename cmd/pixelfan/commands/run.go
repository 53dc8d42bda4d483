package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pixelfan/pixelfan/internal/config"
	"github.com/pixelfan/pixelfan/internal/domain"
	"github.com/pixelfan/pixelfan/internal/imaging"
	"github.com/pixelfan/pixelfan/internal/pipeline"
	"github.com/pixelfan/pixelfan/internal/stage"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

func (c *CLI) newRunCmd() *cobra.Command {
	var (
		outputDir          string
		stagesFile         string
		tags               []string
		imageWorkers       int
		combinationWorkers int
		thumbnailBound     int
	)

	cmd := &cobra.Command{
		Use:   "run [images or directories...]",
		Short: "Run the combination pipeline over local images",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return nil
			}

			logger := log.New(cmd.OutOrStdout(), "", log.LstdFlags)

			refs, err := collectInputs(args)
			if err != nil {
				return err
			}
			if len(refs) == 0 {
				return errors.New("no image files found in the given paths")
			}

			params, err := config.LoadStageParams(stagesFile)
			if err != nil {
				return err
			}
			builders, err := stage.FromParams(params)
			if err != nil {
				return err
			}

			if err := resetOutputDir(outputDir); err != nil {
				return err
			}

			if err := imaging.Startup(); err != nil {
				return fmt.Errorf("imaging startup: %w", err)
			}
			defer imaging.Shutdown()

			executor, err := pipeline.NewExecutor(
				logger,
				builders,
				pipeline.LocalFileFetcher{},
				pipeline.LocalDirEmitter{OutputDir: outputDir},
				pipeline.Options{
					ImageWorkers:       imageWorkers,
					CombinationWorkers: combinationWorkers,
					ThumbnailBound:     thumbnailBound,
				},
			)
			if err != nil {
				return err
			}

			images := make([]domain.TaggedImage, 0, len(refs))
			for _, ref := range refs {
				images = append(images, domain.TaggedImage{Ref: ref, Tags: domain.NewTags(tags...)})
			}

			result, err := executor.Run(cmd.Context(), images)
			if err != nil {
				return err
			}

			logger.Printf(
				"done images=%d skipped=%d outputs=%d failed=%d dir=%s",
				result.ImagesProcessed,
				result.ImagesSkipped,
				result.OutputsWritten,
				result.OutputsFailed,
				outputDir,
			)
			if result.OutputsFailed > 0 {
				return fmt.Errorf("%d outputs failed to persist", result.OutputsFailed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "modified_images", "Directory the outputs are written to (cleared first)")
	cmd.Flags().StringVarP(&stagesFile, "stages", "s", "", "YAML file selecting and parameterizing the transform families")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Lineage tags applied to every input image")
	cmd.Flags().IntVar(&imageWorkers, "image-workers", 0, "Concurrent images (0 = CPU count)")
	cmd.Flags().IntVar(&combinationWorkers, "combination-workers", 0, "Concurrent combinations per image (0 = CPU count)")
	cmd.Flags().IntVar(&thumbnailBound, "thumbnail-bound", 512, "Downscale outputs so no side exceeds this (0 = keep full size)")

	return cmd
}

// collectInputs expands each argument into image file paths: files are taken
// as-is, directories are walked one level deep.
func collectInputs(args []string) ([]string, error) {
	var refs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat input %s: %w", arg, err)
		}

		if !info.IsDir() {
			refs = append(refs, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read input dir %s: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if isImageFile(entry) {
				refs = append(refs, filepath.Join(arg, entry.Name()))
			}
		}
	}
	return refs, nil
}

func isImageFile(entry fs.DirEntry) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))]
}

// resetOutputDir clears the previous run's outputs so stale combinations
// never mix with fresh ones.
func resetOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("output directory is required")
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear output dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}
