package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/UnendingLoop/BackgroundRemover/internal/appconfig"
	"github.com/UnendingLoop/BackgroundRemover/internal/archive"
	"github.com/UnendingLoop/BackgroundRemover/internal/batch"
	"github.com/UnendingLoop/BackgroundRemover/internal/imageproc"
	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/UnendingLoop/BackgroundRemover/internal/results"
	"github.com/UnendingLoop/BackgroundRemover/internal/segment"
	"github.com/UnendingLoop/BackgroundRemover/internal/sessioncache"
	"github.com/UnendingLoop/BackgroundRemover/internal/storage"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run FILE...",
		Short: "Remove backgrounds from a batch of images",
		Args:  cobra.MinimumNArgs(1),
		RunE:  RunHandler,
	}

	runCmd.Flags().StringP("model", "m", "", "Model id (u2net, u2net_human_seg, u2netp)")
	runCmd.Flags().Bool("alpha-matting", false, "Refine mask edges with alpha matting")
	runCmd.Flags().StringP("out", "o", "", "Archive path (empty string with --dir skips the archive)")
	runCmd.Flags().StringP("dir", "d", "", "Directory for individual no_bg_<name>.png files")
	runCmd.Flags().IntP("workers", "w", 0, "Parallel items (default BATCH_WORKERS)")

	return runCmd
}

func RunHandler(cmd *cobra.Command, args []string) error {
	appConfig := loadConfig()

	modelFlag, _ := cmd.Flags().GetString("model")
	alpha, _ := cmd.Flags().GetBool("alpha-matting")
	out, _ := cmd.Flags().GetString("out")
	dir, _ := cmd.Flags().GetString("dir")
	workers, _ := cmd.Flags().GetInt("workers")

	id := model.ModelID(strings.ToLower(strings.TrimSpace(modelFlag)))
	if id == "" {
		id = model.ModelID(appconfig.String(appConfig, "DEFAULT_MODEL", string(model.DefaultModel)))
	}
	if !model.ModelsMap[id] {
		return fmt.Errorf("%w: %q", model.ErrIncorrectModel, id)
	}
	if out == "" && dir == "" {
		out = appconfig.String(appConfig, "ARCHIVE_NAME", archive.DefaultName)
	}
	if workers <= 0 {
		workers = appconfig.Int(appConfig, "BATCH_WORKERS", 1)
	}

	images, err := readImages(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := segment.InitRuntime(appConfig.GetString("ONNX_LIB_PATH")); err != nil {
		return err
	}
	defer segment.DestroyRuntime()

	var weights segment.WeightsSource
	connCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if strg := storage.NewModelStorage(connCtx, appConfig, 5*time.Second); strg != nil {
		weights = strg
	}
	cancel()

	cache := sessioncache.New(segment.NewOnnxLoader(appconfig.String(appConfig, "MODEL_DIR", "./models"), weights))
	defer func() {
		if err := cache.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "failed to close model sessions:", err)
		}
	}()
	runner := batch.NewRunner(cache, imageproc.NewProcessor(appconfig.Duration(appConfig, "ITEM_TIMEOUT", 0)), workers)

	store, report, err := runner.Run(ctx, images, model.BatchOptions{Model: id, AlphaMatting: alpha}, func(done float64) {
		fmt.Fprintf(os.Stderr, "\rprocessing: %3.0f%%", done*100)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d image(s)\n", store.Len())
	for _, f := range report {
		fmt.Printf("  failed %s: %s\n", f.Item, f.Kind)
	}

	if err := writeOutputs(store, out, dir); err != nil {
		return err
	}
	return nil
}

func readImages(paths []string) ([]model.SourceImage, error) {
	images := make([]model.SourceImage, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", p, err)
		}
		images = append(images, model.SourceImage{Filename: filepath.Base(p), Data: data})
	}
	return images, nil
}

func writeOutputs(store *results.Store, out, dir string) error {
	if store.Len() == 0 {
		return nil
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
		var writeErr error
		store.Range(func(res *model.ProcessedResult) bool {
			path := filepath.Join(dir, archive.EntryName(res.Filename))
			if err := os.WriteFile(path, res.Payload, 0o644); err != nil {
				writeErr = fmt.Errorf("failed to write %q: %w", path, err)
				return false
			}
			return true
		})
		if writeErr != nil {
			return writeErr
		}
		fmt.Printf("Results written to %s\n", dir)
	}

	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create archive: %w", err)
		}
		if err := archive.Export(f, store); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close archive: %w", err)
		}
		fmt.Printf("Archive written to %s\n", out)
	}
	return nil
}
