package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/UnendingLoop/BackgroundRemover/internal/appconfig"
	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/UnendingLoop/BackgroundRemover/internal/segment"
	"github.com/UnendingLoop/BackgroundRemover/internal/storage"
	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List available models",
		Args:  cobra.ExactArgs(0),
		RunE:  ListModelsHandler,
	}

	modelsCmd.AddCommand(&cobra.Command{
		Use:   "push MODEL FILE",
		Short: "Upload model weights (.onnx) to the weights bucket",
		Args:  cobra.ExactArgs(2),
		RunE:  PushModelHandler,
	})

	return modelsCmd
}

func ListModelsHandler(cmd *cobra.Command, args []string) error {
	appConfig := loadConfig()
	def := model.ModelID(appconfig.String(appConfig, "DEFAULT_MODEL", string(model.DefaultModel)))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDEFAULT")
	for _, id := range model.ModelsOrder {
		mark := ""
		if id == def {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", id, model.ModelLabels[id], mark)
	}
	return w.Flush()
}

func PushModelHandler(cmd *cobra.Command, args []string) error {
	appConfig := loadConfig()

	id := model.ModelID(args[0])
	if !model.ModelsMap[id] {
		return fmt.Errorf("%w: %q", model.ErrIncorrectModel, id)
	}

	f, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	strg := storage.NewModelStorage(ctx, appConfig, 5*time.Second)
	if strg == nil {
		return errors.New("model storage is not configured (MINIO_ENDPOINT)")
	}

	if err := strg.Put(ctx, segment.WeightsKey(id), stat.Size(), "application/octet-stream", f); err != nil {
		return fmt.Errorf("failed to upload weights: %w", err)
	}
	fmt.Printf("Uploaded %s as %s\n", args[1], segment.WeightsKey(id))
	return nil
}
