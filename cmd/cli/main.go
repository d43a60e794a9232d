// Package main (in cli-subfolder) provides the bgremove command-line driver for batch background removal
package main

import (
	"log"
	"os"

	"github.com/UnendingLoop/BackgroundRemover/internal/appconfig"
	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bgremove",
		Short:         "Remove image backgrounds with U2-Net models",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newRunCmd(), newModelsCmd())
	return rootCmd
}

// loadConfig - общий старт для всех команд: конфиг и логгер
func loadConfig() *config.Config {
	appConfig := appconfig.Load("./.env")

	zlog.InitConsole()
	if err := zlog.SetLevel(appconfig.String(appConfig, "LOG_LEVEL", "warn")); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	return appConfig
}
