// Command glimpse runs the recognition pipeline from the terminal: inspect a
// model, enroll images, recognize faces and manage the gallery.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/app"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/config"
)

const Version = "0.1.0"

var (
	envFile string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
	stack  *app.App
)

var rootCmd = &cobra.Command{
	Use:           "glimpse",
	Short:         "Face embedding pipeline and open-set gallery matcher",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stack != nil {
			if err := stack.Close(); err != nil {
				logger.Warn("close recognition stack", slog.Any("error", err))
			}
		}
	},
}

// openStack builds the full recognition stack on first use.
func openStack(ctx context.Context) (*app.App, error) {
	if stack != nil {
		return stack, nil
	}
	var err error
	stack, err = app.New(ctx, cfg, logger)
	return stack, err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline activity to stderr")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
