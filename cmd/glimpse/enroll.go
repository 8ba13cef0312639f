package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/service"
)

var (
	enrollDir      string
	enrollRotation int
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
}

type enrollTask struct {
	Label string
	Path  string
}

var enrollCmd = &cobra.Command{
	Use:   "enroll [label image]",
	Short: "Enroll the first face of an image, or every image under --dir",
	Long: `Enroll one image under a label, or every image under --dir.

With --dir, files directly inside the directory are labelled by their name
without extension (alice.jpg -> alice) and files inside a subdirectory are
labelled by that subdirectory (bob/1.jpg -> bob).`,
	Args: func(cmd *cobra.Command, args []string) error {
		if enrollDir != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		var tasks []enrollTask
		if enrollDir != "" {
			var err error
			if tasks, err = collectEnrollTasks(enrollDir); err != nil {
				return err
			}
			if len(tasks) == 0 {
				return fmt.Errorf("no images found under %s", enrollDir)
			}
		} else {
			tasks = []enrollTask{{Label: args[0], Path: args[1]}}
		}

		a, err := openStack(cmd.Context())
		if err != nil {
			return err
		}

		bar := progressbar.NewOptions(len(tasks),
			progressbar.OptionSetDescription("enrolling"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		var failures []error
		for _, task := range tasks {
			if err := cmd.Context().Err(); err != nil {
				return err
			}

			entry, err := enrollOne(cmd.Context(), a.Service, task)
			if err != nil {
				failures = append(failures, fmt.Errorf("%s: %w", task.Path, err))
			} else {
				_ = bar.Clear()
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", entry.ID, entry.Label, task.Path)
			}
			_ = bar.Add(1)
		}
		_ = bar.Finish()

		if len(failures) > 0 {
			for _, f := range failures {
				fmt.Fprintln(cmd.ErrOrStderr(), "skipped", f)
			}
			return fmt.Errorf("%d of %d images failed to enroll", len(failures), len(tasks))
		}
		return nil
	},
}

func enrollOne(ctx context.Context, svc *service.RecognitionService, task enrollTask) (*domain.GalleryEntry, error) {
	data, err := os.ReadFile(task.Path)
	if err != nil {
		return nil, err
	}
	return svc.Enroll(ctx, service.EnrollRequest{
		Label:    task.Label,
		Image:    data,
		Rotation: enrollRotation,
	})
}

// collectEnrollTasks lists the images under root with the label each one
// is enrolled under.
func collectEnrollTasks(root string) ([]enrollTask, error) {
	var tasks []enrollTask
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && filepath.Dir(path) != root {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !imageExtensions[ext] {
			return nil
		}

		label := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		if parent := filepath.Dir(path); parent != root {
			label = filepath.Base(parent)
		}
		tasks = append(tasks, enrollTask{Label: label, Path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return tasks, nil
}

func init() {
	enrollCmd.Flags().StringVar(&enrollDir, "dir", "", "enroll every image under this directory")
	enrollCmd.Flags().IntVar(&enrollRotation, "rotation", 0, "clockwise rotation that makes the images upright (0, 90, 180, 270)")
	rootCmd.AddCommand(enrollCmd)
}
