package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/face"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/vision"
)

type introspection struct {
	Provider string             `json:"provider"`
	Model    provider.ModelInfo `json:"model"`
	Spec     vision.ModelSpec   `json:"spec"`
}

var introspectCmd = &cobra.Command{
	Use:   "introspect",
	Short: "Show the configured model's shapes and the derived tensor layout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		embedder, err := face.NewEmbedder(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = embedder.Close() }()

		info, err := embedder.ModelInfo(cmd.Context())
		if err != nil {
			return fmt.Errorf("read model info: %w", err)
		}
		spec, err := vision.Introspect(info)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(introspection{
			Provider: cfg.EmbedderProvider,
			Model:    info,
			Spec:     spec,
		})
	},
}

func init() {
	rootCmd.AddCommand(introspectCmd)
}
