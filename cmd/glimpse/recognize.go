package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	recognizeRotation int
	recognizeJSON     bool
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Match every face in an image against the gallery",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		a, err := openStack(cmd.Context())
		if err != nil {
			return err
		}

		faces, err := a.Service.Recognize(cmd.Context(), data, recognizeRotation)
		if err != nil {
			return err
		}

		if recognizeJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(faces)
		}

		if len(faces) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No faces detected.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "BOX\tLABEL\tSIMILARITY")
		for _, f := range faces {
			similarity := "-"
			if f.Result.Matched {
				similarity = fmt.Sprintf("%.3f", f.Result.Similarity)
			}
			fmt.Fprintf(w, "%d,%d %dx%d\t%s\t%s\n",
				f.Box.Left, f.Box.Top, f.Box.Width(), f.Box.Height(), f.Result.Label, similarity)
		}
		return w.Flush()
	},
}

func init() {
	recognizeCmd.Flags().IntVar(&recognizeRotation, "rotation", 0, "clockwise rotation that makes the image upright (0, 90, 180, 270)")
	recognizeCmd.Flags().BoolVar(&recognizeJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(recognizeCmd)
}
