package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect and edit the enrolled gallery",
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled identities, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openStack(cmd.Context())
		if err != nil {
			return err
		}

		entries, err := a.Service.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Gallery is empty.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tLABEL\tENROLLED")
		fmt.Fprintln(w, "--\t-----\t--------")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.Label, e.EnrolledAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var galleryDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete entries and their captured images",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]uuid.UUID, 0, len(args))
		for _, arg := range args {
			id, err := uuid.Parse(arg)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", arg, err)
			}
			ids = append(ids, id)
		}

		a, err := openStack(cmd.Context())
		if err != nil {
			return err
		}

		for _, id := range ids {
			if err := a.Service.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", id)
		}
		return nil
	},
}

func init() {
	galleryCmd.AddCommand(galleryListCmd, galleryDeleteCmd)
	rootCmd.AddCommand(galleryCmd)
}
