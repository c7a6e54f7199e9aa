package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteConfirmed bool

var deleteSessionGroupCmd = &cobra.Command{
	Use:   "delete-session-group",
	Short: "Delete all conflict records of a session group",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sessionGroup == "" {
			return fmt.Errorf("--session-group is required")
		}
		if !deleteConfirmed {
			return fmt.Errorf("refusing to delete session group %q without --yes", sessionGroup)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteSessionGroup(cmd.Context(), sessionGroup); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted conflict records of session group %s\n", sessionGroup)
		return nil
	},
}

func init() {
	deleteSessionGroupCmd.Flags().BoolVar(&deleteConfirmed, "yes", false, "confirm the deletion")
}
