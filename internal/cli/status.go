package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/c0deZ3R0/go-migrate-kit/conflict"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show conflict counts per type and status",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		counts, err := store.CountByStatus(cmd.Context(), sessionGroup)
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no conflicts recorded")
			return nil
		}

		reg := conflict.NewDefaultRegistry()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CONFLICT TYPE\tSTATUS\tCOUNT")
		for _, c := range counts {
			name := c.TypeRef.String()
			if t, ok := reg.Lookup(c.TypeRef); ok {
				name = t.FriendlyName
			}
			fmt.Fprintf(w, "%s\t%s\t%d\n", name, conflict.Status(c.Status), c.Count)
		}
		return w.Flush()
	},
}
