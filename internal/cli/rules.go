package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/c0deZ3R0/go-migrate-kit/config"
	"github.com/c0deZ3R0/go-migrate-kit/conflict"
)

var importRulesCmd = &cobra.Command{
	Use:   "import-rules <file>",
	Short: "Validate and import a YAML resolution rule document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := config.Load(args[0])
		if err != nil {
			return err
		}
		reg := conflict.NewDefaultRegistry()
		if err := doc.Validate(reg); err != nil {
			return err
		}

		group := sessionGroup
		if group == "" {
			group = doc.SessionGroup
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		mgr, err := conflict.NewManager(reg, store, conflict.WithSessionGroup(group))
		if err != nil {
			return err
		}

		imported, resolved := 0, 0
		for i, entry := range doc.Rules {
			t, rule, err := entry.Resolve(reg)
			if err != nil {
				return fmt.Errorf("rule %d: %w", i, err)
			}
			if _, err := mgr.SaveRule(cmd.Context(), t, rule); err != nil {
				return fmt.Errorf("rule %d: %w", i, err)
			}
			imported++

			// Apply the rule to conflicts already in the backlog. Single-shot
			// rules are persisted deprecated and act only through this pass.
			n, err := mgr.ResolveConflictsByRule(cmd.Context(), t, rule)
			if err != nil {
				return fmt.Errorf("rule %d: %w", i, err)
			}
			resolved += n
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d rules, resolved %d backlogged conflicts\n", imported, resolved)
		return nil
	},
}

var exportOutput string

var exportRulesCmd = &cobra.Command{
	Use:   "export-rules",
	Short: "Export persisted resolution rules as a YAML document",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		recs, err := store.ListAllRules(cmd.Context())
		if err != nil {
			return err
		}
		exported := make([]config.ExportedRule, 0, len(recs))
		for _, rec := range recs {
			exported = append(exported, config.ExportedRule{
				RuleRef:     rec.RuleRef,
				TypeRef:     rec.TypeRef,
				ActionRef:   rec.ActionRef,
				Scope:       rec.Scope,
				Description: rec.Description,
				DataFields:  rec.DataFields,
			})
		}

		out, err := config.Export(sessionGroup, exported)
		if err != nil {
			return err
		}
		if exportOutput == "" {
			_, err = cmd.OutOrStdout().Write(out)
			return err
		}
		return os.WriteFile(exportOutput, out, 0o644)
	},
}

func init() {
	exportRulesCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write the document to a file instead of stdout")
}
