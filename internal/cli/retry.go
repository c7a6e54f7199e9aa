package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c0deZ3R0/go-migrate-kit/conflict"
	"github.com/c0deZ3R0/go-migrate-kit/retry"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-attempt conflicts scheduled for retry",
	Long: `Re-runs every conflict in ScheduledForRetry status through its type's
persisted rules. Transient storage failures are retried with exponential
backoff; the retry budget comes from the matching rule's NumberOfRetries
field ("Infinite" removes the bound).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		reg := conflict.NewDefaultRegistry()
		mgr, err := conflict.NewManager(reg, store, conflict.WithSessionGroup(sessionGroup))
		if err != nil {
			return err
		}

		recs, err := store.ListConflictsByStatus(cmd.Context(), sessionGroup, int(conflict.StatusScheduledForRetry))
		if err != nil {
			return err
		}

		resolved, rescheduled := 0, 0
		for _, rec := range recs {
			t, ok := reg.Lookup(rec.TypeRef)
			if !ok {
				continue
			}
			rules, err := mgr.GetPersistedRules(cmd.Context(), t)
			if err != nil {
				return err
			}
			for _, rule := range rules {
				var res conflict.ResolutionResult
				err := retry.Do(cmd.Context(), retryConfigFor(rule), func(ctx context.Context) error {
					r, err := mgr.ResolveExistingConflict(ctx, rec.ID, rule)
					if err != nil {
						return err
					}
					res = r
					return nil
				})
				if err != nil {
					return err
				}
				if res.Resolved {
					resolved++
					break
				}
				if res.Outcome == conflict.OutcomeScheduledForRetry {
					rescheduled++
					break
				}
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "resolved %d conflicts, %d rescheduled\n", resolved, rescheduled)
		return nil
	},
}

// retryConfigFor derives the backoff budget from a rule's NumberOfRetries
// field. The "Infinite" literal lifts the attempt bound.
func retryConfigFor(rule conflict.ResolutionRule) retry.Config {
	cfg := retry.DefaultConfig()
	raw, ok := rule.DataField(conflict.DataKeyNumberOfRetries)
	if !ok {
		return cfg
	}
	if strings.EqualFold(raw, conflict.RetryInfinite) {
		cfg.Infinite = true
		return cfg
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		cfg.MaxAttempts = n
	}
	return cfg
}
