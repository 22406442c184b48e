package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/catalog-cleaner/internal/store"
	"github.com/franz/catalog-cleaner/internal/util"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	RunE:  runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntP("limit", "n", 10, "number of runs to show")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	limit, _ := cmd.Flags().GetInt("limit")

	db, err := store.Open(GetConfigString("db", "catalog.db"))
	if err != nil {
		return fmt.Errorf("%w: %w", util.ErrStoreUnavailable, err)
	}
	defer db.Close()

	runs, err := db.GetRecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to read run history: %w", err)
	}
	if len(runs) == 0 {
		util.InfoLog("No runs recorded")
		return nil
	}

	for _, r := range runs {
		line := fmt.Sprintf("%s  %-9s  %s  %s", r.RunID, r.Status,
			r.StartedAt.Local().Format(time.DateTime), formatRunDuration(r))
		if r.Status == store.RunFailed {
			util.WarnLog("%s  stage=%s  %s", line, r.Stage, r.Error)
			continue
		}
		util.InfoLog("%s  %s", line, humanize.Time(r.StartedAt))
	}

	return nil
}

func formatRunDuration(r *store.Run) string {
	if r.CompletedAt.IsZero() {
		return "-"
	}
	return r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}
