package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/catalog-cleaner/internal/store"
	"github.com/franz/catalog-cleaner/internal/util"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog table counts and the last run",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	dbPath := GetConfigString("db", "catalog.db")

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: database %s does not exist (run 'mcc run' first)", util.ErrNotFound, dbPath)
		}
		return fmt.Errorf("%w: %w", util.ErrStoreUnavailable, err)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("%w: %w", util.ErrStoreUnavailable, err)
	}
	defer db.Close()

	counts, err := db.CountRows(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", util.ErrStoreUnavailable, err)
	}

	util.InfoLog("Database: %s (%s)", dbPath, humanize.Bytes(uint64(info.Size())))
	util.InfoLog("  Genres:  %s", humanize.Comma(int64(counts.Genres)))
	util.InfoLog("  Artists: %s", humanize.Comma(int64(counts.Artists)))
	util.InfoLog("  Albums:  %s", humanize.Comma(int64(counts.Albums)))
	util.InfoLog("  Tracks:  %s", humanize.Comma(int64(counts.Tracks)))

	last, err := db.GetLastRun(ctx)
	if err != nil {
		return fmt.Errorf("failed to read run history: %w", err)
	}
	if last == nil {
		util.InfoLog("No runs recorded")
		return nil
	}

	util.InfoLog("")
	util.InfoLog("Last run: %s", last.RunID)
	util.InfoLog("  Status:  %s", last.Status)
	util.InfoLog("  Started: %s (%s)", last.StartedAt.Local().Format(time.RFC3339), humanize.Time(last.StartedAt))
	if last.Stage != "" {
		util.InfoLog("  Stage:   %s", last.Stage)
	}
	if last.Error != "" {
		util.WarnLog("  Error:   %s", last.Error)
	}

	return nil
}
