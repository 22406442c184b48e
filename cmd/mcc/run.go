package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/catalog-cleaner/internal/meta"
	"github.com/franz/catalog-cleaner/internal/pipeline"
	"github.com/franz/catalog-cleaner/internal/report"
	"github.com/franz/catalog-cleaner/internal/source"
	"github.com/franz/catalog-cleaner/internal/store"
	"github.com/franz/catalog-cleaner/internal/util"
	"github.com/franz/catalog-cleaner/internal/validate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Rebuild the catalog from raw source data",
	Long: `Read the raw genre, artist, album and track records and rebuild the catalog.

The run has four phases:
1. Read: load raw rows from a CSV directory or from audio file tags
2. Validate: drop rows missing a required field and coerce durations
3. Dedupe: keep the first row per name or title
4. Load: resolve references and replace the catalog in one transaction

If any phase fails the catalog keeps its previous contents.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("source", "s", "", "raw source directory (required)")
	runCmd.Flags().String("source-format", "csv", "source format: csv or tags")
	runCmd.Flags().String("duration-unit", string(validate.DefaultDurationUnit), "unit of plain numeric durations: minutes or seconds")
	runCmd.Flags().Bool("normalize-unicode", false, "apply Unicode NFC to text before validation and dedup")
	runCmd.Flags().String("artifacts", "artifacts", "directory for event logs")
	runCmd.Flags().String("event-level", "", "minimum event log level: debug, info, warning, error")
	runCmd.Flags().String("report", "", "write a Markdown run summary to this path")
	runCmd.Flags().Bool("no-progress", false, "disable progress bars")

	viper.BindPFlag("source", runCmd.Flags().Lookup("source"))
	viper.BindPFlag("source_format", runCmd.Flags().Lookup("source-format"))
	viper.BindPFlag("duration_unit", runCmd.Flags().Lookup("duration-unit"))
	viper.BindPFlag("normalize_unicode", runCmd.Flags().Lookup("normalize-unicode"))
	viper.BindPFlag("artifacts", runCmd.Flags().Lookup("artifacts"))
	viper.BindPFlag("event_level", runCmd.Flags().Lookup("event-level"))
	viper.BindPFlag("report", runCmd.Flags().Lookup("report"))
	viper.BindPFlag("no_progress", runCmd.Flags().Lookup("no-progress"))
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srcPath := viper.GetString("source")
	if srcPath == "" {
		return fmt.Errorf("%w: source directory is required (use --source/-s or set in config)", util.ErrInvalidConfig)
	}

	unit, err := validate.ParseDurationUnit(viper.GetString("duration_unit"))
	if err != nil {
		return err
	}

	src, err := newSource(GetConfigString("source_format", "csv"), srcPath)
	if err != nil {
		return err
	}

	dbPath := GetConfigString("db", "catalog.db")
	util.InfoLog("Opening database: %s", dbPath)

	db, err := store.OpenWithOptions(dbPath, &store.OpenOptions{
		BusyTimeoutMs: GetConfigInt("busy_timeout_ms", 5000),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", util.ErrStoreUnavailable, err)
	}
	defer db.Close()

	logger, err := report.NewEventLogger(GetConfigString("artifacts", "artifacts"), eventLevel())
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		logger = report.NullLogger()
	}
	defer logger.Close()

	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}
	util.InfoLog("Source: %s", srcPath)

	result, runErr := pipeline.Run(ctx, &pipeline.Config{
		Source:     src,
		SourceName: srcPath,
		Store:      db,
		Logger:     logger,
		Validate: &validate.Config{
			DurationUnit: unit,
			Cleaner:      meta.Cleaner{NFC: GetConfigBool("normalize_unicode")},
		},
		Progress: util.ShowProgress() && !GetConfigBool("no_progress"),
	})

	if tags, ok := src.(*source.TagDir); ok && tags.Skipped > 0 {
		util.WarnLog("Skipped %d files with unreadable tags", tags.Skipped)
	}

	util.InfoLog("")
	printCounts(result)

	if reportPath := viper.GetString("report"); reportPath != "" {
		summary := result.Summary()
		summary.DatabasePath = dbPath
		summary.EventLogPath = logger.Path()
		if err := report.WriteMarkdownReport(summary, reportPath); err != nil {
			util.WarnLog("Failed to write report: %v", err)
		} else {
			util.InfoLog("Report: %s", reportPath)
		}
	}

	if runErr != nil {
		util.ErrorLog("Run %s failed in stage %q", result.RunID, util.FailedStage(runErr))
		return fmt.Errorf("run failed in stage %s: %w", util.FailedStage(runErr), runErr)
	}

	util.SuccessLog("Run %s completed in %v", result.RunID, result.Duration.Round(time.Millisecond))
	return nil
}

// newSource builds the raw source reader for the configured format
func newSource(format, dir string) (source.Source, error) {
	switch format {
	case "csv":
		return source.NewCSVDir(dir), nil
	case "tags":
		return source.NewTagDir(dir), nil
	default:
		return nil, fmt.Errorf("%w: unknown source format %q (want csv or tags)", util.ErrInvalidConfig, format)
	}
}

// eventLevel picks the event log threshold. An explicit event_level wins,
// otherwise it follows --verbose and --quiet.
func eventLevel() report.EventLevel {
	if lvl := viper.GetString("event_level"); lvl != "" {
		return report.ParseLevel(lvl)
	}
	switch {
	case viper.GetBool("quiet"):
		return report.LevelWarning
	case viper.GetBool("verbose"):
		return report.LevelDebug
	default:
		return report.LevelInfo
	}
}

func printCounts(result *pipeline.Result) {
	util.InfoLog("%-8s %8s %8s %10s %10s %8s %8s", "entity", "read", "rejected", "duplicates", "unresolved", "unlinked", "loaded")
	for _, c := range result.Counts() {
		util.InfoLog("%-8s %8s %8s %10s %10s %8s %8s", c.Kind,
			humanize.Comma(int64(c.Read)),
			humanize.Comma(int64(c.Rejected)),
			humanize.Comma(int64(c.Duplicates)),
			humanize.Comma(int64(c.Unresolved)),
			humanize.Comma(int64(c.Unlinked)),
			humanize.Comma(int64(c.Loaded)))
	}
}
