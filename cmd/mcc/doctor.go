package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/franz/catalog-cleaner/internal/source"
	"github.com/franz/catalog-cleaner/internal/store"
	"github.com/franz/catalog-cleaner/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure mcc can operate correctly.

This command checks:
- SQLite version
- Database accessibility, integrity and foreign keys
- Source directory contents (CSV files or audio files)
- Artifacts directory permissions
- Disk space availability

Use this command to troubleshoot issues before running mcc.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().String("src", "", "Source directory to check (optional)")
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== MCC Doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{checkSQLite()}

	dbPath := viper.GetString("db")
	results = append(results, checkDatabase(dbPath))

	srcPath, _ := cmd.Flags().GetString("src")
	if srcPath == "" {
		srcPath = viper.GetString("source")
	}
	if srcPath != "" {
		results = append(results, checkSourceDirectory(srcPath, GetConfigString("source_format", "csv")))
	}

	artifacts := GetConfigString("artifacts", "artifacts")
	results = append(results, checkArtifactsDirectory(artifacts))

	if dbPath != "" {
		results = append(results, checkDiskSpace(filepath.Dir(dbPath), "database"))
	}

	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed. Please resolve errors before running mcc.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("All checks passed! System is ready for mcc runs.")
	}

	return nil
}

// checkSQLite verifies SQLite version
func checkSQLite() checkResult {
	// modernc.org/sqlite is pure Go, so this only confirms the driver answers
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkDatabase verifies database file accessibility
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Database",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	var tracks int
	if counts, err := db.CountRows(context.Background()); err == nil {
		tracks = counts.Tracks
	}

	return checkResult{
		name:    "Database",
		message: fmt.Sprintf("%s (%s, %s tracks)", dbPath, humanize.Bytes(uint64(info.Size())), humanize.Comma(int64(tracks))),
	}
}

// checkSourceDirectory verifies the source directory holds input for the format
func checkSourceDirectory(path, format string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		return checkResult{
			name:    "Source directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Source directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	if format == "tags" {
		return checkTagDirectory(path)
	}

	var missing []string
	for _, kind := range source.Kinds {
		file := source.Schemas[kind].File
		if _, err := os.Stat(filepath.Join(path, file)); err != nil {
			missing = append(missing, file)
		}
	}
	if len(missing) > 0 {
		return checkResult{
			name:    "Source directory",
			error:   true,
			message: fmt.Sprintf("%s is missing %s", path, strings.Join(missing, ", ")),
		}
	}

	return checkResult{
		name:    "Source directory",
		message: fmt.Sprintf("%s (%d CSV files)", path, len(source.Kinds)),
	}
}

func checkTagDirectory(path string) checkResult {
	exts := make(map[string]bool, len(source.DefaultTagExtensions))
	for _, ext := range source.DefaultTagExtensions {
		exts[ext] = true
	}

	audio := 0
	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && exts[strings.ToLower(filepath.Ext(p))] {
			audio++
		}
		return nil
	})
	if err != nil {
		return checkResult{
			name:    "Source directory",
			error:   true,
			message: fmt.Sprintf("cannot read %s: %v", path, err),
		}
	}

	if audio == 0 {
		return checkResult{
			name:    "Source directory",
			warning: true,
			message: fmt.Sprintf("%s has no audio files", path),
		}
	}

	return checkResult{
		name:    "Source directory",
		message: fmt.Sprintf("%s (%s audio files)", path, humanize.Comma(int64(audio))),
	}
}

// checkArtifactsDirectory verifies the event log directory is writable
func checkArtifactsDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(path, 0755); err != nil {
				return checkResult{
					name:    "Artifacts directory",
					error:   true,
					message: fmt.Sprintf("cannot create %s: %v", path, err),
				}
			}
			return checkResult{
				name:    "Artifacts directory",
				message: fmt.Sprintf("%s (created)", path),
			}
		}
		return checkResult{
			name:    "Artifacts directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Artifacts directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	testFile := filepath.Join(path, ".mcc_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Artifacts directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    "Artifacts directory",
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    fmt.Sprintf("Disk space (%s)", label),
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)

	// A catalog rebuild needs little room; warn below 1 GB or above 95% used
	warning := false
	warningMsg := ""
	if availBytes < 1<<30 {
		warning = true
		warningMsg = " (low space!)"
	} else if totalBytes > 0 && float64(totalBytes-availBytes)/float64(totalBytes) > 0.95 {
		warning = true
		warningMsg = " (>95% used)"
	}

	return checkResult{
		name:    fmt.Sprintf("Disk space (%s)", label),
		warning: warning,
		message: fmt.Sprintf("%s available%s", humanize.IBytes(availBytes), warningMsg),
	}
}
