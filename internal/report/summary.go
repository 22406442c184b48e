package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// EntityCounts holds the per-row outcomes of one entity type in a run
type EntityCounts struct {
	Kind       string `json:"kind"`
	Read       int    `json:"read"`
	Rejected   int    `json:"rejected"`   // missing required field
	Duplicates int    `json:"duplicates"` // lost a dedup tie-break
	Unresolved int    `json:"unresolved"` // required reference dangling, row dropped
	Unlinked   int    `json:"unlinked"`   // optional reference dangling, stored null
	Loaded     int    `json:"loaded"`
}

// Summary describes a finished run
type Summary struct {
	RunID        string
	Source       string
	DatabasePath string
	EventLogPath string
	StartedAt    time.Time
	Duration     time.Duration
	Status       string
	Stage        string
	Error        string
	Entities     []EntityCounts
}

// Total adds up the counts of every entity type
func (s *Summary) Total() EntityCounts {
	total := EntityCounts{Kind: "total"}
	for _, e := range s.Entities {
		total.Read += e.Read
		total.Rejected += e.Rejected
		total.Duplicates += e.Duplicates
		total.Unresolved += e.Unresolved
		total.Unlinked += e.Unlinked
		total.Loaded += e.Loaded
	}
	return total
}

// Markdown renders the summary as a Markdown document
func (s *Summary) Markdown() string {
	var md strings.Builder

	md.WriteString("# Catalog Cleaner - Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Run:** `%s`\n\n", s.RunID))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", s.StartedAt.Format("2006-01-02 15:04:05")))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", s.Duration.Round(time.Millisecond)))

	if s.Source != "" {
		md.WriteString(fmt.Sprintf("**Source:** `%s`\n\n", s.Source))
	}
	if s.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", s.DatabasePath))
	}
	if s.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", s.EventLogPath))
	}

	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", s.Status))
	if s.Error != "" {
		md.WriteString(fmt.Sprintf("**Failed stage:** %s\n\n", s.Stage))
		md.WriteString(fmt.Sprintf("```\n%s\n```\n\n", s.Error))
	}

	md.WriteString("---\n\n")

	md.WriteString("## Entities\n\n")
	md.WriteString("| Entity | Read | Rejected | Duplicates | Unresolved | Unlinked | Loaded |\n")
	md.WriteString("|--------|-----:|---------:|-----------:|-----------:|---------:|-------:|\n")
	rows := append(append([]EntityCounts(nil), s.Entities...), s.Total())
	for _, e := range rows {
		md.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |\n",
			e.Kind,
			humanize.Comma(int64(e.Read)),
			humanize.Comma(int64(e.Rejected)),
			humanize.Comma(int64(e.Duplicates)),
			humanize.Comma(int64(e.Unresolved)),
			humanize.Comma(int64(e.Unlinked)),
			humanize.Comma(int64(e.Loaded))))
	}
	md.WriteString("\n")

	md.WriteString("- **Rejected:** missing a required name, title or reference\n")
	md.WriteString("- **Duplicates:** same trimmed name/title as an earlier row; the first row was kept\n")
	md.WriteString("- **Unresolved:** referenced artist/album was not loaded; row dropped\n")
	md.WriteString("- **Unlinked:** referenced genre was not loaded; artist loaded without genre\n")

	return md.String()
}

// WriteMarkdownReport writes the summary as Markdown to outputPath
func WriteMarkdownReport(s *Summary, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(s.Markdown()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
