// Package pipeline wires one batch run: read, validate, dedupe, then
// resolve and load inside a single store transaction.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/franz/catalog-cleaner/internal/dedupe"
	"github.com/franz/catalog-cleaner/internal/load"
	"github.com/franz/catalog-cleaner/internal/report"
	"github.com/franz/catalog-cleaner/internal/resolve"
	"github.com/franz/catalog-cleaner/internal/source"
	"github.com/franz/catalog-cleaner/internal/store"
	"github.com/franz/catalog-cleaner/internal/util"
	"github.com/franz/catalog-cleaner/internal/validate"
	"github.com/google/uuid"
)

// Store is the persistence surface a run needs
type Store interface {
	Rebuild(ctx context.Context, fn func(*store.Writer) error) error
	InsertRun(ctx context.Context, run *store.Run) error
}

// Config holds pipeline configuration
type Config struct {
	Source     source.Source
	SourceName string // recorded in run history
	Store      Store
	Logger     *report.EventLogger
	Validate   *validate.Config
	Progress   bool
}

// Result describes a finished or failed run
type Result struct {
	RunID     string
	Source    string
	StartedAt time.Time
	Duration  time.Duration
	Entities  map[source.Kind]*report.EntityCounts
	Err       error
}

// Succeeded reports whether the run committed
func (r *Result) Succeeded() bool {
	return r.Err == nil
}

// Counts returns per-entity counts in load order
func (r *Result) Counts() []report.EntityCounts {
	out := make([]report.EntityCounts, 0, len(source.Kinds))
	for _, kind := range source.Kinds {
		out = append(out, *r.Entities[kind])
	}
	return out
}

// Summary converts the result for reporting
func (r *Result) Summary() *report.Summary {
	s := &report.Summary{
		RunID:     r.RunID,
		Source:    r.Source,
		StartedAt: r.StartedAt,
		Duration:  r.Duration,
		Status:    store.RunSucceeded,
		Entities:  r.Counts(),
	}
	if r.Err != nil {
		s.Status = store.RunFailed
		s.Stage = string(util.FailedStage(r.Err))
		s.Error = r.Err.Error()
	}
	return s
}

// Run executes one full pipeline run. Per-row problems are counted, never
// returned. A source failure aborts before the store is touched; a store
// failure rolls the rebuild back, so either way the store keeps its
// previous contents. The returned Result is non-nil even on failure.
func Run(ctx context.Context, cfg *Config) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		Source:    cfg.SourceName,
		StartedAt: time.Now(),
		Entities:  make(map[source.Kind]*report.EntityCounts, len(source.Kinds)),
	}
	for _, kind := range source.Kinds {
		res.Entities[kind] = &report.EntityCounts{Kind: string(kind)}
	}

	logger := cfg.Logger
	logger.SetRunID(res.RunID)

	err := run(ctx, cfg, res)
	res.Duration = time.Since(res.StartedAt)
	res.Err = err

	status := store.RunSucceeded
	if err != nil {
		status = store.RunFailed
	}
	logger.LogRun(status, res.Duration, err)
	record(ctx, cfg.Store, res)

	return res, err
}

func run(ctx context.Context, cfg *Config, res *Result) error {
	logger := cfg.Logger

	if cfg.Source == nil || cfg.Store == nil {
		return util.WrapStage(util.StageRead, fmt.Errorf("%w: source and store are required", util.ErrInvalidConfig))
	}

	// Read
	util.InfoLog("=== Phase 1: Read ===")
	batch, err := cfg.Source.Read()
	if err != nil {
		if !errors.Is(err, util.ErrMalformedSource) {
			err = fmt.Errorf("%w: %w", util.ErrMalformedSource, err)
		}
		return util.WrapStage(util.StageRead, err)
	}
	for _, kind := range source.Kinds {
		n := len(batch.Rows(kind))
		res.Entities[kind].Read = n
		logger.LogRead(string(kind), n)
		util.InfoLog("  %ss: %d rows", kind, n)
	}

	if err := ctx.Err(); err != nil {
		return util.WrapStage(util.StageRead, err)
	}

	// Validate
	util.InfoLog("=== Phase 2: Validate ===")
	v := validate.New(cfg.Validate)
	genres := v.Genres(batch.Genres)
	artists := v.Artists(batch.Artists)
	albums := v.Albums(batch.Albums)
	tracks := v.Tracks(batch.Tracks)

	for _, r := range v.Rejections() {
		logger.LogReject(string(r.Kind), r.Line, r.Field)
	}
	for _, kind := range source.Kinds {
		st := v.Stats(kind)
		res.Entities[kind].Rejected = st.Rejected
		if st.Rejected > 0 {
			util.InfoLog("  %ss: %d rejected (missing required field)", kind, st.Rejected)
		}
	}

	// Dedupe
	util.InfoLog("=== Phase 3: Dedupe ===")
	g := dedupe.Genres(genres)
	ar := dedupe.Artists(artists)
	al := dedupe.Albums(albums)
	tr := dedupe.Tracks(tracks)

	dups := map[source.Kind][]dedupe.Duplicate{
		source.KindGenre:  g.Duplicates,
		source.KindArtist: ar.Duplicates,
		source.KindAlbum:  al.Duplicates,
		source.KindTrack:  tr.Duplicates,
	}
	for _, kind := range source.Kinds {
		for _, d := range dups[kind] {
			logger.LogDuplicate(string(d.Kind), d.Line, d.Key, d.WinnerLine)
		}
		res.Entities[kind].Duplicates = len(dups[kind])
		if n := len(dups[kind]); n > 0 {
			util.InfoLog("  %ss: %d duplicates discarded", kind, n)
		}
	}

	if err := ctx.Err(); err != nil {
		return util.WrapStage(util.StageDedupe, err)
	}

	// Resolve + load
	util.InfoLog("=== Phase 4: Load ===")
	in := &load.Input{Genres: g.Kept, Artists: ar.Kept, Albums: al.Kept, Tracks: tr.Kept}
	loader := load.New(&load.Config{Logger: logger, Progress: cfg.Progress})

	var loaded *load.Result
	err = cfg.Store.Rebuild(ctx, func(w *store.Writer) error {
		var err error
		loaded, err = loader.Load(ctx, w, in)
		return err
	})
	if err != nil {
		return util.WrapStage(util.StageLoad, classifyLoadError(err))
	}

	for _, kind := range source.Kinds {
		st := loaded.Stats[kind]
		e := res.Entities[kind]
		e.Loaded = st.Loaded
		e.Unresolved = st.Unresolved
		e.Unlinked = st.Unlinked
	}

	return nil
}

// classifyLoadError marks store failures as util.ErrStoreUnavailable.
// Resolver errors mean the load order was broken and are kept as they are.
func classifyLoadError(err error) error {
	switch {
	case errors.Is(err, resolve.ErrIndexNotSealed),
		errors.Is(err, resolve.ErrIndexSealed),
		errors.Is(err, resolve.ErrDuplicateKey),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", util.ErrStoreUnavailable, err)
}

// record writes the run to the history table. It is best effort: a store
// that just failed will usually fail here too.
func record(ctx context.Context, st Store, res *Result) {
	if st == nil || errors.Is(res.Err, util.ErrInvalidConfig) {
		return
	}

	counts, err := json.Marshal(res.Counts())
	if err != nil {
		util.WarnLog("Failed to encode run counts: %v", err)
	}

	summary := res.Summary()
	run := &store.Run{
		RunID:       res.RunID,
		Source:      res.Source,
		StartedAt:   res.StartedAt,
		CompletedAt: res.StartedAt.Add(res.Duration),
		Status:      summary.Status,
		Stage:       summary.Stage,
		Error:       summary.Error,
		CountsJSON:  string(counts),
	}

	if err := st.InsertRun(context.WithoutCancel(ctx), run); err != nil {
		util.WarnLog("Failed to record run %s: %v", res.RunID, err)
	}
}
