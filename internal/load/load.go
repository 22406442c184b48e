// Package load assigns surrogate ids and writes cleaned rows to the store.
//
// Tables are cleared children first (tracks, albums, artists, genres) and
// filled parents first (genres, artists, albums, tracks). Each table's
// reference index is sealed once the table is written, before the next
// table resolves against it.
package load

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/franz/catalog-cleaner/internal/report"
	"github.com/franz/catalog-cleaner/internal/resolve"
	"github.com/franz/catalog-cleaner/internal/source"
	"github.com/franz/catalog-cleaner/internal/store"
	"github.com/franz/catalog-cleaner/internal/util"
	"github.com/franz/catalog-cleaner/internal/validate"
	"github.com/schollz/progressbar/v3"
)

// Writer is the store surface the loader needs
type Writer interface {
	Clear(ctx context.Context) error
	InsertGenre(ctx context.Context, g *store.Genre) error
	InsertArtist(ctx context.Context, a *store.Artist) error
	InsertAlbum(ctx context.Context, a *store.Album) error
	InsertTrack(ctx context.Context, t *store.Track) error
}

// Input is the deduplicated rows of one run
type Input struct {
	Genres  []validate.Genre
	Artists []validate.Artist
	Albums  []validate.Album
	Tracks  []validate.Track
}

// Stats counts load outcomes of one entity type
type Stats struct {
	Loaded     int
	Unresolved int // required reference dangling, row skipped
	Unlinked   int // optional reference dangling, stored null
}

// Result holds the load outcome of a run
type Result struct {
	Stats map[source.Kind]*Stats
}

// Config holds loader configuration
type Config struct {
	Logger   *report.EventLogger
	Progress bool // draw a progress bar per table on stderr
}

// Loader writes one run's rows in dependency order
type Loader struct {
	logger   *report.EventLogger
	progress bool
}

// New creates a new Loader
func New(cfg *Config) *Loader {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Loader{
		logger:   cfg.Logger,
		progress: cfg.Progress,
	}
}

// Load clears the catalog and writes in. Only writer errors are returned;
// rows with unresolvable required references are skipped and counted.
func (l *Loader) Load(ctx context.Context, w Writer, in *Input) (*Result, error) {
	res := &Result{Stats: make(map[source.Kind]*Stats, len(source.Kinds))}
	for _, kind := range source.Kinds {
		res.Stats[kind] = &Stats{}
	}

	if err := w.Clear(ctx); err != nil {
		return nil, err
	}

	genres := resolve.NewIndex(source.KindGenre)
	if err := l.loadGenres(ctx, w, in.Genres, genres, res.Stats[source.KindGenre]); err != nil {
		return nil, err
	}

	artists := resolve.NewIndex(source.KindArtist)
	if err := l.loadArtists(ctx, w, in.Artists, genres, artists, res.Stats[source.KindArtist]); err != nil {
		return nil, err
	}

	albums := resolve.NewIndex(source.KindAlbum)
	if err := l.loadAlbums(ctx, w, in.Albums, artists, albums, res.Stats[source.KindAlbum]); err != nil {
		return nil, err
	}

	if err := l.loadTracks(ctx, w, in.Tracks, albums, res.Stats[source.KindTrack]); err != nil {
		return nil, err
	}

	return res, nil
}

func (l *Loader) loadGenres(ctx context.Context, w Writer, rows []validate.Genre, idx *resolve.Index, st *Stats) error {
	t := l.startTable(source.KindGenre, len(rows))
	defer t.finish(st)

	var nextID int64
	for _, g := range rows {
		nextID++
		if err := w.InsertGenre(ctx, &store.Genre{ID: nextID, Name: g.Name}); err != nil {
			return err
		}
		if err := idx.Add(g.Name, nextID); err != nil {
			return err
		}
		st.Loaded++
		t.step()
	}

	idx.Seal()
	return nil
}

func (l *Loader) loadArtists(ctx context.Context, w Writer, rows []validate.Artist, genres, idx *resolve.Index, st *Stats) error {
	t := l.startTable(source.KindArtist, len(rows))
	defer t.finish(st)

	var nextID int64
	for _, a := range rows {
		ref, err := resolve.Optional(genres, a.GenreName)
		if err != nil {
			return err
		}

		artist := &store.Artist{Name: a.Name, BirthDate: a.BirthDate}
		switch ref.Outcome {
		case resolve.Resolved:
			id := ref.ID
			artist.GenreID = &id
		case resolve.Dangling:
			st.Unlinked++
			l.logger.LogUnlinked(string(source.KindArtist), a.Line, a.Name, *a.GenreName)
		}

		nextID++
		artist.ID = nextID
		if err := w.InsertArtist(ctx, artist); err != nil {
			return err
		}
		if err := idx.Add(a.Name, nextID); err != nil {
			return err
		}
		st.Loaded++
		t.step()
	}

	idx.Seal()
	return nil
}

func (l *Loader) loadAlbums(ctx context.Context, w Writer, rows []validate.Album, artists, idx *resolve.Index, st *Stats) error {
	t := l.startTable(source.KindAlbum, len(rows))
	defer t.finish(st)

	var nextID int64
	for _, a := range rows {
		t.step()

		ref, err := resolve.Required(artists, a.ArtistName)
		if err != nil {
			return err
		}
		if !ref.Valid() {
			st.Unresolved++
			l.logger.LogUnresolved(string(source.KindAlbum), a.Line, a.Title, a.ArtistName)
			continue
		}

		nextID++
		album := &store.Album{ID: nextID, Title: a.Title, ReleaseDate: a.ReleaseDate, ArtistID: ref.ID}
		if err := w.InsertAlbum(ctx, album); err != nil {
			return err
		}
		if err := idx.Add(a.Title, nextID); err != nil {
			return err
		}
		st.Loaded++
	}

	idx.Seal()
	return nil
}

func (l *Loader) loadTracks(ctx context.Context, w Writer, rows []validate.Track, albums *resolve.Index, st *Stats) error {
	t := l.startTable(source.KindTrack, len(rows))
	defer t.finish(st)

	var nextID int64
	for _, tr := range rows {
		t.step()

		ref, err := resolve.Required(albums, tr.AlbumTitle)
		if err != nil {
			return err
		}
		if !ref.Valid() {
			st.Unresolved++
			l.logger.LogUnresolved(string(source.KindTrack), tr.Line, tr.Title, tr.AlbumTitle)
			continue
		}

		nextID++
		track := &store.Track{ID: nextID, Title: tr.Title, DurationSeconds: tr.DurationSeconds, AlbumID: ref.ID}
		if err := w.InsertTrack(ctx, track); err != nil {
			return err
		}
		st.Loaded++
	}

	return nil
}

// tableRun tracks progress and timing of one table load
type tableRun struct {
	kind   source.Kind
	start  time.Time
	bar    *progressbar.ProgressBar
	logger *report.EventLogger
}

func (l *Loader) startTable(kind source.Kind, total int) *tableRun {
	t := &tableRun{kind: kind, start: time.Now(), logger: l.logger}

	if l.progress && total > 0 {
		t.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(fmt.Sprintf("Loading %ss", kind)),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	return t
}

func (t *tableRun) step() {
	if t.bar != nil {
		t.bar.Add(1)
	}
}

func (t *tableRun) finish(st *Stats) {
	if t.bar != nil {
		t.bar.Finish()
	}

	elapsed := time.Since(t.start)
	t.logger.LogLoad(string(t.kind), st.Loaded, elapsed)

	if st.Unresolved > 0 {
		util.InfoLog("  %ss: %d loaded, %d dropped (unresolved reference)", t.kind, st.Loaded, st.Unresolved)
	} else {
		util.InfoLog("  %ss: %d loaded", t.kind, st.Loaded)
	}
}
