package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"testing"

	"github.com/franz/catalog-cleaner/internal/report"
	"github.com/franz/catalog-cleaner/internal/source"
	"github.com/franz/catalog-cleaner/internal/store"
	"github.com/franz/catalog-cleaner/internal/util"
	"github.com/franz/catalog-cleaner/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	batch *source.Batch
	err   error
}

func (s staticSource) Read() (*source.Batch, error) {
	return s.batch, s.err
}

func rows(pairs ...map[string]string) []source.Row {
	out := make([]source.Row, len(pairs))
	for i, p := range pairs {
		out[i] = source.NewRow(i+2, p)
	}
	return out
}

func openStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func runBatch(t *testing.T, st Store, batch *source.Batch) *Result {
	t.Helper()
	res, err := Run(context.Background(), &Config{
		Source:     staticSource{batch: batch},
		SourceName: "test",
		Store:      st,
		Validate:   &validate.Config{DurationUnit: validate.UnitMinutes},
	})
	require.NoError(t, err)
	return res
}

// tuples renders the catalog without surrogate ids
func tuples(t *testing.T, s *store.Store) []string {
	t.Helper()
	q := `
		SELECT 'genre|' || name FROM genres
		UNION ALL
		SELECT 'artist|' || a.name || '|' || COALESCE(a.birth_date, '') || '|' || COALESCE(g.name, '')
		FROM artists a LEFT JOIN genres g ON g.id = a.genre_id
		UNION ALL
		SELECT 'album|' || al.title || '|' || COALESCE(al.release_date, '') || '|' || ar.name
		FROM albums al JOIN artists ar ON ar.id = al.artist_id
		UNION ALL
		SELECT 'track|' || t.title || '|' || COALESCE(t.duration_seconds, '') || '|' || al.title
		FROM tracks t JOIN albums al ON al.id = t.album_id
	`
	r, err := s.DB().Query(q)
	require.NoError(t, err)
	defer r.Close()

	var out []string
	for r.Next() {
		var line string
		require.NoError(t, r.Scan(&line))
		out = append(out, line)
	}
	require.NoError(t, r.Err())
	sort.Strings(out)
	return out
}

func catalogBatch() *source.Batch {
	return &source.Batch{
		Genres: rows(
			map[string]string{"name": " Rock"},
			map[string]string{"name": "Rock "},
			map[string]string{"name": ""},
			map[string]string{"name": "Jazz"},
		),
		Artists: rows(
			map[string]string{"name": "A", "birth_date": "1970", "genre_name": "Rock"},
			map[string]string{"name": "A", "birth_date": "1980", "genre_name": "Rock"},
			map[string]string{"name": "B", "genre_name": "Polka"},
			map[string]string{"name": "  "},
		),
		Albums: rows(
			map[string]string{"title": "First", "release_date": "1999", "artist_name": "A"},
			map[string]string{"title": "Nobody's", "artist_name": "Ghost"},
			map[string]string{"title": "Second", "artist_name": "B"},
		),
		Tracks: rows(
			map[string]string{"title": "Intro", "duration": "2", "album_title": "First"},
			map[string]string{"title": "Intro", "duration": "n/a", "album_title": "First"},
			map[string]string{"title": "T1", "duration": "3", "album_title": "Ghost Album"},
			map[string]string{"title": "Outro", "duration": "4:05", "album_title": "Second"},
		),
	}
}

func TestRunEndToEnd(t *testing.T) {
	s, _ := openStore(t)

	res := runBatch(t, s, catalogBatch())
	assert.True(t, res.Succeeded())

	assert.Equal(t, []string{
		"album|First|1999|A",
		"album|Second||B",
		"artist|A|1970|Rock",
		"artist|B||",
		"genre|Jazz",
		"genre|Rock",
		"track|Intro|120|First",
		"track|Intro||First",
		"track|Outro|245|Second",
	}, tuples(t, s))

	assert.Equal(t, []report.EntityCounts{
		{Kind: "genre", Read: 4, Rejected: 1, Duplicates: 1, Loaded: 2},
		{Kind: "artist", Read: 4, Rejected: 1, Duplicates: 1, Unlinked: 1, Loaded: 2},
		{Kind: "album", Read: 3, Unresolved: 1, Loaded: 2},
		{Kind: "track", Read: 4, Unresolved: 1, Loaded: 3},
	}, res.Counts())

	require.NoError(t, s.CheckIntegrity())
}

func TestRunFirstSeenArtistWins(t *testing.T) {
	s, _ := openStore(t)

	runBatch(t, s, &source.Batch{
		Genres: rows(map[string]string{"Name": "Rock"}),
		Artists: rows(
			map[string]string{"Name": "A", "BirthDate": "1970", "GenreName": "Rock"},
			map[string]string{"Name": "A", "BirthDate": "1980", "GenreName": "Rock"},
		),
	})

	artists, err := s.GetAllArtists(context.Background())
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, "A", artists[0].Name)
	require.NotNil(t, artists[0].BirthDate)
	assert.Equal(t, "1970", *artists[0].BirthDate)

	genres, err := s.GetAllGenres(context.Background())
	require.NoError(t, err)
	require.NotNil(t, artists[0].GenreID)
	assert.Equal(t, genres[0].ID, *artists[0].GenreID)
}

func TestRunIdempotent(t *testing.T) {
	s, _ := openStore(t)

	runBatch(t, s, catalogBatch())
	first := tuples(t, s)

	runBatch(t, s, catalogBatch())
	assert.Equal(t, first, tuples(t, s))

	runs, err := s.GetRecentRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunReplacesPreviousContents(t *testing.T) {
	s, _ := openStore(t)

	runBatch(t, s, catalogBatch())
	runBatch(t, s, &source.Batch{Genres: rows(map[string]string{"name": "Blues"})})

	assert.Equal(t, []string{"genre|Blues"}, tuples(t, s))
}

func TestRunMalformedSourceKeepsStore(t *testing.T) {
	s, _ := openStore(t)
	runBatch(t, s, catalogBatch())
	before := tuples(t, s)

	res, err := Run(context.Background(), &Config{
		Source: staticSource{err: fmt.Errorf("tracks.csv: %w", util.ErrMalformedSource)},
		Store:  s,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrMalformedSource)
	assert.Equal(t, util.StageRead, util.FailedStage(err))
	assert.False(t, res.Succeeded())
	assert.Equal(t, before, tuples(t, s))

	last, err := s.GetLastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.RunFailed, last.Status)
	assert.Equal(t, "read", last.Stage)
}

func TestRunUnknownSourceErrorIsMalformed(t *testing.T) {
	s, _ := openStore(t)

	_, err := Run(context.Background(), &Config{
		Source: staticSource{err: errors.New("permission denied")},
		Store:  s,
	})
	assert.ErrorIs(t, err, util.ErrMalformedSource)
}

func TestRunStoreFailureRollsBack(t *testing.T) {
	s, _ := openStore(t)
	runBatch(t, s, catalogBatch())
	before := tuples(t, s)

	_, err := s.DB().Exec(`
		CREATE TRIGGER fail_track BEFORE INSERT ON tracks
		WHEN NEW.title = 'boom'
		BEGIN SELECT RAISE(ABORT, 'disk full'); END
	`)
	require.NoError(t, err)

	batch := catalogBatch()
	batch.Tracks = append(batch.Tracks, source.NewRow(99, map[string]string{"title": "boom", "album_title": "First"}))

	res, err := Run(context.Background(), &Config{Source: staticSource{batch: batch}, Store: s})
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrStoreUnavailable)
	assert.Equal(t, util.StageLoad, util.FailedStage(err))
	assert.Equal(t, "failed", res.Summary().Status)

	assert.Equal(t, before, tuples(t, s), "rebuild must be all-or-nothing")
}

func TestRunStoreUnreachable(t *testing.T) {
	s, path := openStore(t)
	runBatch(t, s, catalogBatch())
	before := tuples(t, s)
	require.NoError(t, s.Close())

	_, err := Run(context.Background(), &Config{Source: staticSource{batch: catalogBatch()}, Store: s})
	assert.ErrorIs(t, err, util.ErrStoreUnavailable)

	reopened, err := store.Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, before, tuples(t, reopened))
}

func TestRunRequiresSourceAndStore(t *testing.T) {
	res, err := Run(context.Background(), &Config{})
	assert.ErrorIs(t, err, util.ErrInvalidConfig)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.RunID)
}

func TestRunEventLog(t *testing.T) {
	s, _ := openStore(t)
	logger, err := report.NewEventLogger(t.TempDir(), report.LevelDebug)
	require.NoError(t, err)

	res, err := Run(context.Background(), &Config{
		Source: staticSource{batch: catalogBatch()},
		Store:  s,
		Logger: logger,
	})
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	summary := res.Summary()
	assert.Equal(t, store.RunSucceeded, summary.Status)
	assert.Equal(t, 9, summary.Total().Loaded)
	assert.FileExists(t, logger.Path())
}
