package load

import (
	"context"
	"errors"
	"testing"

	"github.com/franz/catalog-cleaner/internal/source"
	"github.com/franz/catalog-cleaner/internal/store"
	"github.com/franz/catalog-cleaner/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingWriter keeps inserted rows in memory and records call order
type recordingWriter struct {
	calls   []string
	genres  []*store.Genre
	artists []*store.Artist
	albums  []*store.Album
	tracks  []*store.Track

	failOn string
}

var errWrite = errors.New("disk full")

func (w *recordingWriter) record(call string) error {
	if w.failOn == call {
		return errWrite
	}
	if n := len(w.calls); n == 0 || w.calls[n-1] != call {
		w.calls = append(w.calls, call)
	}
	return nil
}

func (w *recordingWriter) Clear(ctx context.Context) error {
	return w.record("clear")
}

func (w *recordingWriter) InsertGenre(ctx context.Context, g *store.Genre) error {
	if err := w.record("genre"); err != nil {
		return err
	}
	w.genres = append(w.genres, g)
	return nil
}

func (w *recordingWriter) InsertArtist(ctx context.Context, a *store.Artist) error {
	if err := w.record("artist"); err != nil {
		return err
	}
	w.artists = append(w.artists, a)
	return nil
}

func (w *recordingWriter) InsertAlbum(ctx context.Context, a *store.Album) error {
	if err := w.record("album"); err != nil {
		return err
	}
	w.albums = append(w.albums, a)
	return nil
}

func (w *recordingWriter) InsertTrack(ctx context.Context, t *store.Track) error {
	if err := w.record("track"); err != nil {
		return err
	}
	w.tracks = append(w.tracks, t)
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(i int64) *int64   { return &i }

func sampleInput() *Input {
	return &Input{
		Genres: []validate.Genre{{Line: 2, Name: "Rock"}, {Line: 3, Name: "Jazz"}},
		Artists: []validate.Artist{
			{Line: 2, Name: "A", BirthDate: strPtr("1970"), GenreName: strPtr("Rock")},
			{Line: 3, Name: "B", GenreName: strPtr("Polka")},
			{Line: 4, Name: "C"},
		},
		Albums: []validate.Album{
			{Line: 2, Title: "First", ArtistName: "A"},
			{Line: 3, Title: "Lost", ArtistName: "Nobody"},
			{Line: 4, Title: "Second", ArtistName: "C"},
		},
		Tracks: []validate.Track{
			{Line: 2, Title: "T1", DurationSeconds: intPtr(180), AlbumTitle: "First"},
			{Line: 3, Title: "T1", AlbumTitle: "Ghost Album"},
			{Line: 4, Title: "T2", AlbumTitle: "Second"},
			{Line: 5, Title: "T2", AlbumTitle: "Second"},
		},
	}
}

func TestLoadOrderAndIDs(t *testing.T) {
	w := &recordingWriter{}

	res, err := New(nil).Load(context.Background(), w, sampleInput())
	require.NoError(t, err)

	assert.Equal(t, []string{"clear", "genre", "artist", "album", "track"}, w.calls)

	require.Len(t, w.genres, 2)
	assert.Equal(t, int64(1), w.genres[0].ID)
	assert.Equal(t, int64(2), w.genres[1].ID)

	require.Len(t, w.artists, 3)
	require.NotNil(t, w.artists[0].GenreID)
	assert.Equal(t, int64(1), *w.artists[0].GenreID)
	assert.Nil(t, w.artists[1].GenreID, "dangling optional genre stored as null")
	assert.Nil(t, w.artists[2].GenreID)

	require.Len(t, w.albums, 2)
	assert.Equal(t, "Second", w.albums[1].Title)
	assert.Equal(t, int64(2), w.albums[1].ID, "ids stay dense when rows are skipped")
	assert.Equal(t, int64(3), w.albums[1].ArtistID)

	require.Len(t, w.tracks, 3)
	assert.Equal(t, int64(1), w.tracks[0].AlbumID)
	assert.Equal(t, int64(180), *w.tracks[0].DurationSeconds)
	assert.Equal(t, int64(2), w.tracks[1].AlbumID)
	assert.Equal(t, int64(2), w.tracks[2].AlbumID)

	assert.Equal(t, Stats{Loaded: 2}, *res.Stats[source.KindGenre])
	assert.Equal(t, Stats{Loaded: 3, Unlinked: 1}, *res.Stats[source.KindArtist])
	assert.Equal(t, Stats{Loaded: 2, Unresolved: 1}, *res.Stats[source.KindAlbum])
	assert.Equal(t, Stats{Loaded: 3, Unresolved: 1}, *res.Stats[source.KindTrack])
}

func TestLoadTrackOfDroppedAlbum(t *testing.T) {
	in := &Input{
		Artists: []validate.Artist{{Line: 2, Name: "A"}},
		Albums:  []validate.Album{{Line: 2, Title: "Orphaned", ArtistName: "Missing"}},
		Tracks:  []validate.Track{{Line: 2, Title: "T", AlbumTitle: "Orphaned"}},
	}
	w := &recordingWriter{}

	res, err := New(nil).Load(context.Background(), w, in)
	require.NoError(t, err)

	assert.Empty(t, w.albums)
	assert.Empty(t, w.tracks)
	assert.Equal(t, 1, res.Stats[source.KindTrack].Unresolved)
}

func TestLoadStopsOnWriterError(t *testing.T) {
	for _, failOn := range []string{"clear", "genre", "artist", "album", "track"} {
		t.Run(failOn, func(t *testing.T) {
			w := &recordingWriter{failOn: failOn}

			res, err := New(nil).Load(context.Background(), w, sampleInput())
			assert.ErrorIs(t, err, errWrite)
			assert.Nil(t, res)
		})
	}
}

func TestLoadEmptyInput(t *testing.T) {
	w := &recordingWriter{}

	res, err := New(nil).Load(context.Background(), w, &Input{})
	require.NoError(t, err)

	assert.Equal(t, []string{"clear"}, w.calls)
	for _, kind := range source.Kinds {
		assert.Equal(t, Stats{}, *res.Stats[kind], kind)
	}
}
