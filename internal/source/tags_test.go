package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dhowden/tag"
	"github.com/franz/catalog-cleaner/internal/util"
)

// fakeTags implements the parts of tag.Metadata used by RowsFromTags
type fakeTags struct {
	tag.Metadata
	title, album, artist, albumArtist, genre string
	year                                     int
}

func (f fakeTags) Title() string       { return f.title }
func (f fakeTags) Album() string       { return f.album }
func (f fakeTags) Artist() string      { return f.artist }
func (f fakeTags) AlbumArtist() string { return f.albumArtist }
func (f fakeTags) Genre() string       { return f.genre }
func (f fakeTags) Year() int           { return f.year }

func TestRowsFromTags(t *testing.T) {
	m := fakeTags{
		title:  "So What",
		album:  "Kind of Blue",
		artist: "Miles Davis",
		genre:  "Jazz",
		year:   1959,
	}

	genre, artist, album, track := RowsFromTags(m, 7)

	check := func(row Row, field, want string) {
		t.Helper()
		v := row.Get(field)
		if v == nil || *v != want {
			t.Errorf("field %s: expected %q, got %v", field, want, v)
		}
	}

	check(genre, FieldName, "Jazz")
	check(artist, FieldName, "Miles Davis")
	check(artist, FieldGenreName, "Jazz")
	check(album, FieldTitle, "Kind of Blue")
	check(album, FieldReleaseDate, "1959")
	check(album, FieldArtistName, "Miles Davis") // falls back to artist
	check(track, FieldTitle, "So What")
	check(track, FieldAlbumTitle, "Kind of Blue")

	if track.Get(FieldDuration) != nil {
		t.Error("tags carry no duration")
	}
	if track.Line != 7 {
		t.Errorf("expected line 7, got %d", track.Line)
	}
}

func TestRowsFromTagsAlbumArtist(t *testing.T) {
	m := fakeTags{album: "Compilation", artist: "Someone", albumArtist: "Various Artists"}

	genre, _, album, _ := RowsFromTags(m, 1)

	if genre.Get(FieldName) != nil {
		t.Error("empty genre tag should be absent")
	}
	if v := album.Get(FieldArtistName); v == nil || *v != "Various Artists" {
		t.Errorf("expected album artist, got %v", v)
	}
	if album.Get(FieldReleaseDate) != nil {
		t.Error("zero year should be absent")
	}
}

func TestTagDirSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "broken.mp3"), []byte("not audio"), 0644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)

	src := NewTagDir(dir)
	batch, err := src.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if len(batch.Tracks) != 0 {
		t.Errorf("expected no rows, got %d", len(batch.Tracks))
	}
	if src.Skipped != 1 {
		t.Errorf("expected 1 skipped file, got %d", src.Skipped)
	}
}

func TestTagDirMissingRoot(t *testing.T) {
	_, err := NewTagDir(filepath.Join(t.TempDir(), "missing")).Read()
	if !errors.Is(err, util.ErrMalformedSource) {
		t.Errorf("expected ErrMalformedSource, got %v", err)
	}
}
