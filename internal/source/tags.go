package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/franz/catalog-cleaner/internal/util"
)

// DefaultTagExtensions are the audio file types read by TagDir
var DefaultTagExtensions = []string{".mp3", ".flac", ".m4a", ".ogg"}

// TagDir derives raw rows from the tags of audio files under a directory
type TagDir struct {
	Root       string
	extensions map[string]bool

	// Skipped counts files whose tags could not be read
	Skipped int
}

// NewTagDir creates a tag source rooted at dir
func NewTagDir(dir string) *TagDir {
	exts := make(map[string]bool, len(DefaultTagExtensions))
	for _, ext := range DefaultTagExtensions {
		exts[ext] = true
	}
	return &TagDir{Root: dir, extensions: exts}
}

// Read walks the directory in lexical order. Files with unreadable tags are
// skipped; an unreadable root is util.ErrMalformedSource.
func (t *TagDir) Read() (*Batch, error) {
	info, err := os.Stat(t.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrMalformedSource, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", util.ErrMalformedSource, t.Root)
	}

	batch := &Batch{}
	line := 0

	err = filepath.WalkDir(t.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == t.Root {
				return err
			}
			util.WarnLog("Skipping %s: %v", path, err)
			return nil
		}
		if d.IsDir() || !t.extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		m, err := readTags(path)
		if err != nil {
			util.WarnLog("Skipping %s: %v", path, err)
			t.Skipped++
			return nil
		}

		line++
		genre, artist, album, track := RowsFromTags(m, line)
		batch.Append(KindGenre, genre)
		batch.Append(KindArtist, artist)
		batch.Append(KindAlbum, album)
		batch.Append(KindTrack, track)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrMalformedSource, err)
	}

	util.DebugLog("Read tags from %d files under %s (%d skipped)", line, t.Root, t.Skipped)
	return batch, nil
}

func readTags(path string) (tag.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}
	return m, nil
}

// RowsFromTags maps the tags of one audio file to one raw row per entity
// type. The album's artist is the album artist when tagged, else the artist.
func RowsFromTags(m tag.Metadata, line int) (genre, artist, album, track Row) {
	albumArtist := m.AlbumArtist()
	if strings.TrimSpace(albumArtist) == "" {
		albumArtist = m.Artist()
	}

	year := ""
	if m.Year() > 0 {
		year = strconv.Itoa(m.Year())
	}

	genre = tagRow(line, FieldName, m.Genre())
	artist = tagRow(line, FieldName, m.Artist(), FieldGenreName, m.Genre())
	album = tagRow(line, FieldTitle, m.Album(), FieldReleaseDate, year, FieldArtistName, albumArtist)
	track = tagRow(line, FieldTitle, m.Title(), FieldAlbumTitle, m.Album())
	return genre, artist, album, track
}

// tagRow builds a row from field/value pairs, leaving empty tags absent
func tagRow(line int, pairs ...string) Row {
	row := Row{Line: line, Fields: make(map[string]*string, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		v := pairs[i+1]
		row.Fields[pairs[i]] = &v
	}
	return row
}
