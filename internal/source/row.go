// Package source supplies raw, loosely-typed catalog rows to the pipeline.
package source

import "strings"

// Kind identifies one of the four catalog entity types
type Kind string

const (
	KindGenre  Kind = "genre"
	KindArtist Kind = "artist"
	KindAlbum  Kind = "album"
	KindTrack  Kind = "track"
)

// Kinds lists entity types in load order (parents first)
var Kinds = []Kind{KindGenre, KindArtist, KindAlbum, KindTrack}

// Field names, in normalized form (see NormalizeField)
const (
	FieldName        = "name"
	FieldBirthDate   = "birthdate"
	FieldGenreName   = "genrename"
	FieldTitle       = "title"
	FieldReleaseDate = "releasedate"
	FieldArtistName  = "artistname"
	FieldDuration    = "duration"
	FieldAlbumTitle  = "albumtitle"
)

// Schema declares the fields of a raw row for one entity type
type Schema struct {
	Kind     Kind
	File     string   // CSV file name in a source directory
	Fields   []string // all known fields
	Required []string // fields that must be non-empty after trimming
}

// Schemas holds the field layout of each entity type
var Schemas = map[Kind]Schema{
	KindGenre: {
		Kind:     KindGenre,
		File:     "genres.csv",
		Fields:   []string{FieldName},
		Required: []string{FieldName},
	},
	KindArtist: {
		Kind:     KindArtist,
		File:     "artists.csv",
		Fields:   []string{FieldName, FieldBirthDate, FieldGenreName},
		Required: []string{FieldName},
	},
	KindAlbum: {
		Kind:     KindAlbum,
		File:     "albums.csv",
		Fields:   []string{FieldTitle, FieldReleaseDate, FieldArtistName},
		Required: []string{FieldTitle, FieldArtistName},
	},
	KindTrack: {
		Kind:     KindTrack,
		File:     "tracks.csv",
		Fields:   []string{FieldTitle, FieldDuration, FieldAlbumTitle},
		Required: []string{FieldTitle, FieldAlbumTitle},
	},
}

// Row is one raw input record. A nil value means the field is absent.
type Row struct {
	Line   int // 1-based position in its source, for diagnostics
	Fields map[string]*string
}

// Get returns the raw value of field, or nil if absent
func (r Row) Get(field string) *string {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[NormalizeField(field)]
}

// NewRow builds a row from field/value pairs. Empty values are kept as
// empty strings; use a nil map entry for an absent field.
func NewRow(line int, pairs map[string]string) Row {
	fields := make(map[string]*string, len(pairs))
	for k, v := range pairs {
		v := v
		fields[NormalizeField(k)] = &v
	}
	return Row{Line: line, Fields: fields}
}

// NormalizeField folds a column header to its canonical field name:
// "BirthDate", "birth_date" and "Birth Date" all become "birthdate".
func NormalizeField(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch r {
		case '_', '-', ' ', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Batch is the complete raw input of one run
type Batch struct {
	Genres  []Row
	Artists []Row
	Albums  []Row
	Tracks  []Row
}

// Rows returns the rows of one entity type
func (b *Batch) Rows(kind Kind) []Row {
	switch kind {
	case KindGenre:
		return b.Genres
	case KindArtist:
		return b.Artists
	case KindAlbum:
		return b.Albums
	case KindTrack:
		return b.Tracks
	}
	return nil
}

// Append adds a row of the given entity type
func (b *Batch) Append(kind Kind, row Row) {
	switch kind {
	case KindGenre:
		b.Genres = append(b.Genres, row)
	case KindArtist:
		b.Artists = append(b.Artists, row)
	case KindAlbum:
		b.Albums = append(b.Albums, row)
	case KindTrack:
		b.Tracks = append(b.Tracks, row)
	}
}

// Source produces a complete batch of raw rows
type Source interface {
	Read() (*Batch, error)
}
