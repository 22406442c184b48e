// Package validate filters raw rows, dropping those that miss required fields,
// and coerces the surviving rows into typed records.
package validate

import (
	"github.com/franz/catalog-cleaner/internal/meta"
	"github.com/franz/catalog-cleaner/internal/source"
)

// Genre is a validated genre row
type Genre struct {
	Line int
	Name string
}

// Artist is a validated artist row. GenreName is the unresolved reference.
type Artist struct {
	Line      int
	Name      string
	BirthDate *string
	GenreName *string
}

// Album is a validated album row. ArtistName is the unresolved reference.
type Album struct {
	Line        int
	Title       string
	ReleaseDate *string
	ArtistName  string
}

// Track is a validated track row. AlbumTitle is the unresolved reference.
type Track struct {
	Line            int
	Title           string
	DurationSeconds *int64
	AlbumTitle      string
}

// Stats counts rows per entity type
type Stats struct {
	Seen     int
	Rejected int
}

// Rejection describes a row dropped for a missing required field
type Rejection struct {
	Kind  source.Kind
	Line  int
	Field string
}

// Config holds validator configuration
type Config struct {
	DurationUnit DurationUnit
	Cleaner      meta.Cleaner
}

// Validator applies the required-field rules of each entity type
type Validator struct {
	unit       DurationUnit
	cleaner    meta.Cleaner
	stats      map[source.Kind]*Stats
	rejections []Rejection
}

// New creates a new Validator
func New(cfg *Config) *Validator {
	if cfg == nil {
		cfg = &Config{}
	}
	unit := cfg.DurationUnit
	if unit == "" {
		unit = DefaultDurationUnit
	}

	stats := make(map[source.Kind]*Stats, len(source.Kinds))
	for _, kind := range source.Kinds {
		stats[kind] = &Stats{}
	}

	return &Validator{
		unit:    unit,
		cleaner: cfg.Cleaner,
		stats:   stats,
	}
}

// Accept reports whether row carries every required field of kind. The
// first missing field is returned for diagnostics.
func Accept(kind source.Kind, row source.Row) (bool, string) {
	for _, field := range source.Schemas[kind].Required {
		if meta.IsBlank(row.Get(field)) {
			return false, field
		}
	}
	return true, ""
}

// check counts row and records a rejection when it fails Accept
func (v *Validator) check(kind source.Kind, row source.Row) bool {
	st := v.stats[kind]
	st.Seen++

	ok, field := Accept(kind, row)
	if !ok {
		st.Rejected++
		v.rejections = append(v.rejections, Rejection{Kind: kind, Line: row.Line, Field: field})
	}
	return ok
}

func (v *Validator) text(row source.Row, field string) string {
	return v.cleaner.Clean(*row.Get(field))
}

// Genres validates raw genre rows, preserving input order
func (v *Validator) Genres(rows []source.Row) []Genre {
	var out []Genre
	for _, row := range rows {
		if !v.check(source.KindGenre, row) {
			continue
		}
		out = append(out, Genre{
			Line: row.Line,
			Name: v.text(row, source.FieldName),
		})
	}
	return out
}

// Artists validates raw artist rows, preserving input order
func (v *Validator) Artists(rows []source.Row) []Artist {
	var out []Artist
	for _, row := range rows {
		if !v.check(source.KindArtist, row) {
			continue
		}
		out = append(out, Artist{
			Line:      row.Line,
			Name:      v.text(row, source.FieldName),
			BirthDate: v.cleaner.Value(row.Get(source.FieldBirthDate)),
			GenreName: v.cleaner.Value(row.Get(source.FieldGenreName)),
		})
	}
	return out
}

// Albums validates raw album rows, preserving input order
func (v *Validator) Albums(rows []source.Row) []Album {
	var out []Album
	for _, row := range rows {
		if !v.check(source.KindAlbum, row) {
			continue
		}
		out = append(out, Album{
			Line:        row.Line,
			Title:       v.text(row, source.FieldTitle),
			ReleaseDate: v.cleaner.Value(row.Get(source.FieldReleaseDate)),
			ArtistName:  v.text(row, source.FieldArtistName),
		})
	}
	return out
}

// Tracks validates raw track rows, preserving input order. An unusable
// duration is dropped to nil; it never rejects the row.
func (v *Validator) Tracks(rows []source.Row) []Track {
	var out []Track
	for _, row := range rows {
		if !v.check(source.KindTrack, row) {
			continue
		}
		out = append(out, Track{
			Line:            row.Line,
			Title:           v.text(row, source.FieldTitle),
			DurationSeconds: ParseDuration(row.Get(source.FieldDuration), v.unit),
			AlbumTitle:      v.text(row, source.FieldAlbumTitle),
		})
	}
	return out
}

// Stats returns the counters for one entity type
func (v *Validator) Stats(kind source.Kind) Stats {
	if st, ok := v.stats[kind]; ok {
		return *st
	}
	return Stats{}
}

// Rejections returns every rejected row in the order seen
func (v *Validator) Rejections() []Rejection {
	return v.rejections
}
