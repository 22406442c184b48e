// Package dedupe collapses validated rows to one row per dedup key.
//
// The first row seen for a key wins; later rows with the same key are
// discarded. Keys are the trimmed name or title, compared exactly. Artists
// and albums are keyed by name/title alone, so two different artists that
// share a name collapse into one. Tracks have no key and all survive.
package dedupe

import (
	"github.com/franz/catalog-cleaner/internal/source"
	"github.com/franz/catalog-cleaner/internal/validate"
)

// Duplicate records a discarded row and the row that won its key
type Duplicate struct {
	Kind       source.Kind
	Key        string
	Line       int
	WinnerLine int
}

// Result holds the survivors of one entity type and what was discarded
type Result[T any] struct {
	Kept       []T
	Duplicates []Duplicate
}

// By keeps the first row for every key returned by key, in input order
func By[T any](kind source.Kind, rows []T, key func(T) string, line func(T) int) Result[T] {
	winners := make(map[string]int, len(rows))
	res := Result[T]{Kept: make([]T, 0, len(rows))}

	for _, r := range rows {
		k := key(r)
		if winner, seen := winners[k]; seen {
			res.Duplicates = append(res.Duplicates, Duplicate{
				Kind:       kind,
				Key:        k,
				Line:       line(r),
				WinnerLine: winner,
			})
			continue
		}
		winners[k] = line(r)
		res.Kept = append(res.Kept, r)
	}

	return res
}

// Genres dedupes genres by name
func Genres(rows []validate.Genre) Result[validate.Genre] {
	return By(source.KindGenre, rows,
		func(g validate.Genre) string { return g.Name },
		func(g validate.Genre) int { return g.Line })
}

// Artists dedupes artists by name
func Artists(rows []validate.Artist) Result[validate.Artist] {
	return By(source.KindArtist, rows,
		func(a validate.Artist) string { return a.Name },
		func(a validate.Artist) int { return a.Line })
}

// Albums dedupes albums by title, across all artists
func Albums(rows []validate.Album) Result[validate.Album] {
	return By(source.KindAlbum, rows,
		func(a validate.Album) string { return a.Title },
		func(a validate.Album) int { return a.Line })
}

// Tracks returns tracks unchanged; duplicate titles on one album both survive
func Tracks(rows []validate.Track) Result[validate.Track] {
	return Result[validate.Track]{Kept: rows}
}
