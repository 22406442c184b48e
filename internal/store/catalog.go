package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/franz/catalog-cleaner/internal/util"
)

// Tables in child-to-parent order, the order they must be cleared in
var clearOrder = []string{"tracks", "albums", "artists", "genres"}

// Writer inserts catalog rows inside a rebuild transaction
type Writer struct {
	tx     *sql.Tx
	genre  *sql.Stmt
	artist *sql.Stmt
	album  *sql.Stmt
	track  *sql.Stmt
}

// Rebuild runs fn inside a single transaction. If fn or the commit fails,
// everything is rolled back and the store keeps its previous contents.
func (s *Store) Rebuild(ctx context.Context, fn func(*Writer) error) error {
	tx, err := util.RetryWithBackoff(ctx, nil, func() (*sql.Tx, error) {
		return s.db.BeginTx(ctx, nil)
	}, "begin rebuild")
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	w, err := newWriter(ctx, tx)
	if err != nil {
		return err
	}
	defer w.close()

	if err := fn(w); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebuild: %w", err)
	}

	return nil
}

func newWriter(ctx context.Context, tx *sql.Tx) (*Writer, error) {
	w := &Writer{tx: tx}

	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&w.genre, `INSERT INTO genres (id, name) VALUES (?, ?)`},
		{&w.artist, `INSERT INTO artists (id, name, birth_date, genre_id) VALUES (?, ?, ?, ?)`},
		{&w.album, `INSERT INTO albums (id, title, release_date, artist_id) VALUES (?, ?, ?, ?)`},
		{&w.track, `INSERT INTO tracks (id, title, duration_seconds, album_id) VALUES (?, ?, ?, ?)`},
	}

	for _, st := range stmts {
		stmt, err := tx.PrepareContext(ctx, st.query)
		if err != nil {
			w.close()
			return nil, fmt.Errorf("failed to prepare insert: %w", err)
		}
		*st.dst = stmt
	}

	return w, nil
}

func (w *Writer) close() {
	for _, stmt := range []*sql.Stmt{w.genre, w.artist, w.album, w.track} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

// Clear deletes every catalog row, children first
func (w *Writer) Clear(ctx context.Context) error {
	for _, table := range clearOrder {
		if _, err := w.tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// InsertGenre inserts a genre with its assigned id
func (w *Writer) InsertGenre(ctx context.Context, g *Genre) error {
	if _, err := w.genre.ExecContext(ctx, g.ID, g.Name); err != nil {
		return fmt.Errorf("failed to insert genre %q: %w", g.Name, err)
	}
	return nil
}

// InsertArtist inserts an artist with its assigned id
func (w *Writer) InsertArtist(ctx context.Context, a *Artist) error {
	if _, err := w.artist.ExecContext(ctx, a.ID, a.Name, a.BirthDate, a.GenreID); err != nil {
		return fmt.Errorf("failed to insert artist %q: %w", a.Name, err)
	}
	return nil
}

// InsertAlbum inserts an album with its assigned id
func (w *Writer) InsertAlbum(ctx context.Context, a *Album) error {
	if _, err := w.album.ExecContext(ctx, a.ID, a.Title, a.ReleaseDate, a.ArtistID); err != nil {
		return fmt.Errorf("failed to insert album %q: %w", a.Title, err)
	}
	return nil
}

// InsertTrack inserts a track with its assigned id
func (w *Writer) InsertTrack(ctx context.Context, t *Track) error {
	if _, err := w.track.ExecContext(ctx, t.ID, t.Title, t.DurationSeconds, t.AlbumID); err != nil {
		return fmt.Errorf("failed to insert track %q: %w", t.Title, err)
	}
	return nil
}

// Counts holds the number of rows per catalog table
type Counts struct {
	Genres  int
	Artists int
	Albums  int
	Tracks  int
}

// CountRows returns the row count of every catalog table
func (s *Store) CountRows(ctx context.Context) (*Counts, error) {
	c := &Counts{}
	targets := []struct {
		table string
		dst   *int
	}{
		{"genres", &c.Genres},
		{"artists", &c.Artists},
		{"albums", &c.Albums},
		{"tracks", &c.Tracks},
	}

	for _, t := range targets {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", t.table, err)
		}
	}

	return c, nil
}

// GetAllGenres returns all genres ordered by id
func (s *Store) GetAllGenres(ctx context.Context) ([]*Genre, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var genres []*Genre
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		genres = append(genres, &g)
	}

	return genres, rows.Err()
}

// GetAllArtists returns all artists ordered by id
func (s *Store) GetAllArtists(ctx context.Context) ([]*Artist, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, birth_date, genre_id FROM artists ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []*Artist
	for rows.Next() {
		var a Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.BirthDate, &a.GenreID); err != nil {
			return nil, err
		}
		artists = append(artists, &a)
	}

	return artists, rows.Err()
}

// GetAllAlbums returns all albums ordered by id
func (s *Store) GetAllAlbums(ctx context.Context) ([]*Album, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, release_date, artist_id FROM albums ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []*Album
	for rows.Next() {
		var a Album
		if err := rows.Scan(&a.ID, &a.Title, &a.ReleaseDate, &a.ArtistID); err != nil {
			return nil, err
		}
		albums = append(albums, &a)
	}

	return albums, rows.Err()
}

// GetAllTracks returns all tracks ordered by id
func (s *Store) GetAllTracks(ctx context.Context) ([]*Track, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, duration_seconds, album_id FROM tracks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []*Track
	for rows.Next() {
		var t Track
		if err := rows.Scan(&t.ID, &t.Title, &t.DurationSeconds, &t.AlbumID); err != nil {
			return nil, err
		}
		tracks = append(tracks, &t)
	}

	return tracks, rows.Err()
}
