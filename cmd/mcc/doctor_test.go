package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/catalog-cleaner/internal/source"
	"github.com/franz/catalog-cleaner/internal/store"
)

func TestCheckSQLite(t *testing.T) {
	result := checkSQLite()

	if result.error {
		t.Errorf("SQLite check failed: %s", result.message)
	}

	if result.message == "" {
		t.Error("expected version information in message")
	}
}

func TestCheckDatabase_NonExistent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nonexistent.db")

	result := checkDatabase(dbPath)

	// Should not error - database will be created on first run
	if result.error {
		t.Errorf("non-existent database check should not error: %s", result.message)
	}

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Error("check should not create the database")
	}
}

func TestCheckDatabase_Existing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	err = db.Rebuild(context.Background(), func(w *store.Writer) error {
		if err := w.InsertGenre(context.Background(), &store.Genre{ID: 1, Name: "Jazz"}); err != nil {
			return err
		}
		if err := w.InsertArtist(context.Background(), &store.Artist{ID: 1, Name: "Miles Davis"}); err != nil {
			return err
		}
		if err := w.InsertAlbum(context.Background(), &store.Album{ID: 1, Title: "Kind of Blue", ArtistID: 1}); err != nil {
			return err
		}
		return w.InsertTrack(context.Background(), &store.Track{ID: 1, Title: "So What", AlbumID: 1})
	})
	if err != nil {
		t.Fatalf("failed to seed test database: %v", err)
	}
	db.Close()

	result := checkDatabase(dbPath)

	if result.error {
		t.Errorf("database check failed: %s", result.message)
	}

	if !strings.Contains(result.message, "1 tracks") {
		t.Errorf("expected track count in message, got %q", result.message)
	}
}

func TestCheckDatabase_Empty(t *testing.T) {
	result := checkDatabase("")

	if !result.warning {
		t.Error("expected warning for empty database path")
	}
}

func TestCheckDatabase_Directory(t *testing.T) {
	result := checkDatabase(t.TempDir())

	if !result.error {
		t.Error("expected error when database path is a directory")
	}
}

func writeSourceFiles(t *testing.T, dir string, kinds ...source.Kind) {
	t.Helper()
	for _, kind := range kinds {
		schema := source.Schemas[kind]
		header := strings.Join(schema.Fields, ",") + "\n"
		if err := os.WriteFile(filepath.Join(dir, schema.File), []byte(header), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", schema.File, err)
		}
	}
}

func TestCheckSourceDirectory_CSV(t *testing.T) {
	dir := t.TempDir()
	writeSourceFiles(t, dir, source.Kinds...)

	result := checkSourceDirectory(dir, "csv")

	if result.error {
		t.Errorf("source directory check failed: %s", result.message)
	}
}

func TestCheckSourceDirectory_MissingFile(t *testing.T) {
	dir := t.TempDir()
	writeSourceFiles(t, dir, source.KindGenre, source.KindArtist, source.KindAlbum)

	result := checkSourceDirectory(dir, "csv")

	if !result.error {
		t.Fatal("expected error when tracks.csv is missing")
	}
	if !strings.Contains(result.message, source.Schemas[source.KindTrack].File) {
		t.Errorf("expected missing file in message, got %q", result.message)
	}
}

func TestCheckSourceDirectory_NonExistent(t *testing.T) {
	result := checkSourceDirectory("/nonexistent/path/that/does/not/exist", "csv")

	if !result.error {
		t.Error("expected error for non-existent directory")
	}
}

func TestCheckSourceDirectory_File(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(filePath, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := checkSourceDirectory(filePath, "csv")

	if !result.error {
		t.Error("expected error when path is a file, not a directory")
	}
}

func TestCheckSourceDirectory_Tags(t *testing.T) {
	dir := t.TempDir()

	result := checkSourceDirectory(dir, "tags")
	if !result.warning {
		t.Error("expected warning for a directory without audio files")
	}

	if err := os.MkdirAll(filepath.Join(dir, "album"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "album", "01.MP3"), []byte("not really audio"), 0644); err != nil {
		t.Fatal(err)
	}

	result = checkSourceDirectory(dir, "tags")
	if result.error || result.warning {
		t.Errorf("expected success with an audio file present, got %q", result.message)
	}
}

func TestCheckArtifactsDirectory_Create(t *testing.T) {
	newDir := filepath.Join(t.TempDir(), "artifacts")

	result := checkArtifactsDirectory(newDir)

	if result.error {
		t.Errorf("artifacts directory check failed: %s", result.message)
	}

	if _, err := os.Stat(newDir); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}

func TestCheckArtifactsDirectory_File(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(filePath, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := checkArtifactsDirectory(filePath)

	if !result.error {
		t.Error("expected error when path is a file, not a directory")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	result := checkDiskSpace(t.TempDir(), "test")

	if result.error {
		t.Errorf("disk space check failed: %s", result.message)
	}

	if result.message == "" {
		t.Error("expected message with disk space info")
	}
}

func TestCheckDiskSpace_NonExistent(t *testing.T) {
	result := checkDiskSpace("/nonexistent/path", "test")

	if !result.warning {
		t.Error("expected warning for non-existent path")
	}
}
