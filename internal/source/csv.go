package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/franz/catalog-cleaner/internal/util"
)

// CSVDir reads genres.csv, artists.csv, albums.csv and tracks.csv from a directory
type CSVDir struct {
	Dir string
}

// NewCSVDir creates a CSV directory source
func NewCSVDir(dir string) *CSVDir {
	return &CSVDir{Dir: dir}
}

// Read parses all four files. Any file that cannot be parsed fails the whole
// read with util.ErrMalformedSource.
func (c *CSVDir) Read() (*Batch, error) {
	batch := &Batch{}

	for _, kind := range Kinds {
		schema := Schemas[kind]
		path := filepath.Join(c.Dir, schema.File)

		rows, err := readCSVFile(path, schema)
		if err != nil {
			return nil, err
		}

		util.DebugLog("Read %d %s rows from %s", len(rows), kind, path)

		for _, row := range rows {
			batch.Append(kind, row)
		}
	}

	return batch, nil
}

func readCSVFile(path string, schema Schema) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrMalformedSource, err)
	}
	defer f.Close()

	rows, err := ReadCSV(f, schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadCSV parses one CSV stream with a header row. Empty cells become
// absent fields; unknown columns are ignored.
func ReadCSV(r io.Reader, schema Schema) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0 // header length is enforced on every row

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header", util.ErrMalformedSource)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrMalformedSource, err)
	}

	columns := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, h := range header {
		columns[i] = NormalizeField(h)
		present[columns[i]] = true
	}

	for _, field := range schema.Required {
		if !present[field] {
			return nil, fmt.Errorf("%w: missing required column %q", util.ErrMalformedSource, field)
		}
	}

	known := make(map[string]bool, len(schema.Fields))
	for _, field := range schema.Fields {
		known[field] = true
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrMalformedSource, err)
		}

		line, _ := reader.FieldPos(0)
		row := Row{Line: line, Fields: make(map[string]*string, len(schema.Fields))}
		for i, value := range record {
			if !known[columns[i]] || value == "" {
				continue
			}
			v := value
			row.Fields[columns[i]] = &v
		}
		rows = append(rows, row)
	}

	return rows, nil
}
