// internal/source/file.go
package source

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ReadFile loads a bulk export file: a JSON array of repository objects.
// The whole document is decoded before any record is returned so that a
// malformed file is rejected before ingestion starts.
func ReadFile(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return records, nil
}

// Decode reads a JSON array of objects. Numbers are kept as json.Number so
// large counts are not rounded through float64. Null elements are skipped.
func Decode(r io.Reader) ([]map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("json: read first token: %w", err)
	}
	if tok != json.Delim('[') {
		return nil, fmt.Errorf("json: expected array, got %v", tok)
	}

	var records []map[string]any
	for dec.More() {
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("json: decode element %d: %w", len(records), err)
		}
		if raw == nil {
			continue
		}
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("json: element %d is not an object (got %T)", len(records), raw)
		}
		records = append(records, obj)
	}

	if end, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("json: read array end: %w", err)
	} else if end != json.Delim(']') {
		return nil, fmt.Errorf("json: expected array end ']', got %v", end)
	}
	return records, nil
}
