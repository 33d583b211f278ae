package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReadFile loads a corpus snapshot previously written by WriteFile (or by
// an earlier fetch run). The file is a JSON array of documents.
func ReadFile(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}

	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parsing corpus file %s: %w", path, err)
	}
	return docs, nil
}

// WriteFile saves a corpus snapshot as indented JSON so re-ingestion can
// skip the Sefaria fetch. The write goes through a temp file plus rename so
// a crash never leaves a truncated snapshot behind.
func WriteFile(path string, docs []Document) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding corpus: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating corpus directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("writing corpus file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing corpus file: %w", err)
	}
	return nil
}
