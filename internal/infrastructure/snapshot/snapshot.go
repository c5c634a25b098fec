package snapshot

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/productlens/ingest/internal/domain"
)

// File writes run snapshots to a fixed path
type File struct {
	Path string
}

// Save writes records to the snapshot path
func (f *File) Save(records []domain.CanonicalRecord) error {
	if err := Write(f.Path, records); err != nil {
		return err
	}
	log.Printf("[SNAPSHOT] Wrote %d records to %s", len(records), f.Path)
	return nil
}

// Write stores records as an indented UTF-8 JSON array
func Write(path string, records []domain.CanonicalRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer file.Close()

	if records == nil {
		records = []domain.CanonicalRecord{}
	}

	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return file.Close()
}

// Read loads a snapshot written by Write
func Read(path string) ([]domain.CanonicalRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var records []domain.CanonicalRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return records, nil
}

// Split partitions records into those without and those with an error note
func Split(records []domain.CanonicalRecord) (valid, errored []domain.CanonicalRecord) {
	valid = make([]domain.CanonicalRecord, 0, len(records))
	for _, r := range records {
		if r.Failed() {
			errored = append(errored, r)
			continue
		}
		valid = append(valid, r)
	}
	return valid, errored
}
