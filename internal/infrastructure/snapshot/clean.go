package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// maxErrorPreview is how many characters of an error message the report shows
const maxErrorPreview = 80

// CleanOptions names the files of a cleaning pass
type CleanOptions struct {
	InputPath  string
	OutputPath string
	BackupPath string // empty skips the backup
}

// CleanStats reports what a cleaning pass did
type CleanStats struct {
	Total         int
	Valid         int
	Errored       int
	BackupCreated bool
}

// Clean drops error records from a snapshot. The report goes to w; the
// backup of the original is written only when the backup file does not exist yet.
func Clean(opts CleanOptions, w io.Writer) (*CleanStats, error) {
	fmt.Fprintf(w, "Loading %s...\n", opts.InputPath)
	records, err := Read(opts.InputPath)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "Total records before cleaning: %d\n", len(records))

	valid, errored := Split(records)
	stats := &CleanStats{Total: len(records), Valid: len(valid), Errored: len(errored)}

	fmt.Fprintf(w, "\nStatistics:\n")
	fmt.Fprintf(w, "  Valid records: %d\n", stats.Valid)
	fmt.Fprintf(w, "  Records with errors: %d\n", stats.Errored)

	if len(errored) > 0 {
		fmt.Fprintf(w, "\nIdentifiers with errors:\n")
		for _, r := range errored {
			fmt.Fprintf(w, "  - %s: %s\n", r.ID, preview(r.Error.Message, maxErrorPreview))
		}
	}

	if err := Write(opts.OutputPath, valid); err != nil {
		return stats, err
	}
	fmt.Fprintf(w, "\nCleaned file saved to %s (%d records)\n", opts.OutputPath, len(valid))

	if opts.BackupPath != "" {
		_, statErr := os.Stat(opts.BackupPath)
		switch {
		case errors.Is(statErr, os.ErrNotExist):
			if err := Write(opts.BackupPath, records); err != nil {
				return stats, err
			}
			stats.BackupCreated = true
			fmt.Fprintf(w, "Backup created: %s\n", opts.BackupPath)
		case statErr != nil:
			return stats, fmt.Errorf("failed to check backup file: %w", statErr)
		}
	}

	return stats, nil
}

// preview truncates s to n characters, marking the cut
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
