package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	jsonFileName = "run-report.json"
	textFileName = "run-report.txt"
)

// Persist writes the report atomically into the provided directory: the full
// JSON document plus a one-line text summary. Finish and DeriveStatus are
// applied first if the caller has not done so.
func (r *RunReport) Persist(dir string) error {
	if r.End.IsZero() {
		r.Finish()
		r.DeriveStatus()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("ensure report directory: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, jsonFileName), mustJSON(r)); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, textFileName), []byte(r.Summary()+"\n"))
}

// WriteJSON writes the report as indented JSON to an arbitrary path,
// atomically.
func (r *RunReport) WriteJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("ensure report directory: %w", err)
	}
	return writeAtomic(path, mustJSON(r))
}

// JSON renders the report as indented JSON.
func (r *RunReport) JSON() []byte { return mustJSON(r) }

func mustJSON(r *RunReport) []byte {
	// The report contains only marshalable field types; a marshal error
	// would be a programming bug.
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		panic(fmt.Sprintf("report: marshal: %v", err))
	}
	return append(b, '\n')
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename report: %w", err)
	}
	return nil
}
