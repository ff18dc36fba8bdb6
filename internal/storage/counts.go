package storage

import (
	"fmt"
	"os"

	"github.com/qepting91/misinfo-collector/internal/session"
)

// WriteCounts writes a finished tally as a single JSON object, replacing any
// existing file. Key order follows entries.
func WriteCounts(path string, entries []session.Count) error {
	data, err := session.MarshalCounts(entries)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadCounts loads a tally written by WriteCounts, keeping key order.
func ReadCounts(path string) ([]session.Count, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return session.UnmarshalCounts(data)
}
