package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

// Writer appends records to an NDJSON file, one line per Append call. Every
// line goes out in a single write, so a crash can only lose the record being
// written, never earlier ones.
type Writer struct {
	FilePath string
	// Sync fsyncs after each record.
	Sync bool

	f *os.File
}

// NewWriter opens (creating if needed) path for appending.
func NewWriter(path string) (*Writer, error) {
	w := &Writer{FilePath: path}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) open() error {
	if dir := filepath.Dir(w.FilePath); dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("%w: output directory %s: %v", domain.ErrConfiguration, dir, err)
		}
		if !info.IsDir() {
			return domain.Configf("output directory %s is not a directory", dir)
		}
	}
	if info, err := os.Stat(w.FilePath); err == nil && info.IsDir() {
		return domain.Configf("output path %s is a directory, need a file", w.FilePath)
	}
	f, err := os.OpenFile(w.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", w.FilePath, err)
	}
	w.f = f
	return nil
}

// Append writes record as one newline-terminated JSON line.
func (w *Writer) Append(record domain.Record) error {
	if w.f == nil {
		if err := w.open(); err != nil {
			return err
		}
	}
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	line = append(line, '\n')
	if _, err := w.f.Write(line); err != nil {
		return fmt.Errorf("append to %s: %w", w.FilePath, err)
	}
	if w.Sync {
		if err := w.f.Sync(); err != nil {
			return fmt.Errorf("sync %s: %w", w.FilePath, err)
		}
	}
	return nil
}

func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

// Append opens path, appends one record and closes it again.
func Append(path string, record domain.Record) error {
	w, err := NewWriter(path)
	if err != nil {
		return err
	}
	if err := w.Append(record); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
