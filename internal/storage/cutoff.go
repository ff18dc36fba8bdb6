package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

// TimestampFields are the record fields a creation time is read from, in
// order of preference.
var TimestampFields = []string{"created_utc", "created_at"}

// ComputeCutoff returns the time from which new items should be fetched for
// the target whose earlier output lives in dir.
//
// The newest file (by modification time) is opened and the timestamp of its
// first record is the cutoff. Files with no complete line are skipped in
// favour of the next newest; if no file has history, min is returned.
func ComputeCutoff(dir string, min time.Time) (time.Time, error) {
	files, err := FilesByModTime(dir)
	if err != nil {
		return time.Time{}, err
	}
	for _, path := range files {
		t, ok, err := FirstRecordTime(path)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			return t, nil
		}
	}
	return min, nil
}

// FirstRecordTime parses the creation time of the first record in path.
// ok is false when the file has no complete line.
func FirstRecordTime(path string) (t time.Time, ok bool, err error) {
	line, ok, err := firstLine(path)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	if !gjson.ValidBytes(line) {
		return time.Time{}, false, fmt.Errorf("%w: first line of %s is not json", domain.ErrMalformedRecord, path)
	}
	rec := gjson.ParseBytes(line)
	if !rec.IsObject() {
		return time.Time{}, false, fmt.Errorf("%w: first line of %s is not an object", domain.ErrMalformedRecord, path)
	}
	item := domain.RawFromResult(rec)
	for _, field := range TimestampFields {
		ts, found := item.Get(field)
		if !found {
			continue
		}
		t, err := domain.ParseTimestamp(ts)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("%s: %w", path, err)
		}
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("%w: first record of %s has no creation timestamp", domain.ErrMalformedRecord, path)
}

// FilesByModTime lists the regular, non-hidden files of dir, most recently
// modified first. A missing dir is empty.
func FilesByModTime(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	type file struct {
		path string
		mod  time.Time
	}
	var files []file
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, file{path: filepath.Join(dir, e.Name()), mod: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].mod.Equal(files[j].mod) {
			return files[i].path > files[j].path
		}
		return files[i].mod.After(files[j].mod)
	})

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}
