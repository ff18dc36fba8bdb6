package storage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

const maxLine = 16 << 20

// ReadRecords reads every complete record of an NDJSON file. A last line
// without a trailing newline is an interrupted write and is skipped.
func ReadRecords(path string) ([]domain.Record, error) {
	var out []domain.Record
	err := EachRecord(path, func(r domain.Record) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

// EachRecord calls fn for each complete record in path. Lines that are not
// JSON objects fail with ErrMalformedRecord.
func EachRecord(path string, fn func(domain.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrMissingFile, path)
		}
		return err
	}
	defer f.Close()

	lineNo := 0
	return eachLine(f, func(line []byte) error {
		lineNo++
		if len(bytes.TrimSpace(line)) == 0 {
			return nil
		}
		var r domain.Record
		if err := r.UnmarshalJSON(line); err != nil {
			return fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}
		return fn(r)
	})
}

// eachLine calls fn with every newline-terminated line of r.
func eachLine(r io.Reader, fn func([]byte) error) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			// long line, fall back to accumulating
			buf := append([]byte(nil), line...)
			for errors.Is(err, bufio.ErrBufferFull) {
				line, err = br.ReadSlice('\n')
				buf = append(buf, line...)
				if len(buf) > maxLine {
					return fmt.Errorf("line exceeds %d bytes", maxLine)
				}
			}
			line = buf
		}
		if err == io.EOF {
			// whatever is left has no newline: a partial write
			return nil
		}
		if err != nil {
			return err
		}
		if ferr := fn(bytes.TrimSuffix(line, []byte{'\n'})); ferr != nil {
			return ferr
		}
	}
}

// firstLine returns the first complete line of path, or ok=false when the
// file holds no complete line.
func firstLine(path string) (line []byte, ok bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, fmt.Errorf("%w: %s", domain.ErrMissingFile, path)
		}
		return nil, false, err
	}
	defer f.Close()

	stop := errors.New("stop")
	err = eachLine(f, func(l []byte) error {
		if len(bytes.TrimSpace(l)) == 0 {
			return nil
		}
		line = append([]byte(nil), l...)
		ok = true
		return stop
	})
	if err != nil && !errors.Is(err, stop) {
		return nil, false, err
	}
	return line, ok, nil
}
