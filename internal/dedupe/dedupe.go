// Package dedupe remembers which item ids have already been written so a
// resumed run does not write the items at its cutoff boundary twice.
package dedupe

import (
	"context"

	"github.com/qepting91/misinfo-collector/internal/domain"
	"github.com/qepting91/misinfo-collector/internal/storage"
)

// Set records ids that have been written.
type Set interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
	Close() error
}

// Memory is a process-local Set.
type Memory struct {
	ids map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{ids: make(map[string]struct{})}
}

func (m *Memory) Seen(_ context.Context, id string) (bool, error) {
	_, ok := m.ids[id]
	return ok, nil
}

func (m *Memory) Mark(_ context.Context, id string) error {
	m.ids[id] = struct{}{}
	return nil
}

func (m *Memory) Close() error { return nil }

// SeedFromFile marks the value of idField for every record in path.
func SeedFromFile(ctx context.Context, set Set, path, idField string) (int, error) {
	n := 0
	err := storage.EachRecord(path, func(r domain.Record) error {
		id := r.GetString(idField)
		if id == "" {
			return nil
		}
		n++
		return set.Mark(ctx, id)
	})
	return n, err
}
