package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/crosstalkco/crosstalk/pkg/archive"
)

// Driver implements archive.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of records
	mu sync.RWMutex

	// records is the in memory map of records keyed by conversation ID
	records map[string]*archive.Record
}

// NewDriver creates a new in-memory archive.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]*archive.Record),
	}
}

// Save stores a record. Saving the same conversation ID again replaces
// the earlier record.
func (d *Driver) Save(_ context.Context, record *archive.Record) error {
	if record == nil {
		return errors.New("cannot archive nil record")
	}
	if record.ID == "" {
		return errors.New("record requires a conversation ID")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.records[record.ID] = record
	return nil
}

// Get retrieves a record by conversation ID.
func (d *Driver) Get(_ context.Context, id string) (*archive.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	record, ok := d.records[id]
	if !ok {
		return nil, archive.NotFoundError{ID: id}
	}

	return record, nil
}

// List returns all records, most recently finished first.
func (d *Driver) List(_ context.Context) ([]*archive.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	records := make([]*archive.Record, 0, len(d.records))
	for _, record := range d.records {
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].FinishedAt.After(records[j].FinishedAt)
	})

	return records, nil
}

// Count returns the number of archived conversations.
func (d *Driver) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// Close is a no-op for the in-memory archive.
func (d *Driver) Close() error {
	return nil
}
