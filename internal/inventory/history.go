package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/ferrolab/inventory-core/internal/ulid"
)

// Recorder appends history entries for mutating operations. It shares the
// service's ULID generator so history rows sort into the same creation
// sequence as the entities they describe.
type Recorder struct {
	gen *ulid.Generator
	now func() time.Time
}

// NewRecorder creates a history recorder.
func NewRecorder(gen *ulid.Generator) *Recorder {
	return &Recorder{gen: gen, now: time.Now}
}

// Record appends one history entry through the given store, which must be
// bound to the same transaction as the mutation it describes.
func (r *Recorder) Record(ctx context.Context, store *Store, entityULID, operation, comment string) (*HistoryEntry, error) {
	id, err := r.gen.Next()
	if err != nil {
		return nil, fmt.Errorf("generating history ulid: %w", err)
	}

	entry := &HistoryEntry{
		ULID:       id,
		EntityULID: entityULID,
		Timestamp:  r.now().UTC(),
		Operation:  operation,
		Comment:    comment,
	}
	if err := store.InsertHistoryEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
