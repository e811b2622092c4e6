package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("record not found")

// IDField is the key holding a record's server-assigned identifier.
const IDField = "id"

// Record is an arbitrary JSON object.
type Record map[string]interface{}

func (r Record) ID() string {
	id, _ := r[IDField].(string)
	return id
}

func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Store persists records of one collection (drafts or templates).
type Store interface {
	List(ctx context.Context) ([]Record, error)
	// Create assigns a fresh id, ignoring any id the caller sent.
	Create(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	// Update shallow-merges patch into the stored record; the id never changes.
	Update(ctx context.Context, id string, patch Record) (Record, error)
	// Delete succeeds whether or not the record exists.
	Delete(ctx context.Context, id string) error
	Name() string
}

func newRecord(rec Record) Record {
	out := rec.clone()
	out[IDField] = uuid.New().String()
	return out
}

func merge(existing, patch Record) Record {
	out := existing.clone()
	for k, v := range patch {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}

func notFound(name, id string) error {
	return fmt.Errorf("%s %q: %w", name, id, ErrNotFound)
}
