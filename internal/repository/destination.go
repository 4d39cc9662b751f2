package repository

import (
	"context"

	"github.com/syncline-io/approvalsync/internal/domain"
)

// Destination defines the write side of the sync: a tabular store with
// point lookup and insert-or-update of single rows. Deduplication is the
// caller's responsibility via the find-then-upsert sequence.
type Destination interface {
	// FindByKey performs a point lookup via a query filter. It returns
	// (nil, nil) when no row matches; an empty result set is absence, not an
	// error.
	FindByKey(ctx context.Context, tableID, keyField, keyValue string) (*domain.TableRecord, error)

	// Upsert updates the row identified by recordID, or inserts a new row
	// when recordID is empty. It returns the record identifier of the row
	// written.
	Upsert(ctx context.Context, tableID, recordID string, fields map[string]any) (string, error)

	// BatchUpsert partitions records into a create group (empty RecordID)
	// and an update group, issuing one bulk call per group. The groups fail
	// independently; a partial result is returned alongside the error.
	BatchUpsert(ctx context.Context, tableID string, records []domain.TableRecord) (*domain.BatchResult, error)
}
