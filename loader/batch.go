package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/weiihann/docbench/record"
)

// DefaultBatchSize bounds the number of documents sent per InsertMany.
const DefaultBatchSize = 5000

// WriteFailure is one rejected document inside a failed batch.
type WriteFailure struct {
	Index   int    `json:"index"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// BatchError reports the batch that stopped a load. Batches before it
// are already committed and are not rolled back.
type BatchError struct {
	Collection string
	Batch      int
	Offset     int
	Size       int
	Committed  int
	Failures   []WriteFailure
	Err        error
}

func (e *BatchError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "insert into %s: batch %d (documents %d-%d, %d already committed): %v",
		e.Collection, e.Batch, e.Offset, e.Offset+e.Size-1, e.Committed, e.Err)

	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  document %d: code %d: %s", e.Offset+f.Index, f.Code, f.Message)
	}

	return b.String()
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// InsertBatches writes records to coll in chunks of size and returns how
// many were inserted. It stops at the first failing batch.
func InsertBatches(
	ctx context.Context,
	coll Collection,
	records []record.Record,
	size int,
) (int, error) {
	if size <= 0 {
		return 0, fmt.Errorf("batch size must be positive, got %d", size)
	}

	inserted := 0

	for i, batch := range lo.Chunk(records, size) {
		docs := lo.Map(batch, func(r record.Record, _ int) any {
			return r
		})

		n, err := coll.InsertMany(ctx, docs)
		if err != nil {
			return inserted, &BatchError{
				Collection: coll.Name(),
				Batch:      i,
				Offset:     i * size,
				Size:       len(batch),
				Committed:  inserted,
				Failures:   writeFailures(err),
				Err:        err,
			}
		}

		inserted += n
	}

	return inserted, nil
}

func writeFailures(err error) []WriteFailure {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return nil
	}

	return lo.Map(bwe.WriteErrors, func(we mongo.BulkWriteError, _ int) WriteFailure {
		return WriteFailure{
			Index:   we.Index,
			Code:    we.Code,
			Message: we.Message,
		}
	})
}
