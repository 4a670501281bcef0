// Package loader recreates the benchmark collections from the input
// record sets, either normalized (messages and senders side by side) or
// embedded (senders copied into each message).
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/weiihann/docbench/layout"
	"github.com/weiihann/docbench/record"
)

// Collection is the part of a driver collection the loader needs.
type Collection interface {
	Name() string
	Drop(ctx context.Context) error
	InsertMany(ctx context.Context, docs []any) (int, error)
}

// Database hands out collections by name.
type Database interface {
	Collection(name string) Collection
}

type mongoDatabase struct {
	db *mongo.Database
}

// Mongo adapts a driver database to Database.
func Mongo(db *mongo.Database) Database {
	return mongoDatabase{db: db}
}

func (m mongoDatabase) Collection(name string) Collection {
	return mongoCollection{coll: m.db.Collection(name)}
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (m mongoCollection) Name() string {
	return m.coll.Name()
}

func (m mongoCollection) Drop(ctx context.Context) error {
	return m.coll.Drop(ctx)
}

func (m mongoCollection) InsertMany(ctx context.Context, docs []any) (int, error) {
	res, err := m.coll.InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}

	return len(res.InsertedIDs), nil
}

// CollectionSummary describes one recreated collection.
type CollectionSummary struct {
	Name      string        `json:"name"`
	Documents int           `json:"documents"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Summary is the outcome of a load.
type Summary struct {
	Layout         layout.Layout       `json:"layout"`
	Database       string              `json:"database"`
	Collections    []CollectionSummary `json:"collections"`
	MissingSenders []any               `json:"missing_senders,omitempty"`
}

// Elapsed is the total insert time across collections.
func (s *Summary) Elapsed() time.Duration {
	var total time.Duration
	for _, c := range s.Collections {
		total += c.Elapsed
	}

	return total
}

// Loader writes record sets into a database.
type Loader struct {
	db        Database
	name      string
	batchSize int
	logger    *slog.Logger
}

// New creates a Loader for the database called name.
func New(db Database, name string, batchSize int, logger *slog.Logger) (*Loader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	return &Loader{
		db:        db,
		name:      name,
		batchSize: batchSize,
		logger:    logger.With(slog.String("database", name)),
	}, nil
}

// Load drops and repopulates the collections of lay. Both record sets
// must already be fully read; nothing is dropped if Load is never
// reached.
func (l *Loader) Load(
	ctx context.Context,
	lay layout.Layout,
	messages, senders []record.Record,
) (*Summary, error) {
	summary := &Summary{Layout: lay, Database: l.name}

	switch lay {
	case layout.Normalized:
		for _, set := range []struct {
			name    string
			records []record.Record
		}{
			{layout.Messages, messages},
			{layout.Senders, senders},
		} {
			cs, err := l.recreate(ctx, set.name, set.records)
			if err != nil {
				return summary, err
			}

			summary.Collections = append(summary.Collections, cs)
		}

	case layout.Embedded:
		embedded, missing := Embed(messages, senders)
		for _, ref := range missing {
			l.logger.WarnContext(ctx, "sender not found, message left without sender_info",
				slog.Any("sender", ref),
			)
		}

		summary.MissingSenders = missing

		cs, err := l.recreate(ctx, layout.Messages, embedded)
		if err != nil {
			return summary, err
		}

		summary.Collections = append(summary.Collections, cs)

	default:
		return nil, fmt.Errorf("unknown layout %q", lay)
	}

	return summary, nil
}

func (l *Loader) recreate(
	ctx context.Context,
	name string,
	records []record.Record,
) (CollectionSummary, error) {
	coll := l.db.Collection(name)

	l.logger.InfoContext(ctx, "creating collection",
		slog.String("collection", name),
		slog.Int("documents", len(records)),
	)

	if err := coll.Drop(ctx); err != nil {
		return CollectionSummary{}, fmt.Errorf("drop %s: %w", name, err)
	}

	start := time.Now()

	n, err := InsertBatches(ctx, coll, records, l.batchSize)
	if err != nil {
		return CollectionSummary{}, err
	}

	elapsed := time.Since(start)

	l.logger.InfoContext(ctx, "collection created",
		slog.String("collection", name),
		slog.Int("inserted", n),
		slog.Duration("elapsed", elapsed),
	)

	return CollectionSummary{Name: name, Documents: n, Elapsed: elapsed}, nil
}
