package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/weiihann/docbench/internal/mongotest"
	"github.com/weiihann/docbench/layout"
	"github.com/weiihann/docbench/record"
)

type fakeCollection struct {
	name    string
	dropped int
	batches [][]any
	// failOn makes the call with this batch index fail.
	failOn  int
	failErr error
}

func (f *fakeCollection) Name() string { return f.name }

func (f *fakeCollection) Drop(context.Context) error {
	f.dropped++
	f.batches = nil

	return nil
}

func (f *fakeCollection) InsertMany(_ context.Context, docs []any) (int, error) {
	if f.failErr != nil && len(f.batches) == f.failOn {
		return 0, f.failErr
	}

	f.batches = append(f.batches, docs)

	return len(docs), nil
}

func (f *fakeCollection) inserted() int {
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}

	return n
}

type fakeDatabase struct {
	colls map[string]*fakeCollection
}

func newFakeDatabase() *fakeDatabase {
	return &fakeDatabase{colls: make(map[string]*fakeCollection)}
}

func (f *fakeDatabase) Collection(name string) Collection {
	c, ok := f.colls[name]
	if !ok {
		c = &fakeCollection{name: name, failOn: -1}
		f.colls[name] = c
	}

	return c
}

func makeMessages(n int, senders ...string) []record.Record {
	out := make([]record.Record, n)
	for i := range out {
		out[i] = record.Record{
			"text":   fmt.Sprintf("message %d", i),
			"sender": senders[i%len(senders)],
		}
	}

	return out
}

func discard() *slog.Logger {
	return mongotest.Discard()
}

func TestInsertBatchesChunks(t *testing.T) {
	req := require.New(t)
	coll := &fakeCollection{name: "messages", failOn: -1}

	n, err := InsertBatches(context.Background(), coll, makeMessages(12, "a"), 5)
	req.NoError(err)
	req.Equal(12, n)
	req.Len(coll.batches, 3)
	req.Len(coll.batches[0], 5)
	req.Len(coll.batches[1], 5)
	req.Len(coll.batches[2], 2)
}

func TestInsertBatchesEmpty(t *testing.T) {
	coll := &fakeCollection{name: "messages", failOn: -1}

	n, err := InsertBatches(context.Background(), coll, nil, 5)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, coll.batches)
}

func TestInsertBatchesRejectsBadSize(t *testing.T) {
	coll := &fakeCollection{name: "messages", failOn: -1}

	_, err := InsertBatches(context.Background(), coll, makeMessages(1, "a"), 0)
	require.Error(t, err)
}

func TestInsertBatchesReportsFailingBatch(t *testing.T) {
	req := require.New(t)

	bwe := mongo.BulkWriteException{
		WriteErrors: []mongo.BulkWriteError{
			{WriteError: mongo.WriteError{Index: 1, Code: 11000, Message: "E11000 duplicate key"}},
		},
	}
	coll := &fakeCollection{name: "messages", failOn: 1, failErr: bwe}

	n, err := InsertBatches(context.Background(), coll, makeMessages(9, "a"), 4)
	req.Error(err)
	req.Equal(4, n, "first batch stays committed")

	var be *BatchError
	req.True(errors.As(err, &be))
	req.Equal("messages", be.Collection)
	req.Equal(1, be.Batch)
	req.Equal(4, be.Offset)
	req.Equal(4, be.Size)
	req.Equal(4, be.Committed)
	req.Equal([]WriteFailure{{Index: 1, Code: 11000, Message: "E11000 duplicate key"}}, be.Failures)
	req.Contains(be.Error(), "document 5: code 11000")

	var unwrapped mongo.BulkWriteException
	req.True(errors.As(err, &unwrapped))
}

func TestInsertBatchesPlainError(t *testing.T) {
	coll := &fakeCollection{name: "senders", failOn: 0, failErr: errors.New("connection reset")}

	_, err := InsertBatches(context.Background(), coll, makeMessages(3, "a"), 10)

	var be *BatchError
	require.True(t, errors.As(err, &be))
	require.Empty(t, be.Failures)
	require.Contains(t, err.Error(), "connection reset")
}

func TestEmbed(t *testing.T) {
	req := require.New(t)

	senders := []record.Record{
		{"sender_id": "a", "credit": int64(50)},
		{"sender_id": "b", "credit": int64(150)},
		{"credit": int64(1)},
	}
	messages := []record.Record{
		{"text": "one", "sender": "a"},
		{"text": "two", "sender": "ghost"},
		{"text": "three", "sender": "b"},
		{"text": "four"},
	}

	embedded, missing := Embed(messages, senders)
	req.Len(embedded, 4)
	req.Equal([]any{"ghost", nil}, missing)

	req.Equal(record.Record{"sender_id": "a", "credit": int64(50)}, embedded[0]["sender_info"])
	req.NotContains(embedded[1], "sender_info")
	req.Equal(int64(150), embedded[2]["sender_info"].(record.Record)["credit"])
	req.NotContains(embedded[3], "sender_info")

	// Inputs stay untouched and copies are independent.
	req.NotContains(messages[0], "sender_info")
	embedded[0]["sender_info"].(record.Record)["credit"] = int64(100)
	req.Equal(int64(50), senders[0]["credit"])
}

func TestEmbedDuplicateSenderLastWins(t *testing.T) {
	senders := []record.Record{
		{"sender_id": "a", "credit": int64(1)},
		{"sender_id": "a", "credit": int64(2)},
	}

	embedded, missing := Embed([]record.Record{{"sender": "a"}}, senders)
	require.Empty(t, missing)
	require.Equal(t, int64(2), embedded[0]["sender_info"].(record.Record)["credit"])
}

func TestLoadNormalized(t *testing.T) {
	req := require.New(t)
	db := newFakeDatabase()

	l, err := New(db, "MP2Norm", 2, discard())
	req.NoError(err)

	senders := []record.Record{{"sender_id": "a"}, {"sender_id": "b"}, {"sender_id": "c"}}
	summary, err := l.Load(context.Background(), layout.Normalized, makeMessages(5, "a", "b"), senders)
	req.NoError(err)

	req.Equal(layout.Normalized, summary.Layout)
	req.Len(summary.Collections, 2)
	req.Equal("messages", summary.Collections[0].Name)
	req.Equal(5, summary.Collections[0].Documents)
	req.Equal("senders", summary.Collections[1].Name)
	req.Equal(3, summary.Collections[1].Documents)

	req.Equal(1, db.colls["messages"].dropped)
	req.Equal(1, db.colls["senders"].dropped)
	req.Len(db.colls["messages"].batches, 3)
	req.Equal(5, db.colls["messages"].inserted())
}

func TestLoadEmbeddedWarnsOnMissingSender(t *testing.T) {
	req := require.New(t)
	db := newFakeDatabase()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	l, err := New(db, "MP2Embd", 10, logger)
	req.NoError(err)

	messages := []record.Record{
		{"text": "hi", "sender": "a"},
		{"text": "lost", "sender": "zed"},
	}
	summary, err := l.Load(context.Background(), layout.Embedded, messages,
		[]record.Record{{"sender_id": "a", "credit": int64(0)}})
	req.NoError(err)

	req.Len(summary.Collections, 1)
	req.Equal(2, summary.Collections[0].Documents)
	req.Equal([]any{"zed"}, summary.MissingSenders)
	req.NotContains(db.colls, "senders")
	req.Contains(logs.String(), "sender not found")
	req.Contains(logs.String(), "zed")

	docs := db.colls["messages"].batches[0]
	req.Contains(docs[0].(record.Record), "sender_info")
	req.NotContains(docs[1].(record.Record), "sender_info")
}

func TestLoadStopsOnBatchError(t *testing.T) {
	db := newFakeDatabase()
	db.Collection("messages").(*fakeCollection).failOn = 0
	db.Collection("messages").(*fakeCollection).failErr = errors.New("boom")

	l, err := New(db, "MP2Norm", 10, discard())
	require.NoError(t, err)

	_, err = l.Load(context.Background(), layout.Normalized, makeMessages(3, "a"), []record.Record{{"sender_id": "a"}})
	require.Error(t, err)

	var be *BatchError
	require.True(t, errors.As(err, &be))
	require.NotContains(t, db.colls, "senders", "senders never reached")
}

func TestLoadUnknownLayout(t *testing.T) {
	l, err := New(newFakeDatabase(), "x", 10, discard())
	require.NoError(t, err)

	_, err = l.Load(context.Background(), layout.Layout("flat"), nil, nil)
	require.Error(t, err)
}

func TestNewRejectsBadBatchSize(t *testing.T) {
	_, err := New(newFakeDatabase(), "x", 0, discard())
	require.Error(t, err)
}
