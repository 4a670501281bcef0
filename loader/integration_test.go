package loader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/weiihann/docbench/internal/mongotest"
	"github.com/weiihann/docbench/layout"
	"github.com/weiihann/docbench/record"
)

func TestLoadIntoMongo(t *testing.T) {
	client := mongotest.Start(t)
	ctx := context.Background()

	senders := []record.Record{
		{"sender_id": "alice", "credit": int64(50)},
		{"sender_id": "bob", "credit": int64(150)},
	}
	messages := []record.Record{
		{"text": "plants are green", "sender": "alice"},
		{"text": "hello", "sender": "alice"},
		{"text": "giant steps", "sender": "bob"},
		{"text": "who am i", "sender": "nobody"},
	}

	t.Run("normalized", func(t *testing.T) {
		req := require.New(t)
		db := client.Database("loader_norm")

		l, err := New(Mongo(db), db.Name(), 3, discard())
		req.NoError(err)

		// Loading twice must not accumulate documents.
		for range 2 {
			_, err = l.Load(ctx, layout.Normalized, messages, senders)
			req.NoError(err)
		}

		n, err := db.Collection(layout.Messages).CountDocuments(ctx, bson.D{})
		req.NoError(err)
		req.EqualValues(len(messages), n)

		n, err = db.Collection(layout.Senders).CountDocuments(ctx, bson.D{})
		req.NoError(err)
		req.EqualValues(len(senders), n)
	})

	t.Run("embedded", func(t *testing.T) {
		req := require.New(t)
		db := client.Database("loader_embd")

		l, err := New(Mongo(db), db.Name(), 3, discard())
		req.NoError(err)

		summary, err := l.Load(ctx, layout.Embedded, messages, senders)
		req.NoError(err)
		req.Equal([]any{"nobody"}, summary.MissingSenders)

		coll := db.Collection(layout.Messages)

		n, err := coll.CountDocuments(ctx, bson.D{})
		req.NoError(err)
		req.EqualValues(len(messages), n)

		var orphan bson.M
		req.NoError(coll.FindOne(ctx, bson.D{{Key: layout.FieldSender, Value: "nobody"}}).Decode(&orphan))
		req.NotContains(orphan, layout.FieldSenderInfo)

		var embedded bson.M
		req.NoError(coll.FindOne(ctx, bson.D{{Key: layout.FieldText, Value: "giant steps"}}).Decode(&embedded))

		info, ok := embedded[layout.FieldSenderInfo].(bson.M)
		req.True(ok)
		req.EqualValues(150, info[layout.FieldCredit])

		names, err := db.ListCollectionNames(ctx, bson.D{})
		req.NoError(err)
		req.NotContains(names, layout.Senders)
	})
}
