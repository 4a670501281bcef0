package loader

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/weiihann/docbench/record"
)

// Every input record is inserted exactly once, in order, and no batch
// exceeds the configured size.
func TestProperty_InsertBatchesPreservesRecords(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("batched insert keeps count and order", prop.ForAll(
		func(count, size int) bool {
			records := makeMessages(count, "a", "b", "c")
			coll := &fakeCollection{name: "messages", failOn: -1}

			n, err := InsertBatches(context.Background(), coll, records, size)
			if err != nil || n != count {
				return false
			}

			idx := 0
			for _, batch := range coll.batches {
				if len(batch) == 0 || len(batch) > size {
					return false
				}

				for _, doc := range batch {
					if doc.(record.Record)["text"] != fmt.Sprintf("message %d", idx) {
						return false
					}
					idx++
				}
			}

			return idx == count
		},
		gen.IntRange(0, 500),
		gen.IntRange(1, 64),
	))

	properties.TestingRun(t)
}

// Embedding never drops or adds a message, and a message carries
// sender_info exactly when its sender exists.
func TestProperty_EmbedKeepsEveryMessage(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("embed is total over messages", prop.ForAll(
		func(refs []int, numSenders int) bool {
			senders := make([]record.Record, numSenders)
			for i := range senders {
				senders[i] = record.Record{"sender_id": int64(i), "credit": int64(i * 10)}
			}

			messages := make([]record.Record, len(refs))
			for i, ref := range refs {
				messages[i] = record.Record{"text": "m", "sender": int64(ref)}
			}

			embedded, missing := Embed(messages, senders)
			if len(embedded) != len(messages) {
				return false
			}

			wantMissing := 0
			for i, ref := range refs {
				info, has := embedded[i]["sender_info"]
				known := ref < numSenders
				if has != known {
					return false
				}
				if !known {
					wantMissing++

					continue
				}
				if info.(record.Record)["sender_id"] != int64(ref) {
					return false
				}
			}

			return len(missing) == wantMissing
		},
		gen.SliceOf(gen.IntRange(0, 20)),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
