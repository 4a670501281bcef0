package bench

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/weiihann/docbench/layout"
)

// TextPattern is the case-sensitive substring the first query counts.
const TextPattern = "ant"

// CreditCeiling is the exclusive upper bound for credits the mutation
// doubles.
const CreditCeiling = 100

// NoData is the most-active-sender result for an empty collection.
const NoData = "No data found."

// Query is one timed call. Run returns the textual result to report.
type Query struct {
	ID          string
	Description string
	Run         func(ctx context.Context) (string, error)
}

// IndexSpec is a secondary index the indexed phase adds.
type IndexSpec struct {
	Collection string
	Keys       bson.D
}

// Suite is the fixed query set for one layout.
type Suite struct {
	Layout   layout.Layout
	Database string
	Indexes  []IndexSpec

	db       *mongo.Database
	queries  []Query
	mutation Query
}

// IndexesFor returns the secondary indices created for lay.
func IndexesFor(lay layout.Layout) []IndexSpec {
	switch lay {
	case layout.Normalized:
		return []IndexSpec{
			{layout.Messages, bson.D{{Key: layout.FieldSender, Value: 1}}},
			{layout.Messages, bson.D{{Key: layout.FieldText, Value: "text"}}},
			{layout.Senders, bson.D{{Key: layout.FieldSenderID, Value: 1}}},
		}
	case layout.Embedded:
		return []IndexSpec{
			{layout.Messages, bson.D{{Key: layout.FieldText, Value: "text"}}},
			{layout.Messages, bson.D{{Key: layout.FieldSender, Value: 1}}},
			{layout.Messages, bson.D{{Key: layout.EmbeddedCredit, Value: 1}}},
		}
	default:
		return nil
	}
}

// NewSuite builds the queries for lay against db. Every server call is
// capped at timeout.
func NewSuite(db *mongo.Database, lay layout.Layout, timeout time.Duration) (*Suite, error) {
	if lay != layout.Normalized && lay != layout.Embedded {
		return nil, fmt.Errorf("unknown layout %q", lay)
	}

	messages := db.Collection(layout.Messages)

	s := &Suite{
		Layout:   lay,
		Database: db.Name(),
		Indexes:  IndexesFor(lay),
		db:       db,
	}

	switch lay {
	case layout.Normalized:
		senders := db.Collection(layout.Senders)
		s.queries = []Query{
			countContaining(messages, timeout),
			mostActiveSender(messages, timeout),
			{
				ID:          "Q3",
				Description: "Count messages where sender's credit is 0",
				Run: func(ctx context.Context) (string, error) {
					return zeroCreditJoined(ctx, senders, messages, timeout)
				},
			},
		}
		s.mutation = doubleCredit(senders, layout.FieldCredit, timeout)

	case layout.Embedded:
		s.queries = []Query{
			countContaining(messages, timeout),
			mostActiveSender(messages, timeout),
			{
				ID:          "Q3",
				Description: "Count messages where sender's credit is 0",
				Run: func(ctx context.Context) (string, error) {
					n, err := messages.CountDocuments(ctx,
						bson.D{{Key: layout.EmbeddedCredit, Value: 0}},
						options.Count().SetMaxTime(timeout),
					)
					if err != nil {
						return "", err
					}

					return strconv.FormatInt(n, 10), nil
				},
			},
		}
		s.mutation = doubleCredit(messages, layout.EmbeddedCredit, timeout)
	}

	return s, nil
}

// CreateIndexes builds every index in s.Indexes and returns their names.
func (s *Suite) CreateIndexes(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(s.Indexes))

	for _, spec := range s.Indexes {
		name, err := s.db.Collection(spec.Collection).Indexes().CreateOne(ctx,
			mongo.IndexModel{Keys: spec.Keys},
		)
		if err != nil {
			return names, fmt.Errorf("create index on %s: %w", spec.Collection, err)
		}

		names = append(names, spec.Collection+"."+name)
	}

	return names, nil
}

// ExistingIndexes lists secondary indices already present on the suite's
// collections, which would make the unindexed phase misleading.
func (s *Suite) ExistingIndexes(ctx context.Context) ([]string, error) {
	var found []string

	for _, coll := range s.Layout.Collections() {
		specs, err := s.db.Collection(coll).Indexes().ListSpecifications(ctx)
		if err != nil {
			return nil, fmt.Errorf("list indexes on %s: %w", coll, err)
		}

		for _, spec := range specs {
			if spec.Name != "_id_" {
				found = append(found, coll+"."+spec.Name)
			}
		}
	}

	return found, nil
}

func countContaining(coll *mongo.Collection, timeout time.Duration) Query {
	return Query{
		ID:          "Q1",
		Description: fmt.Sprintf("Count messages containing '%s'", TextPattern),
		Run: func(ctx context.Context) (string, error) {
			n, err := coll.CountDocuments(ctx,
				bson.D{{Key: layout.FieldText, Value: bson.D{{Key: "$regex", Value: TextPattern}}}},
				options.Count().SetMaxTime(timeout),
			)
			if err != nil {
				return "", err
			}

			return strconv.FormatInt(n, 10), nil
		},
	}
}

// MostActivePipeline groups messages by sender and keeps the largest
// group. Ties are resolved by the server's sort and are not stable
// across runs.
func MostActivePipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + layout.FieldSender},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: 1}},
	}
}

// SenderCount is one row of MostActivePipeline output.
type SenderCount struct {
	Sender any   `bson:"_id"`
	Count  int64 `bson:"count"`
}

// FormatMostActive renders the aggregation output of MostActivePipeline.
func FormatMostActive(rows []SenderCount) string {
	if len(rows) == 0 {
		return NoData
	}

	return fmt.Sprintf("Sender: %v, Messages: %d", rows[0].Sender, rows[0].Count)
}

func mostActiveSender(coll *mongo.Collection, timeout time.Duration) Query {
	return Query{
		ID:          "Q2",
		Description: "Sender with the greatest number of messages",
		Run: func(ctx context.Context) (string, error) {
			cur, err := coll.Aggregate(ctx, MostActivePipeline(),
				options.Aggregate().SetMaxTime(timeout),
			)
			if err != nil {
				return "", err
			}

			var rows []SenderCount
			if err := cur.All(ctx, &rows); err != nil {
				return "", err
			}

			return FormatMostActive(rows), nil
		},
	}
}

// ZeroCreditPipeline counts messages sent by any of ids.
func ZeroCreditPipeline(ids []any) mongo.Pipeline {
	if ids == nil {
		ids = []any{}
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: layout.FieldSender, Value: bson.D{{Key: "$in", Value: ids}}},
		}}},
		{{Key: "$count", Value: "zero_credit_messages"}},
	}
}

func zeroCreditJoined(
	ctx context.Context,
	senders, messages *mongo.Collection,
	timeout time.Duration,
) (string, error) {
	cur, err := senders.Find(ctx,
		bson.D{{Key: layout.FieldCredit, Value: 0}},
		options.Find().
			SetProjection(bson.D{{Key: layout.FieldSenderID, Value: 1}}).
			SetMaxTime(timeout),
	)
	if err != nil {
		return "", err
	}

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return "", err
	}

	ids := lo.FilterMap(docs, func(d bson.M, _ int) (any, bool) {
		id, ok := d[layout.FieldSenderID]
		return id, ok
	})

	agg, err := messages.Aggregate(ctx, ZeroCreditPipeline(ids),
		options.Aggregate().SetMaxTime(timeout),
	)
	if err != nil {
		return "", err
	}

	var rows []struct {
		Count int64 `bson:"zero_credit_messages"`
	}
	if err := agg.All(ctx, &rows); err != nil {
		return "", err
	}

	if len(rows) == 0 {
		return "0", nil
	}

	return strconv.FormatInt(rows[0].Count, 10), nil
}

// doubleCredit multiplies field by two wherever it is below
// CreditCeiling. Updates take no server-side time limit option, so the
// call is bounded by its context instead.
func doubleCredit(coll *mongo.Collection, field string, timeout time.Duration) Query {
	return Query{
		ID:          "Q4",
		Description: fmt.Sprintf("Double the credit for senders with credit less than %d", CreditCeiling),
		Run: func(ctx context.Context) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			res, err := coll.UpdateMany(ctx,
				bson.D{{Key: field, Value: bson.D{{Key: "$lt", Value: CreditCeiling}}}},
				bson.D{{Key: "$mul", Value: bson.D{{Key: field, Value: 2}}}},
			)
			if err != nil {
				return "", err
			}

			return fmt.Sprintf("matched %d, modified %d", res.MatchedCount, res.ModifiedCount), nil
		},
	}
}
