package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// DefaultTimeout is the server-side limit for each query.
const DefaultTimeout = 2 * time.Minute

// clientGrace lets the server report its own time limit before the
// client-side deadline fires.
const clientGrace = 10 * time.Second

// maxTimeMSExpired is the server error code for an exceeded maxTimeMS.
const maxTimeMSExpired = 50

// Plan is what a Runner executes. Suite implements it against MongoDB.
type Plan interface {
	Queries() []Query
	MutationQuery() Query
	CreateIndexes(ctx context.Context) ([]string, error)
	ExistingIndexes(ctx context.Context) ([]string, error)
}

// Queries returns Q1 through Q3.
func (s *Suite) Queries() []Query {
	out := make([]Query, len(s.queries))
	copy(out, s.queries)

	return out
}

// MutationQuery returns Q4.
func (s *Suite) MutationQuery() Query { return s.mutation }

// Runner executes a Plan in its fixed order and prints a line per call.
type Runner struct {
	out     io.Writer
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner creates a Runner that writes progress lines to out.
func NewRunner(out io.Writer, timeout time.Duration, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Runner{out: out, timeout: timeout, logger: logger}
}

// Run measures the queries without secondary indices, creates the
// indices, measures the queries again and finally runs the mutation.
// Query failures are recorded in the report and do not stop the run;
// only a failure to create indices does.
func (r *Runner) Run(ctx context.Context, plan Plan, info Report) (*Report, error) {
	report := info
	report.RunID = uuid.NewString()
	report.StartedAt = time.Now()

	logger := r.logger.With(
		slog.String("run_id", report.RunID),
		slog.String("layout", report.Layout.String()),
	)

	existing, err := plan.ExistingIndexes(ctx)
	if err != nil {
		logger.WarnContext(ctx, "could not list existing indexes", slog.String("error", err.Error()))
	} else if len(existing) > 0 {
		logger.WarnContext(ctx, "secondary indexes already exist; unindexed timings are not representative",
			slog.Any("indexes", existing),
		)
	}

	fmt.Fprintln(r.out, "Executing queries 1, 2, and 3 before creating indices:")
	report.Unindexed = r.measureAll(ctx, logger, plan.Queries(), PhaseUnindexed)

	fmt.Fprintln(r.out, "Creating indices...")

	start := time.Now()

	names, err := plan.CreateIndexes(ctx)
	if err != nil {
		return &report, fmt.Errorf("create indices: %w", err)
	}

	report.Indexes = names
	report.IndexElapsed = time.Since(start)

	fmt.Fprintln(r.out, "Indices creation completed.")
	logger.InfoContext(ctx, "indices created",
		slog.Any("indexes", names),
		slog.Duration("elapsed", report.IndexElapsed),
	)

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Re-executing queries 1, 2, and 3 after creating indices:")
	report.Indexed = r.measureAll(ctx, logger, plan.Queries(), PhaseIndexed)

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Executing query 4 to double credits for senders with credit less than 100:")
	report.Mutation = r.measure(ctx, logger, plan.MutationQuery(), PhaseMutation)

	return &report, nil
}

func (r *Runner) measureAll(
	ctx context.Context,
	logger *slog.Logger,
	queries []Query,
	phase Phase,
) []Measurement {
	out := make([]Measurement, 0, len(queries))
	for _, q := range queries {
		out = append(out, r.measure(ctx, logger, q, phase))
	}

	return out
}

func (r *Runner) measure(
	ctx context.Context,
	logger *slog.Logger,
	q Query,
	phase Phase,
) Measurement {
	ctx, cancel := context.WithTimeout(ctx, r.timeout+clientGrace)
	defer cancel()

	m := Measurement{
		Query:       q.ID,
		Description: q.Description,
		Phase:       phase,
	}

	start := time.Now()
	result, err := q.Run(ctx)
	m.Elapsed = time.Since(start)

	switch {
	case err == nil:
		m.Status = StatusOK
		m.Result = result
	case IsTimeout(err):
		m.Status = StatusTimeout
		m.Result = TimeoutText(r.timeout)
	default:
		m.Status = StatusError
		m.Error = err.Error()
		m.Result = "MongoDB error: " + err.Error()
	}

	logger.DebugContext(ctx, "query finished",
		slog.String("query", q.ID),
		slog.String("phase", string(phase)),
		slog.String("status", string(m.Status)),
		slog.Duration("elapsed", m.Elapsed),
	)

	if m.Status == StatusError {
		logger.ErrorContext(ctx, "query failed",
			slog.String("query", q.ID),
			slog.String("phase", string(phase)),
			slog.String("error", m.Error),
		)
	}

	fmt.Fprintln(r.out, FormatLine(m))

	return m
}

// FormatLine renders one measurement the way it is printed during a run.
func FormatLine(m Measurement) string {
	prefix := m.Query + ": " + m.Description

	switch {
	case m.Status != StatusOK:
		return prefix + " " + m.Result
	case m.Phase == PhaseMutation:
		return fmt.Sprintf("%s Time taken: %.2f milliseconds", prefix, m.ElapsedMs())
	default:
		return fmt.Sprintf("%s Result: %s, Time taken: %.2f milliseconds", prefix, m.Result, m.ElapsedMs())
	}
}

// TimeoutText is the substitute result for a query that hit its limit.
func TimeoutText(limit time.Duration) string {
	if limit == DefaultTimeout {
		return "Query takes more than two minutes."
	}

	return fmt.Sprintf("Query takes more than %s.", limit)
}

// IsTimeout reports whether err means the server or the client gave up
// waiting on a call.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var se mongo.ServerError

	return errors.As(err, &se) && se.HasErrorCode(maxTimeMSExpired)
}
