// Package bench runs the fixed query set against one collection layout,
// before and after creating secondary indices, and times every call.
package bench

import (
	"time"

	"github.com/weiihann/docbench/layout"
)

// Phase identifies when a measurement was taken.
type Phase string

const (
	PhaseUnindexed Phase = "unindexed"
	PhaseIndexed   Phase = "indexed"
	PhaseMutation  Phase = "mutation"
)

// Status classifies the outcome of a single call.
type Status string

const (
	StatusOK      Status = "ok"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
)

// Measurement is the outcome of one timed query or mutation.
type Measurement struct {
	Query       string        `json:"query"`
	Description string        `json:"description"`
	Phase       Phase         `json:"phase"`
	Status      Status        `json:"status"`
	Result      string        `json:"result"`
	Error       string        `json:"error,omitempty"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// ElapsedMs returns the latency in fractional milliseconds.
func (m Measurement) ElapsedMs() float64 {
	return float64(m.Elapsed) / float64(time.Millisecond)
}

// Report holds everything measured during one run of a Suite.
type Report struct {
	RunID        string        `json:"run_id"`
	Layout       layout.Layout `json:"layout"`
	Database     string        `json:"database"`
	StartedAt    time.Time     `json:"started_at"`
	Unindexed    []Measurement `json:"unindexed"`
	Indexes      []string      `json:"indexes"`
	IndexElapsed time.Duration `json:"index_elapsed_ns"`
	Indexed      []Measurement `json:"indexed"`
	Mutation     Measurement   `json:"mutation"`
}

// Failed returns the number of calls that ended in a non-timeout error.
func (r *Report) Failed() int {
	n := 0

	for _, set := range [][]Measurement{r.Unindexed, r.Indexed, {r.Mutation}} {
		for _, m := range set {
			if m.Status == StatusError {
				n++
			}
		}
	}

	return n
}
