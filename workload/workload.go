// Package workload generates deterministic senders and messages datasets
// in the JSON array format the loader reads. Message counts per sender
// follow a configurable distribution so that one sender dominates Q2.
package workload

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	mrand "math/rand"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/weiihann/docbench/layout"
)

// Distributions lists the accepted values of Config.Distribution.
var Distributions = []string{"power-law", "exponential", "uniform"}

// words feeds message text. Several contain "ant" so Q1 has matches.
var words = []string{
	"plant", "giant", "want", "pants", "Antelope", "meeting", "coffee",
	"tomorrow", "deadline", "report", "lunch", "call", "review", "ship",
	"quick", "update", "the", "a", "for", "and", "tonight", "elephant",
}

// Config controls dataset generation.
type Config struct {
	NumSenders   int
	NumMessages  int
	Distribution string
	Seed         int64
	// ZeroCredit is the fraction of senders whose credit is 0.
	ZeroCredit float64
	// MaxCredit bounds the credit of every other sender, inclusive.
	MaxCredit int
}

// Summary contains statistics about the generated dataset.
type Summary struct {
	Senders           int
	Messages          int
	ZeroCreditSenders int
	TopSenderCount    int
}

// Validate reports a Config that cannot produce a dataset.
func (c Config) Validate() error {
	if c.NumSenders < 0 || c.NumMessages < 0 {
		return fmt.Errorf("counts must not be negative")
	}

	if c.NumMessages > 0 && c.NumSenders == 0 {
		return fmt.Errorf("messages need at least one sender")
	}

	if !lo.Contains(Distributions, c.Distribution) {
		return fmt.Errorf("unknown distribution %q, want one of %v",
			c.Distribution, Distributions)
	}

	return nil
}

// Generator produces deterministic datasets from a Config.
type Generator struct {
	cfg Config
	rng *mrand.Rand
}

// NewGenerator creates a Generator from the given Config.
func NewGenerator(cfg Config) *Generator {
	if cfg.MaxCredit <= 0 {
		cfg.MaxCredit = 200
	}

	return &Generator{
		cfg: cfg,
		rng: mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

// Generate writes the senders array to senders and the messages array to
// messages.
func (g *Generator) Generate(messages, senders io.Writer) (Summary, error) {
	var summary Summary

	if err := g.cfg.Validate(); err != nil {
		return summary, err
	}

	ids := make([]string, g.cfg.NumSenders)

	sw := newArrayWriter(senders)
	for i := range ids {
		id, err := uuid.NewRandomFromReader(g.rng)
		if err != nil {
			return summary, fmt.Errorf("sender id: %w", err)
		}

		ids[i] = id.String()

		credit := g.randomCredit()
		if credit == 0 {
			summary.ZeroCreditSenders++
		}

		if err := sw.write(map[string]any{
			layout.FieldSenderID: ids[i],
			"name":               fmt.Sprintf("sender-%d", i),
			layout.FieldCredit:   credit,
		}); err != nil {
			return summary, fmt.Errorf("encode sender: %w", err)
		}

		summary.Senders++
	}

	if err := sw.close(); err != nil {
		return summary, fmt.Errorf("close senders: %w", err)
	}

	cumulative := g.senderWeights()
	counts := make([]int, len(ids))

	mw := newArrayWriter(messages)
	for i := 0; i < g.cfg.NumMessages; i++ {
		n := g.pick(cumulative)
		counts[n]++

		if err := mw.write(map[string]any{
			layout.FieldText:   g.randomText(),
			layout.FieldSender: ids[n],
		}); err != nil {
			return summary, fmt.Errorf("encode message: %w", err)
		}

		summary.Messages++
	}

	if err := mw.close(); err != nil {
		return summary, fmt.Errorf("close messages: %w", err)
	}

	if len(counts) > 0 {
		summary.TopSenderCount = lo.Max(counts)
	}

	return summary, nil
}

func (g *Generator) randomCredit() int {
	if g.rng.Float64() < g.cfg.ZeroCredit {
		return 0
	}

	return 1 + g.rng.Intn(g.cfg.MaxCredit)
}

func (g *Generator) randomText() string {
	n := 3 + g.rng.Intn(6)
	parts := make([]string, n)

	for i := range parts {
		parts[i] = words[g.rng.Intn(len(words))]
	}

	return strings.Join(parts, " ")
}

// senderWeights returns the cumulative message weight of each sender.
func (g *Generator) senderWeights() []float64 {
	cumulative := make([]float64, g.cfg.NumSenders)
	total := 0.0

	for i := range cumulative {
		u := g.rng.Float64()

		var w float64

		switch g.cfg.Distribution {
		case "power-law":
			alpha := 1.5
			w = 1 / math.Pow(1-u, 1/alpha)
		case "exponential":
			w = -math.Log(1 - u)
		default:
			w = 1
		}

		total += w
		cumulative[i] = total
	}

	return cumulative
}

func (g *Generator) pick(cumulative []float64) int {
	target := g.rng.Float64() * cumulative[len(cumulative)-1]
	i := sort.SearchFloat64s(cumulative, target)

	return min(i, len(cumulative)-1)
}

// arrayWriter streams values as the elements of one JSON array.
type arrayWriter struct {
	w   io.Writer
	enc *json.Encoder
	n   int
}

func newArrayWriter(w io.Writer) *arrayWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	return &arrayWriter{w: w, enc: enc}
}

func (a *arrayWriter) write(v any) error {
	sep := ","
	if a.n == 0 {
		sep = "["
	}

	if _, err := io.WriteString(a.w, sep); err != nil {
		return err
	}

	a.n++

	return a.enc.Encode(v)
}

func (a *arrayWriter) close() error {
	end := "]\n"
	if a.n == 0 {
		end = "[]\n"
	}

	_, err := io.WriteString(a.w, end)

	return err
}
