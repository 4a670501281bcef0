// Package record reads the message and sender record sets the loader
// inserts. Each input file is a JSON array of flat objects with an
// implicit schema; fields the benchmark does not know about are carried
// through untouched.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/samber/lo"

	"github.com/weiihann/docbench/layout"
)

// ErrNotFound is returned when an input file does not exist.
var ErrNotFound = errors.New("input file not found")

// Record is a single decoded JSON object.
type Record map[string]any

// SenderRef returns the sender identifier a message points at.
func (r Record) SenderRef() (any, bool) {
	return key(r[layout.FieldSender])
}

// SenderID returns the identifier of a sender record.
func (r Record) SenderID() (any, bool) {
	return key(r[layout.FieldSenderID])
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}

	return Record(cloneValue(map[string]any(r)).(map[string]any))
}

// key reports whether v can identify a sender. Only scalar JSON values
// are accepted so the result is always usable as a map key.
func key(v any) (any, bool) {
	switch v.(type) {
	case string, int64, float64, bool:
		return v, true
	default:
		return nil, false
	}
}

// ReadFile decodes the JSON array at path. The whole file is validated
// before anything is returned.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return records, nil
}

// Decode reads a JSON array of objects from r. Integral numbers decode
// as int64, everything else numeric as float64.
func Decode(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read array start: %w", err)
	}

	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("expected a JSON array, got %v", tok)
	}

	records := make([]Record, 0)

	for dec.More() {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records), err)
		}

		if obj == nil {
			return nil, fmt.Errorf("record %d: null is not an object", len(records))
		}

		records = append(records, Record(normalize(obj).(map[string]any)))
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read array end: %w", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after array")
	}

	return records, nil
}

func normalize(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}

		f, err := val.Float64()
		if err != nil {
			// Out of float64 range; keep the literal.
			return val.String()
		}

		return f
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}

		return val
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}

		return val
	default:
		return v
	}
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}

		return out
	case Record:
		return Record(cloneValue(map[string]any(val)).(map[string]any))
	case []any:
		return lo.Map(val, func(item any, _ int) any {
			return cloneValue(item)
		})
	default:
		return v
	}
}
