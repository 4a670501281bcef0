// Package layout names the two collection layouts the benchmark compares
// and the collections and fields each one uses.
package layout

import (
	"fmt"
	"strings"
)

// Layout selects how messages and senders are stored.
type Layout string

const (
	// Normalized stores messages and senders in two collections joined
	// by the sender identifier.
	Normalized Layout = "normalized"
	// Embedded stores only messages, each carrying a copy of its sender
	// under SenderInfo.
	Embedded Layout = "embedded"
)

// Collection names.
const (
	Messages = "messages"
	Senders  = "senders"
)

// Document field names shared by the loader and the queries.
const (
	FieldText       = "text"
	FieldSender     = "sender"
	FieldSenderID   = "sender_id"
	FieldCredit     = "credit"
	FieldSenderInfo = "sender_info"
)

// EmbeddedCredit is the dotted path of the credit field inside an
// embedded sender copy.
const EmbeddedCredit = FieldSenderInfo + "." + FieldCredit

// Known returns the supported layouts in the order they are benchmarked.
func Known() []Layout {
	return []Layout{Normalized, Embedded}
}

// Parse resolves a layout name, case-insensitively.
func Parse(s string) (Layout, error) {
	switch Layout(strings.ToLower(strings.TrimSpace(s))) {
	case Normalized:
		return Normalized, nil
	case Embedded:
		return Embedded, nil
	default:
		return "", fmt.Errorf("unknown layout %q (want normalized or embedded)", s)
	}
}

// Collections returns the collections a load of l recreates.
func (l Layout) Collections() []string {
	switch l {
	case Normalized:
		return []string{Messages, Senders}
	default:
		return []string{Messages}
	}
}

// Databases maps each layout to the database it lives in.
type Databases struct {
	Normalized string
	Embedded   string
}

// Resolve returns the database name for l.
func (d Databases) Resolve(l Layout) string {
	switch l {
	case Normalized:
		return d.Normalized
	case Embedded:
		return d.Embedded
	default:
		return ""
	}
}

func (l Layout) String() string {
	return string(l)
}
