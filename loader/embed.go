package loader

import (
	"github.com/samber/lo"

	"github.com/weiihann/docbench/layout"
	"github.com/weiihann/docbench/record"
)

// Embed returns a copy of messages in which every message carries a copy
// of its sender under sender_info. Messages whose sender cannot be found
// are kept as they are; their sender references are returned in missing,
// in message order. The inputs are not modified.
func Embed(messages, senders []record.Record) (embedded []record.Record, missing []any) {
	identified := lo.Filter(senders, func(s record.Record, _ int) bool {
		_, ok := s.SenderID()
		return ok
	})

	// Later duplicates win.
	lookup := lo.KeyBy(identified, func(s record.Record) any {
		id, _ := s.SenderID()
		return id
	})

	embedded = make([]record.Record, 0, len(messages))

	for _, msg := range messages {
		out := msg.Clone()

		ref, ok := msg.SenderRef()
		if !ok {
			missing = append(missing, msg[layout.FieldSender])
			embedded = append(embedded, out)

			continue
		}

		sender, found := lookup[ref]
		if !found {
			missing = append(missing, ref)
			embedded = append(embedded, out)

			continue
		}

		out[layout.FieldSenderInfo] = sender.Clone()
		embedded = append(embedded, out)
	}

	return embedded, missing
}
