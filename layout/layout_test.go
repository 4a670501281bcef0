package layout

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Layout
		wantErr bool
	}{
		{"normalized", Normalized, false},
		{"Embedded", Embedded, false},
		{"  NORMALIZED ", Normalized, false},
		{"flat", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)

			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCollections(t *testing.T) {
	if got := Normalized.Collections(); len(got) != 2 || got[0] != Messages || got[1] != Senders {
		t.Errorf("normalized collections = %v", got)
	}
	if got := Embedded.Collections(); len(got) != 1 || got[0] != Messages {
		t.Errorf("embedded collections = %v", got)
	}
}

func TestDatabasesResolve(t *testing.T) {
	dbs := Databases{Normalized: "MP2Norm", Embedded: "MP2Embd"}

	if got := dbs.Resolve(Normalized); got != "MP2Norm" {
		t.Errorf("Resolve(normalized) = %q, want MP2Norm", got)
	}
	if got := dbs.Resolve(Embedded); got != "MP2Embd" {
		t.Errorf("Resolve(embedded) = %q, want MP2Embd", got)
	}
	if got := dbs.Resolve("other"); got != "" {
		t.Errorf("Resolve(other) = %q, want empty", got)
	}
}

func TestEmbeddedCredit(t *testing.T) {
	if EmbeddedCredit != "sender_info.credit" {
		t.Errorf("EmbeddedCredit = %q", EmbeddedCredit)
	}
}
