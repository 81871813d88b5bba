package id

import (
	"testing"
)

func TestFormatFunctions(t *testing.T) {
	tests := []struct {
		name string
		fn   func(int) string
		seq  int
		want string
	}{
		{"FormatBoard with seq 1", FormatBoard, 1, "B-00001"},
		{"FormatBoard with seq 99999", FormatBoard, 99999, "B-99999"},
		{"FormatColumn with seq 42", FormatColumn, 42, "L-00042"},
		{"FormatCard with seq 12345", FormatCard, 12345, "K-12345"},
		{"FormatCard past five digits", FormatCard, 123456, "K-123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.seq); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		wantType Type
		wantSeq  int
		wantErr  bool
	}{
		{"B-00001", TypeBoard, 1, false},
		{"L-00042", TypeColumn, 42, false},
		{" K-12345 ", TypeCard, 12345, false},
		{"K-123456", TypeCard, 123456, false},
		{"T-00001", "", 0, true},
		{"B-1", "", 0, true},
		{"b-00001", "", 0, true},
		{"tmp-550e8400-e29b-41d4-a716-446655440000", "", 0, true},
		{"", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			typ, seq, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if typ != tt.wantType || seq != tt.wantSeq {
				t.Errorf("Parse(%q) = (%s, %d), want (%s, %d)", tt.input, typ, seq, tt.wantType, tt.wantSeq)
			}
		})
	}
}

func TestExpect(t *testing.T) {
	if got, err := Expect(" L-00003", TypeColumn); err != nil || got != "L-00003" {
		t.Errorf("Expect column = %q, %v", got, err)
	}
	if _, err := Expect("K-00003", TypeColumn); err == nil {
		t.Error("expected error for card ID where column expected")
	}
	if !IsFriendlyID("B-00009") || IsFriendlyID("nope") {
		t.Error("IsFriendlyID mismatch")
	}
}
