package labresult

import "testing"

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		value any
		rng   string
		want  LabStatus
	}{
		{"low boundary inclusive", 10.0, "[10,20]", StatusWithin},
		{"midpoint", 15.0, "[10,20]", StatusWithin},
		{"high boundary inclusive", 20.0, "[10,20]", StatusWithin},
		{"just below", 9.99, "[10,20]", StatusBelow},
		{"just above", 20.01, "[10,20]", StatusAbove},
		{"textual value", "trace", "[10,20]", StatusUnknown},
		{"unparseable range", 15.0, "n/a", StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.value, tt.rng); got != tt.want {
				t.Errorf("Classify(%v, %q) = %q, want %q", tt.value, tt.rng, got, tt.want)
			}
		})
	}
}

func TestClassifyValueRepresentations(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  LabStatus
	}{
		{"float64", 13.2, StatusWithin},
		{"int", 14, StatusWithin},
		{"numeric string", "13.2", StatusWithin},
		{"numeric string with spaces", " 13.2 ", StatusWithin},
		{"empty string", "", StatusUnknown},
		{"nil", nil, StatusUnknown},
		{"bool", true, StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.value, "[12,16]"); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestClassifyRangeNotations(t *testing.T) {
	tests := []struct {
		name string
		rng  string
		want LabStatus
	}{
		{"bracket form", "[12,16]", StatusWithin},
		{"hyphen form", "12-16", StatusWithin},
		{"en dash form", "12 – 16", StatusWithin},
		{"negative low bound", "-2-16", StatusWithin},
		{"inverted interval", "[16,12]", StatusUnknown},
		{"single number", "12", StatusUnknown},
		{"empty range", "", StatusUnknown},
		{"words", "normal", StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(13.2, tt.rng); got != tt.want {
				t.Errorf("Classify(13.2, %q) = %q, want %q", tt.rng, got, tt.want)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{13.2, "13.2"},
		{14, "14"},
		{"trace", "trace"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.value); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}
