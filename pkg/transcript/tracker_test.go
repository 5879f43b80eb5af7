package transcript

import "testing"

func TestObserve(t *testing.T) {
	tests := []struct {
		name       string
		seq        []string
		wantSuffix []string
	}{
		{
			name:       "append one at a time",
			seq:        []string{"A", "AB", "ABC"},
			wantSuffix: []string{"A", "B", "C"},
		},
		{
			name:       "burst",
			seq:        []string{"A", "ABCD"},
			wantSuffix: []string{"A", "BCD"},
		},
		{
			name:       "unchanged",
			seq:        []string{"HI", "HI", "HI"},
			wantSuffix: []string{"HI", "", ""},
		},
		{
			name:       "shrink then grow",
			seq:        []string{"ABC", "AB", "ABD"},
			wantSuffix: []string{"ABC", "", "D"},
		},
		{
			name:       "length only, not prefix",
			seq:        []string{"AB", "XYZ"},
			wantSuffix: []string{"AB", "Z"},
		},
		{
			name:       "multibyte",
			seq:        []string{"กข", "กขค"},
			wantSuffix: []string{"กข", "ค"},
		},
		{
			name:       "empty stays empty",
			seq:        []string{"", ""},
			wantSuffix: []string{"", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			for i, text := range tt.seq {
				suffix, grew := tr.Observe(text)
				if suffix != tt.wantSuffix[i] {
					t.Errorf("step %d: suffix = %q, want %q", i, suffix, tt.wantSuffix[i])
				}
				if grew != (tt.wantSuffix[i] != "") {
					t.Errorf("step %d: grew = %v", i, grew)
				}
				if tr.Last() != text {
					t.Errorf("step %d: Last() = %q, want %q", i, tr.Last(), text)
				}
			}
		})
	}
}

func TestResetReplaysFullText(t *testing.T) {
	tr := NewTracker()
	tr.Observe("HELLO")
	tr.Reset()

	if tr.Last() != "" {
		t.Fatalf("Last() after reset = %q", tr.Last())
	}
	suffix, grew := tr.Observe("HI")
	if !grew || suffix != "HI" {
		t.Errorf("Observe after reset = %q, %v; want HI, true", suffix, grew)
	}
}

func TestLastRune(t *testing.T) {
	tests := map[string]string{
		"":    "",
		"A":   "A",
		"BCD": "D",
		"กขค": "ค",
		"A ":  " ",
	}
	for in, want := range tests {
		if got := LastRune(in); got != want {
			t.Errorf("LastRune(%q) = %q, want %q", in, got, want)
		}
	}
}
