package bot

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"short name untouched", "Fix login", 50, "Fix login"},
		{"exact length untouched", strings.Repeat("a", 50), 50, strings.Repeat("a", 50)},
		{"long ascii truncated", strings.Repeat("a", 60), 50, strings.Repeat("a", 47) + "..."},
		{"cyrillic truncated on rune boundary", strings.Repeat("я", 60), 50, strings.Repeat("я", 47) + "..."},
		{"multi-byte under limit untouched", strings.Repeat("я", 30), 50, strings.Repeat("я", 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateName(tt.input, tt.max)
			if got != tt.want {
				t.Errorf("truncateName(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncateName(%q, %d) produced invalid UTF-8: %q", tt.input, tt.max, got)
			}
		})
	}
}
