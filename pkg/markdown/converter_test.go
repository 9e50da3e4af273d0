package markdown

import (
	"strings"
	"testing"
)

func TestToPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello world", "Hello world"},
		{"emphasis", "**Hello** _world_", "Hello world"},
		{"inline code", "Run `make build` now", "Run make build now"},
		{"heading", "# Title\n\nBody text", "Title\n\nBody text"},
		{"link", "See [the docs](https://example.com)", "See the docs"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToPlainText(tt.in); got != tt.want {
				t.Errorf("ToPlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToPlainTextLists(t *testing.T) {
	got := ToPlainText("Items:\n\n- first\n- second\n")
	for _, want := range []string{"Items:", "- first", "- second"} {
		if !strings.Contains(got, want) {
			t.Errorf("ToPlainText() = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("ToPlainText() left extra blank lines: %q", got)
	}
}
