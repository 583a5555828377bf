package chat

import (
	"strings"
	"testing"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "short content used verbatim",
			content: "How does auth work?",
			want:    "How does auth work?",
		},
		{
			name:    "exactly fifty characters untouched",
			content: strings.Repeat("x", 50),
			want:    strings.Repeat("x", 50),
		},
		{
			name:    "long content truncated with ellipsis",
			content: strings.Repeat("x", 51),
			want:    strings.Repeat("x", 50) + "...",
		},
		{
			name:    "truncation counts runes not bytes",
			content: strings.Repeat("ü", 60),
			want:    strings.Repeat("ü", 50) + "...",
		},
		{
			name:    "empty content stays empty",
			content: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.content); got != tt.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}
