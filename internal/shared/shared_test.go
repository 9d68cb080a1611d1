package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNormalizeCandidates(t *testing.T) {
	tc := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "keeps order",
			input: []string{"Song A", "Song B", "Song C"},
			want:  []string{"Song A", "Song B", "Song C"},
		},
		{
			name:  "trims whitespace",
			input: []string{"  Song A  ", "\tSong B\n"},
			want:  []string{"Song A", "Song B"},
		},
		{
			name:  "drops empty and blank",
			input: []string{"", "Song A", "   ", "\n", "Song B"},
			want:  []string{"Song A", "Song B"},
		},
		{
			name:  "does not dedupe",
			input: []string{"Song A", "Song A"},
			want:  []string{"Song A", "Song A"},
		},
		{
			name:  "nil input",
			input: nil,
			want:  []string{},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeCandidates(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("NormalizeCandidates() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("NormalizeCandidates()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tc := []struct {
		input string
		want  log.Level
	}{
		{"debug", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{" warn ", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"nonsense", log.InfoLevel},
		{"", log.InfoLevel},
	}

	for _, tt := range tc {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLogLevel(tt.input); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	child := WithLogger(logger, "component", "test")
	child.Info("hello")

	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "component=test") {
		t.Errorf("unexpected log output: %q", out)
	}

	buf.Reset()
	SetLogLevel(logger, log.ErrorLevel)
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", buf.String())
	}
}

func TestVisibilityString(t *testing.T) {
	if VisibilityString(true) != "Public" || VisibilityString(false) != "Private" {
		t.Error("unexpected visibility strings")
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || a == b {
		t.Errorf("expected unique non-empty ids, got %q and %q", a, b)
	}
}
