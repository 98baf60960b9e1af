package style

import (
	"slices"
	"testing"

	"github.com/BTreeMap/MagicText/internal/models"
)

func TestInstructionKnownStyles(t *testing.T) {
	tests := []struct {
		style models.Style
		want  string
	}{
		{models.StyleCreative, "Write a creative and imaginative continuation that completes the thought:"},
		{models.StyleFormal, "Write a formal and well-structured completion of:"},
		{models.StyleHumorous, "Write a funny and entertaining completion of:"},
		{models.StylePoetic, "Write a poetic and lyrical completion of:"},
		{models.StyleTechnical, "Write a precise and technical completion of:"},
	}
	for _, tt := range tests {
		t.Run(string(tt.style), func(t *testing.T) {
			if got := Instruction(tt.style); got != tt.want {
				t.Errorf("Instruction(%q) = %q, want %q", tt.style, got, tt.want)
			}
		})
	}
}

func TestInstructionFallback(t *testing.T) {
	for _, s := range []models.Style{models.StyleNone, "sarcastic", ""} {
		if got := Instruction(s); got != DefaultInstruction {
			t.Errorf("Instruction(%q) = %q, want fallback", s, got)
		}
	}
}

func TestCatalogCoversAllStyles(t *testing.T) {
	entries := Catalog()
	if len(entries) != len(models.AllStyles) {
		t.Fatalf("expected %d entries, got %d", len(models.AllStyles), len(entries))
	}
	for i, e := range entries {
		if e.Style != models.AllStyles[i] {
			t.Errorf("entry %d: style %q, want %q", i, e.Style, models.AllStyles[i])
		}
		if e.Instruction == "" {
			t.Errorf("entry %d: empty instruction", i)
		}
	}
}

func TestRandomSuggestion(t *testing.T) {
	for i := 0; i < 50; i++ {
		if s := RandomSuggestion(); !slices.Contains(Suggestions, s) {
			t.Fatalf("suggestion %q not in list", s)
		}
	}
}
