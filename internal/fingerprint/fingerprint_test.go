package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"testing"
)

func TestNormalize(t *testing.T) {
	got := Normalize("  What is the antidote for Heparin? \r\n", "Protamine sulfate.")
	expected := "what is the antidote for heparin?\nprotamine sulfate."
	if got != expected {
		t.Errorf("Expected normalized string to be '%s', but got '%s'", expected, got)
	}
}

func TestInDeck(t *testing.T) {
	t.Run("hashes the deck id and normalized content", func(t *testing.T) {
		expected := fmt.Sprintf("%x", sha256.Sum256([]byte("deck-1\nq\na")))
		if got := InDeck("deck-1", "Q", "A"); got != expected {
			t.Errorf("Expected hash '%s', but got '%s'", expected, got)
		}
	})

	t.Run("is deterministic", func(t *testing.T) {
		if InDeck("deck-1", "Test", "") != InDeck("deck-1", "Test", "") {
			t.Error("Expected fingerprints for identical cards to be the same")
		}
	})

	t.Run("normalization produces same fingerprint", func(t *testing.T) {
		a := InDeck("deck-1", "  first-line treatment for anaphylaxis? ", "Epinephrine IM")
		b := InDeck("deck-1", "First-line treatment for anaphylaxis?", "epinephrine im")
		if a != b {
			t.Error("Expected fingerprints to be the same after normalization, but they were different.")
		}
	})

	t.Run("front and back are kept apart", func(t *testing.T) {
		if InDeck("deck-1", "ab", "c") == InDeck("deck-1", "a", "bc") {
			t.Error("Expected moving text across the separator to change the fingerprint")
		}
	})

	t.Run("decks are kept apart", func(t *testing.T) {
		if InDeck("deck-1", "Q", "A") == InDeck("deck-2", "Q", "A") {
			t.Error("Expected the same card in different decks to get different identifiers")
		}
	})
}
