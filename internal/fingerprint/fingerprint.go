// Package fingerprint derives stable identifiers for flashcards from their
// content, so that re-adding the same card to a deck is detected.
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize joins the card's front and back after cleaning each side.
// Each side is lowercased, trimmed and has CRLF line endings folded to LF.
func Normalize(front, back string) string {
	clean := func(side string) string {
		s := strings.ToLower(side)
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return strings.TrimSpace(s)
	}

	// The newline keeps "ab"+"c" and "a"+"bc" apart.
	return clean(front) + "\n" + clean(back)
}

// InDeck returns the hex SHA-256 of the deck id and the normalized card
// content. Two users holding the same card get distinct identifiers.
func InDeck(deckID, front, back string) string {
	sum := sha256.Sum256([]byte(deckID + "\n" + Normalize(front, back)))
	return fmt.Sprintf("%x", sum)
}
