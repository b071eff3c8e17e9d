package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// Normalize concatenates the card's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them. The card id does not take part.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	// Joined with a newline so "ab"+"c" and "a"+"bc" hash differently.
	return strings.Join([]string{normalizePart(card.Question), normalizePart(card.Answer)}, "\n")
}

// Hash takes a card, normalizes it, and returns its SHA-256 hash as a hex string.
func Hash(card domain.Card) string {
	normalized := Normalize(card)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}

// Set is a set of card content hashes.
type Set map[string]struct{}

// SetOf hashes every card.
func SetOf(cards []domain.Card) Set {
	s := make(Set, len(cards))
	for _, c := range cards {
		s.Add(c)
	}
	return s
}

// Add records card and reports whether it was new.
func (s Set) Add(card domain.Card) bool {
	h := Hash(card)
	if _, ok := s[h]; ok {
		return false
	}
	s[h] = struct{}{}
	return true
}
