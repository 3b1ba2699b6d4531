// Package textnorm canonicalizes user-entered text so accented names compare
// and index consistently regardless of how the client composed them.
package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Name trims, collapses inner whitespace and converts to NFC.
func Name(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// Email trims and lower-cases an address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Term prepares a search term. It returns the NFC form and its rune count.
func Term(s string) (string, int) {
	t := norm.NFC.String(strings.TrimSpace(s))
	return t, len([]rune(t))
}
