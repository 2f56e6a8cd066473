package utility

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var bannedWords = []string{
	"puto", "puta", "mierda", "carajo", "pendejo", "pendeja", "maricon",
	"culero", "culera", "chingar", "chingado", "chingada", "perra", "perro",
	"bastardo", "maldito", "maldita", "estupido", "estupida", "zorra",
	"hp", "hpta", "gonorrea", "malparido", "malparida",
}

// NormalizeText lower-cases s and strips accents ("Estúpido" -> "estupido").
func NormalizeText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// ContainsProfanity reports whether any word of s is, contains, or is a long
// enough fragment of a banned word.
func ContainsProfanity(s string) bool {
	words := strings.FieldsFunc(NormalizeText(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		for _, banned := range bannedWords {
			if strings.Contains(w, banned) {
				return true
			}
			if len(w) > 3 && strings.Contains(banned, w) {
				return true
			}
		}
	}
	return false
}
