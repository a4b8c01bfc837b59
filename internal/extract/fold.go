package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases text with Turkish casing rules, strips diacritics and
// collapses whitespace, so "HESABINIZ ASKIYA" and "hesabiniz askiya" compare equal.
func Fold(text string) string {
	// Casers and transformers carry state, so build them per call.
	lower := cases.Lower(language.Turkish).String(text)

	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		lower,
	)
	if err != nil {
		stripped = lower
	}

	// Dotless i has no decomposition.
	stripped = strings.ReplaceAll(stripped, "ı", "i")

	return strings.Join(strings.Fields(stripped), " ")
}

// foldAll folds every phrase and drops the ones that fold to nothing
func foldAll(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if f := Fold(p); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// containsAny reports the first phrase found in folded text
func containsAny(folded string, phrases []string) (string, bool) {
	for _, p := range phrases {
		if strings.Contains(folded, p) {
			return p, true
		}
	}
	return "", false
}

// containsWord reports whether word occurs in text delimited by non-alphanumerics
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for from := 0; from <= len(text)-len(word); {
		idx := strings.Index(text[from:], word)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(word)
		if !isWordRune(lastRune(text[:start])) && !isWordRune(firstRune(text[end:])) {
			return true
		}
		from = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func firstRune(s string) rune {
	if s == "" {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func lastRune(s string) rune {
	if s == "" {
		return -1
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}
