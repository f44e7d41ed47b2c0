package ledger

import (
	"strings"
	"unicode"
)

// The bonus store identifies securities by company name only, while the
// transaction store carries free-text security names. Both sides get reduced
// to the same normalized form before joining: upper case, punctuation
// stripped, long legal suffixes collapsed to their short variants.
var suffixReplacements = map[string]string{
	"LIMITED":      "LTD",
	"INCORPORATED": "INC",
	"CORPORATION":  "CORP",
	"PRIVATE":      "PVT",
}

// NormalizeCompanyName reduces a security or company name to its join key.
func NormalizeCompanyName(name string) string {
	upper := strings.ToUpper(name)

	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	for i, w := range words {
		if short, ok := suffixReplacements[w]; ok {
			words[i] = short
		}
	}

	return strings.Join(words, " ")
}
