package medprice

import (
	"strings"
	"unicode"
)

// Similarity returns the trigram similarity of a and b in [0, 1], computed the
// way PostgreSQL's pg_trgm does: both strings are lower-cased and split into
// alphanumeric words, each word is padded with two leading blanks and one
// trailing blank, and the score is the size of the shared trigram set divided
// by the size of the union.
func Similarity(a, b string) float64 {
	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var shared int
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}

	return float64(shared) / float64(len(ta)+len(tb)-shared)
}

func trigrams(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	set := make(map[string]struct{})
	for _, w := range words {
		padded := []rune("  " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
