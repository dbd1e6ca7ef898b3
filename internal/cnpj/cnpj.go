// Package cnpj validates Brazilian company tax identifiers (CNPJ).
package cnpj

import "strings"

var (
	firstWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	secondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// Clean strips everything that is not a digit.
func Clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether raw contains a well-formed CNPJ. Punctuation is
// ignored; after cleaning the value must be exactly 14 digits, not a
// degenerate repeated sequence, and both check digits must match the
// weighted-sum formula (sum mod 11; digit is 0 when the remainder is
// below 2, otherwise 11 minus the remainder).
func Valid(raw string) bool {
	id := Clean(raw)
	if len(id) != 14 {
		return false
	}
	if strings.Count(id, id[:1]) == 14 {
		return false
	}
	if checkDigit(id, firstWeights) != int(id[12]-'0') {
		return false
	}
	return checkDigit(id, secondWeights) == int(id[13]-'0')
}

func checkDigit(id string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(id[i]-'0') * w
	}
	if r := sum % 11; r >= 2 {
		return 11 - r
	}
	return 0
}
