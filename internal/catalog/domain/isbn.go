package domain

import "strings"

// NormalizeISBN strips separators and upper-cases a trailing check digit X.
func NormalizeISBN(raw string) string {
	return strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(raw)))
}
