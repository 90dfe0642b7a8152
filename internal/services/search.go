package services

import "strings"

// containsPattern builds the LIKE argument for a case-insensitive substring
// search against LOWER(column). SQLite's LOWER folds ASCII only, so on SQLite
// "łukasz" does not match "Łukasz" while Postgres matches it. Keep LOWER on both
// sides of the comparison so the two drivers fold the same way for ASCII terms.
func containsPattern(term string) string {
	return "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
}
