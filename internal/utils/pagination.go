// Package utils holds small query-parsing helpers shared by the list
// endpoints.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as an int, returning def when s is blank or not a
// number. Surrounding whitespace is ignored.
//
//	utils.AtoiDefault("42", 0)  // 42
//	utils.AtoiDefault(" 7 ", 0) // 7
//	utils.AtoiDefault("x", 5)   // 5
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds v to [lo, hi]. A hi below lo leaves v unbounded above.
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if hi >= lo && v > hi {
		return hi
	}
	return v
}

// BoundedInt parses a query value with AtoiDefault and clamps the result.
func BoundedInt(s string, def, lo, hi int) int {
	return Clamp(AtoiDefault(s, def), lo, hi)
}
