// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds n to [lo, hi].
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// PageBounds returns the half-open slice window [from, to) of page (1-based)
// over total items, and the page count. A page past the end yields an empty
// window.
func PageBounds(total, page, pageSize int) (from, to, pages int) {
	if total <= 0 || pageSize <= 0 {
		return 0, 0, 0
	}
	pages = (total + pageSize - 1) / pageSize
	if page < 1 {
		page = 1
	}
	from = (page - 1) * pageSize
	if from >= total {
		return total, total, pages
	}
	to = from + pageSize
	if to > total {
		to = total
	}
	return from, to, pages
}
