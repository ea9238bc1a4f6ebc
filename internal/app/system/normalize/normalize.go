// Package normalize provides canonicalization helpers for user input.
// All comparison keys go through these before hitting the database so
// lookups and uniqueness checks behave the same regardless of how a
// value was typed.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Username lowercases and trims a username.
func Username(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims whitespace but preserves case for display.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Role lowercases and trims a role value.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status lowercases and trims a status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Category lowercases and trims a task category value.
func Category(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Difficulty lowercases and trims a task difficulty value.
func Difficulty(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims whitespace from a free-text query parameter,
// preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
