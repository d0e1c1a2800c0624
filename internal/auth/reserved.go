// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package auth

import (
	"strings"

	"github.com/gobwas/glob"
)

// reservedPatterns lists username patterns that can never be registered:
// staff-sounding names and anything that could impersonate the game itself.
// Patterns use glob syntax and match the whole lowercased username.
var reservedPatterns = []string{
	"admin*",
	"garrison*",
	"moderator*",
	"mod",
	"gamemaster*",
	"gm",
	"official*",
	"root",
	"staff*",
	"support*",
	"system",
}

var reservedGlobs = compileReserved(reservedPatterns)

func compileReserved(patterns []string) []glob.Glob {
	globs := make([]glob.Glob, len(patterns))
	for i, p := range patterns {
		globs[i] = glob.MustCompile(p)
	}
	return globs
}

// IsReservedUsername reports whether the username matches a reserved
// pattern. Matching is case-insensitive.
func IsReservedUsername(username string) bool {
	lower := strings.ToLower(username)
	for _, g := range reservedGlobs {
		if g.Match(lower) {
			return true
		}
	}
	return false
}
