// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package identity canonicalizes player names into lookup keys.
//
// Every cache and store lookup is keyed by the normalized form, so
// "TestEr", " tester " and "TESTER" all address the same account.
package identity

import "strings"

// Key is the canonical, lowercase form of a player name.
type Key string

// Normalize trims surrounding whitespace and lowercases name.
func Normalize(name string) Key {
	return Key(strings.ToLower(strings.TrimSpace(name)))
}

// String returns the key as a plain string.
func (k Key) String() string {
	return string(k)
}

// IsZero reports whether the key is empty.
func (k Key) IsZero() bool {
	return k == ""
}

// Equal reports whether two raw names resolve to the same key.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
