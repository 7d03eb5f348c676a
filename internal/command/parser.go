// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"strings"
	"unicode"

	"github.com/samber/oops"
)

// ParsedCommand is one line of player input split into name and arguments.
type ParsedCommand struct {
	Name string // first token, case preserved
	Args string // rest of the line with inner spacing kept
	Raw  string
}

// Parse splits a line into command name and argument string.
func Parse(input string) (*ParsedCommand, error) {
	line := strings.TrimSpace(input)
	if line == "" {
		return nil, oops.Code("EMPTY_INPUT").Errorf("no command provided")
	}

	parsed := &ParsedCommand{Name: line, Raw: input}
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		parsed.Name = line[:i]
		parsed.Args = strings.TrimLeftFunc(line[i:], unicode.IsSpace)
	}
	return parsed, nil
}

// SplitArgs splits args on whitespace and reports whether exactly n
// fields were given. Passwords never contain spaces, so account commands
// take positional single-word arguments.
func SplitArgs(args string, n int) ([]string, bool) {
	fields := strings.Fields(args)
	return fields, len(fields) == n
}
