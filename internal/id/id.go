package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var friendlyPattern = regexp.MustCompile(`^([BLK])-(\d{5,})$`)

// Type represents the type of resource
type Type string

const (
	TypeBoard  Type = "board"
	TypeColumn Type = "column"
	TypeCard   Type = "card"
)

var prefixes = map[string]Type{
	"B": TypeBoard,
	"L": TypeColumn,
	"K": TypeCard,
}

// FormatBoard formats a board friendly ID
func FormatBoard(seq int) string {
	return fmt.Sprintf("B-%05d", seq)
}

// FormatColumn formats a column friendly ID. Columns are "lists", hence L.
func FormatColumn(seq int) string {
	return fmt.Sprintf("L-%05d", seq)
}

// FormatCard formats a card friendly ID
func FormatCard(seq int) string {
	return fmt.Sprintf("K-%05d", seq)
}

// Parse parses an ID string and returns the type and sequence number
func Parse(s string) (Type, int, error) {
	m := friendlyPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", 0, fmt.Errorf("invalid friendly ID format: %s", s)
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, fmt.Errorf("invalid friendly ID sequence: %s", s)
	}
	return prefixes[m[1]], seq, nil
}

// IsFriendlyID checks if a string is a valid friendly ID
func IsFriendlyID(s string) bool {
	_, _, err := Parse(s)
	return err == nil
}

// Expect parses s and fails unless it names a resource of type want.
func Expect(s string, want Type) (string, error) {
	typ, _, err := Parse(s)
	if err != nil {
		return "", err
	}
	if typ != want {
		return "", fmt.Errorf("%s is a %s ID, expected a %s", s, typ, want)
	}
	return strings.TrimSpace(s), nil
}
