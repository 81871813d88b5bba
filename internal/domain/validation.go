package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTitleLength bounds board, column and card titles (in runes).
const MaxTitleLength = 512

// NormalizeTitle trims surrounding whitespace and rejects blank or oversized
// titles. The returned title is what callers should store.
func NormalizeTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", &ValidationError{Field: "title", Reason: "must not be blank"}
	}
	if utf8.RuneCountInString(t) > MaxTitleLength {
		return "", &ValidationError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", MaxTitleLength)}
	}
	return t, nil
}

// ValidateResourceType validates an event resource type
func ValidateResourceType(resourceType string) error {
	switch resourceType {
	case "board", "column", "card", "system":
		return nil
	default:
		return fmt.Errorf("invalid resource type: must be one of: board, column, card, system")
	}
}

// CheckOrder verifies that order is a permutation of ids.
func CheckOrder(container string, ids []string, order OrderList) error {
	want := make(map[string]int, len(ids))
	for _, id := range ids {
		want[id]++
	}
	seen := make(map[string]int, len(order))
	e := &OrderConsistencyError{Container: container}
	for _, id := range order {
		seen[id]++
		if seen[id] == 2 {
			e.Duplicate = append(e.Duplicate, id)
		}
		if want[id] == 0 && seen[id] == 1 {
			e.Extra = append(e.Extra, id)
		}
	}
	for _, id := range ids {
		if want[id] > 1 && seen[id] < 2 {
			e.Duplicate = append(e.Duplicate, id)
			want[id] = 1
		}
		if seen[id] == 0 {
			e.Missing = append(e.Missing, id)
		}
	}
	if len(e.Missing) == 0 && len(e.Extra) == 0 && len(e.Duplicate) == 0 {
		return nil
	}
	return e
}

// CheckBoard verifies the order/membership invariant for the board and every
// column on it.
func CheckBoard(b Board) error {
	ids := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		ids[i] = c.ID
	}
	if err := CheckOrder("board "+b.ID, ids, b.ColumnOrder); err != nil {
		return err
	}
	for _, c := range b.Columns {
		if err := CheckColumn(c); err != nil {
			return err
		}
	}
	return nil
}

// CheckColumn verifies the order/membership invariant for one column.
func CheckColumn(c Column) error {
	ids := make([]string, len(c.Cards))
	for i, card := range c.Cards {
		ids[i] = card.ID
	}
	return CheckOrder("column "+c.ID, ids, c.CardOrder)
}
