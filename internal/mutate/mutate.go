// Package mutate applies structural edits (insert, rename, soft delete) to
// board snapshots while keeping each parent's order list in lockstep with its
// collection. Every function returns a new value; inputs are never modified.
package mutate

import (
	"fmt"

	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/order"
)

// InsertColumn appends col to the board and its ID to ColumnOrder.
func InsertColumn(b domain.Board, col domain.Column) (domain.Board, error) {
	return InsertColumnAt(b, col, -1)
}

// InsertColumnAt inserts col at presentation index at. A negative or
// out-of-range index appends.
func InsertColumnAt(b domain.Board, col domain.Column, at int) (domain.Board, error) {
	if col.ID == "" {
		return domain.Board{}, &domain.ValidationError{Field: "id", Reason: "column id is required"}
	}
	if b.ColumnIndex(col.ID) >= 0 {
		return domain.Board{}, &domain.ValidationError{Field: "id", Reason: fmt.Sprintf("column %s already on board", col.ID)}
	}
	if err := domain.CheckColumn(col); err != nil {
		return domain.Board{}, err
	}

	out, err := order.HydrateBoard(b)
	if err != nil {
		return domain.Board{}, err
	}
	col = col.Clone()
	col.BoardID = b.ID
	if col.CardOrder == nil {
		col.CardOrder = domain.OrderList{}
	}
	if col.Cards == nil {
		col.Cards = []domain.Card{}
	}

	out.Columns = insertAt(out.Columns, col, at)
	out.ColumnOrder = order.Keys(out.Columns, domain.ColumnKey)
	return out, domain.CheckBoard(out)
}

// InsertCard appends card to the column and its ID to the column's CardOrder.
func InsertCard(b domain.Board, columnID string, card domain.Card) (domain.Board, error) {
	return InsertCardAt(b, columnID, card, -1)
}

// InsertCardAt inserts card into the column at presentation index at. A
// negative or out-of-range index appends.
func InsertCardAt(b domain.Board, columnID string, card domain.Card, at int) (domain.Board, error) {
	if card.ID == "" {
		return domain.Board{}, &domain.ValidationError{Field: "id", Reason: "card id is required"}
	}
	if _, _, ok := b.FindCard(card.ID); ok {
		return domain.Board{}, &domain.ValidationError{Field: "id", Reason: fmt.Sprintf("card %s already on board", card.ID)}
	}

	out, err := order.HydrateBoard(b)
	if err != nil {
		return domain.Board{}, err
	}
	ci := out.ColumnIndex(columnID)
	if ci < 0 {
		return domain.Board{}, fmt.Errorf("column %s: %w", columnID, domain.ErrNotFound)
	}
	col := &out.Columns[ci]

	card = card.Clone()
	card.ColumnID = col.ID
	card.BoardID = b.ID
	col.Cards = insertAt(col.Cards, card, at)
	col.CardOrder = order.Keys(col.Cards, domain.CardKey)
	return out, domain.CheckBoard(out)
}

// RenameColumn returns a copy of col with the new title. changed is false when
// the normalized title equals the current one; there is nothing to persist.
func RenameColumn(col domain.Column, title string) (domain.Column, bool, error) {
	t, err := domain.NormalizeTitle(title)
	if err != nil {
		return col, false, err
	}
	if t == col.Title {
		return col, false, nil
	}
	out := col.Clone()
	out.Title = t
	return out, true, nil
}

// RenameCard returns a copy of card with the new title. See RenameColumn.
func RenameCard(card domain.Card, title string) (domain.Card, bool, error) {
	t, err := domain.NormalizeTitle(title)
	if err != nil {
		return card, false, err
	}
	if t == card.Title {
		return card, false, nil
	}
	out := card.Clone()
	out.Title = t
	return out, true, nil
}

// RenameBoard returns a copy of b with the new title. See RenameColumn.
func RenameBoard(b domain.Board, title string) (domain.Board, bool, error) {
	t, err := domain.NormalizeTitle(title)
	if err != nil {
		return b, false, err
	}
	if t == b.Title {
		return b, false, nil
	}
	out := b.Clone()
	out.Title = t
	return out, true, nil
}

// SoftDeleteColumn returns a copy of col flagged as destroyed.
func SoftDeleteColumn(col domain.Column) domain.Column {
	out := col.Clone()
	out.Destroyed = true
	return out
}

// SoftDeleteCard returns a copy of card flagged as destroyed.
func SoftDeleteCard(card domain.Card) domain.Card {
	out := card.Clone()
	out.Destroyed = true
	return out
}

// RemoveColumn takes the column out of the board's collection and
// ColumnOrder. It returns the removed column and the presentation index it
// occupied so the removal can be undone with InsertColumnAt.
func RemoveColumn(b domain.Board, id string) (domain.Board, domain.Column, int, error) {
	out, err := order.HydrateBoard(b)
	if err != nil {
		return domain.Board{}, domain.Column{}, -1, err
	}
	i := out.ColumnIndex(id)
	if i < 0 {
		return domain.Board{}, domain.Column{}, -1, fmt.Errorf("column %s: %w", id, domain.ErrNotFound)
	}
	removed := out.Columns[i]
	out.Columns = append(out.Columns[:i], out.Columns[i+1:]...)
	out.ColumnOrder = order.Keys(out.Columns, domain.ColumnKey)
	return out, removed, i, domain.CheckBoard(out)
}

// RemoveCard takes the card out of whichever column holds it. It returns the
// removed card and its presentation index within that column.
func RemoveCard(b domain.Board, id string) (domain.Board, domain.Card, int, error) {
	out, err := order.HydrateBoard(b)
	if err != nil {
		return domain.Board{}, domain.Card{}, -1, err
	}
	_, columnID, ok := out.FindCard(id)
	if !ok {
		return domain.Board{}, domain.Card{}, -1, fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}
	col := &out.Columns[out.ColumnIndex(columnID)]
	i := col.CardIndex(id)
	removed := col.Cards[i]
	col.Cards = append(col.Cards[:i], col.Cards[i+1:]...)
	col.CardOrder = order.Keys(col.Cards, domain.CardKey)
	return out, removed, i, domain.CheckBoard(out)
}

// ReplaceColumn swaps the column with the same ID for col, keeping its
// position. The replacement must satisfy its own order invariant.
func ReplaceColumn(b domain.Board, col domain.Column) (domain.Board, error) {
	i := b.ColumnIndex(col.ID)
	if i < 0 {
		return domain.Board{}, fmt.Errorf("column %s: %w", col.ID, domain.ErrNotFound)
	}
	out := b.Clone()
	out.Columns[i] = col.Clone()
	return out, domain.CheckBoard(out)
}

// ReplaceCard swaps the card with the same ID for card, keeping its column
// and position.
func ReplaceCard(b domain.Board, card domain.Card) (domain.Board, error) {
	_, columnID, ok := b.FindCard(card.ID)
	if !ok {
		return domain.Board{}, fmt.Errorf("card %s: %w", card.ID, domain.ErrNotFound)
	}
	out := b.Clone()
	col := &out.Columns[out.ColumnIndex(columnID)]
	card = card.Clone()
	card.ColumnID = columnID
	col.Cards[col.CardIndex(card.ID)] = card
	return out, nil
}

func insertAt[T any](items []T, item T, at int) []T {
	if at < 0 || at > len(items) {
		at = len(items)
	}
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:at]...)
	out = append(out, item)
	return append(out, items[at:]...)
}
