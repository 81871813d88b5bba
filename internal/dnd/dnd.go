// Package dnd applies finished drag-and-drop gestures to board snapshots.
//
// Indices in a drag event always refer to presentation order, so every
// operation projects the touched collections through their order lists
// before splicing and rewrites the order lists from the result.
package dnd

import (
	"fmt"

	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/order"
)

// Apply removes the element at removed (when non-nil) and inserts an element
// at added (when non-nil), returning a new slice. The inserted element is the
// removed one if there was a removal, otherwise *payload. added is clamped to
// the bounds of the slice after removal.
func Apply[T any](items []T, removed, added *int, payload *T) ([]T, error) {
	out := make([]T, len(items))
	copy(out, items)

	var moving T
	have := false
	if payload != nil {
		moving = *payload
		have = true
	}

	if removed != nil {
		r := *removed
		if r < 0 || r >= len(out) {
			return nil, &domain.ValidationError{
				Field:  "removed_index",
				Reason: fmt.Sprintf("%d out of range [0,%d)", r, len(out)),
			}
		}
		moving = out[r]
		have = true
		out = append(out[:r], out[r+1:]...)
	}

	if added != nil {
		if !have {
			return nil, &domain.ValidationError{Field: "payload", Reason: "required when nothing was removed"}
		}
		a := clamp(*added, len(out))
		out = append(out, moving)
		copy(out[a+1:], out[a:])
		out[a] = moving
	}

	return out, nil
}

// Reorder moves the element at from to position to within one slice.
func Reorder[T any](items []T, from, to int) ([]T, error) {
	return Apply(items, &from, &to, nil)
}

// MoveColumn applies a column drag to the board. Both container keys must be
// empty or name the board itself.
func MoveColumn(b domain.Board, ev domain.DragEvent[domain.Column]) (domain.Board, error) {
	if ev.IsNoop() {
		return b, nil
	}
	for _, key := range []string{ev.SourceKey, ev.TargetKey} {
		if key != "" && key != b.ID {
			return domain.Board{}, &domain.ValidationError{
				Field:  "container",
				Reason: fmt.Sprintf("columns can only move within board %s, got %s", b.ID, key),
			}
		}
	}
	if err := requireBothIndices(ev.RemovedIndex, ev.AddedIndex); err != nil {
		return domain.Board{}, err
	}

	out, err := order.HydrateBoard(b)
	if err != nil {
		return domain.Board{}, err
	}
	if ev.Payload != nil {
		if err := checkPayload(out.Columns, *ev.RemovedIndex, ev.Payload.ID, domain.ColumnKey); err != nil {
			return domain.Board{}, err
		}
	}

	cols, err := Apply(out.Columns, ev.RemovedIndex, ev.AddedIndex, nil)
	if err != nil {
		return domain.Board{}, err
	}
	out.Columns = cols
	out.ColumnOrder = order.Keys(cols, domain.ColumnKey)

	if err := domain.CheckBoard(out); err != nil {
		return domain.Board{}, err
	}
	return out, nil
}

// MoveCard applies a card drag to the board: a reorder when source and target
// are the same column, otherwise a move between columns that rewrites the
// card's ColumnID.
func MoveCard(b domain.Board, ev domain.DragEvent[domain.Card]) (domain.Board, error) {
	if ev.IsNoop() {
		return b, nil
	}
	if err := requireBothIndices(ev.RemovedIndex, ev.AddedIndex); err != nil {
		return domain.Board{}, err
	}

	out, err := order.HydrateBoard(b)
	if err != nil {
		return domain.Board{}, err
	}

	srcIdx := out.ColumnIndex(ev.SourceKey)
	if srcIdx < 0 {
		return domain.Board{}, fmt.Errorf("source column %s: %w", ev.SourceKey, domain.ErrNotFound)
	}
	src := &out.Columns[srcIdx]
	if ev.Payload != nil {
		if err := checkPayload(src.Cards, *ev.RemovedIndex, ev.Payload.ID, domain.CardKey); err != nil {
			return domain.Board{}, err
		}
	}

	if ev.SameContainer() {
		cards, err := Apply(src.Cards, ev.RemovedIndex, ev.AddedIndex, nil)
		if err != nil {
			return domain.Board{}, err
		}
		src.Cards = cards
		src.CardOrder = order.Keys(cards, domain.CardKey)
	} else {
		tgtIdx := out.ColumnIndex(ev.TargetKey)
		if tgtIdx < 0 {
			return domain.Board{}, fmt.Errorf("target column %s: %w", ev.TargetKey, domain.ErrNotFound)
		}
		tgt := &out.Columns[tgtIdx]

		remaining, err := Apply(src.Cards, ev.RemovedIndex, nil, nil)
		if err != nil {
			return domain.Board{}, err
		}
		card := src.Cards[*ev.RemovedIndex]
		card.ColumnID = tgt.ID

		cards, err := Apply(tgt.Cards, nil, ev.AddedIndex, &card)
		if err != nil {
			return domain.Board{}, err
		}

		src.Cards = remaining
		src.CardOrder = order.Keys(remaining, domain.CardKey)
		tgt.Cards = cards
		tgt.CardOrder = order.Keys(cards, domain.CardKey)
	}

	if err := domain.CheckBoard(out); err != nil {
		return domain.Board{}, err
	}
	return out, nil
}

// requireBothIndices rejects half-specified drags. A removal without an
// insertion (or the reverse) would drop or duplicate an entity.
func requireBothIndices(removed, added *int) error {
	switch {
	case removed == nil:
		return &domain.ValidationError{Field: "removed_index", Reason: "required when added_index is set"}
	case added == nil:
		return &domain.ValidationError{Field: "added_index", Reason: "required when removed_index is set"}
	}
	return nil
}

func checkPayload[T any](items []T, removed int, id string, key func(T) string) error {
	if removed < 0 || removed >= len(items) {
		return nil // Apply reports the range error
	}
	if got := key(items[removed]); got != id {
		return &domain.ValidationError{
			Field:  "payload",
			Reason: fmt.Sprintf("expected %s at index %d, found %s", id, removed, got),
		}
	}
	return nil
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
