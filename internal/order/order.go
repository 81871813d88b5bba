// Package order re-sequences sibling collections to match an explicit order
// list. The physical order of a collection is never authoritative; readers
// project it through the order list after every mutation.
package order

import (
	"sort"

	"github.com/lherron/boardq/internal/domain"
)

// Project returns a new slice holding items in the sequence given by order.
//
// Items whose key is absent from order sort last, keeping their relative
// input order. Identifiers in order with no matching item are skipped. A nil
// key function, empty items or empty order yields an empty slice. items is
// never modified.
func Project[T any](items []T, order []string, key func(T) string) []T {
	if len(items) == 0 || len(order) == 0 || key == nil {
		return []T{}
	}

	rank := make(map[string]int, len(order))
	for i, id := range order {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}

	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[key(out[i])]
		rj, jok := rank[key(out[j])]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		default:
			return false
		}
	})
	return out
}

// Keys returns the order list describing the physical order of items.
func Keys[T any](items []T, key func(T) string) domain.OrderList {
	out := make(domain.OrderList, len(items))
	for i, item := range items {
		out[i] = key(item)
	}
	return out
}

// Consistent reports an *domain.OrderConsistencyError when order is not a
// permutation of the keys of items.
func Consistent[T any](container string, items []T, order []string, key func(T) string) error {
	return domain.CheckOrder(container, Keys(items, key), order)
}

// HydrateBoard verifies the membership invariant of a fetched board, then
// projects its columns through ColumnOrder and each column's cards through
// its CardOrder. The input board is not modified.
func HydrateBoard(b domain.Board) (domain.Board, error) {
	if err := domain.CheckBoard(b); err != nil {
		return domain.Board{}, err
	}
	out := b.Clone()
	out.Columns = Project(out.Columns, out.ColumnOrder, domain.ColumnKey)
	for i := range out.Columns {
		out.Columns[i].Cards = Project(out.Columns[i].Cards, out.Columns[i].CardOrder, domain.CardKey)
	}
	return out, nil
}
