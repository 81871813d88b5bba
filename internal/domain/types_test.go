package domain

import (
	"testing"
)

func stringPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func TestBoardCloneDoesNotAlias(t *testing.T) {
	orig := Board{
		ID:          "B-00001",
		ColumnOrder: OrderList{"L-1"},
		Columns: []Column{{
			ID:        "L-1",
			CardOrder: OrderList{"K-1"},
			Cards:     []Card{{ID: "K-1", Title: "a", Cover: stringPtr("cover.png")}},
		}},
	}

	clone := orig.Clone()
	clone.ColumnOrder[0] = "changed"
	clone.Columns[0].CardOrder[0] = "changed"
	clone.Columns[0].Cards[0].Title = "changed"
	*clone.Columns[0].Cards[0].Cover = "changed"

	if orig.ColumnOrder[0] != "L-1" {
		t.Error("column order aliased")
	}
	if orig.Columns[0].CardOrder[0] != "K-1" {
		t.Error("card order aliased")
	}
	if orig.Columns[0].Cards[0].Title != "a" {
		t.Error("cards aliased")
	}
	if *orig.Columns[0].Cards[0].Cover != "cover.png" {
		t.Error("cover aliased")
	}
}

func TestTempID(t *testing.T) {
	id := NewTempID()
	if !IsTempID(id) {
		t.Fatalf("expected %q to be a temp ID", id)
	}
	if IsTempID("L-00001") {
		t.Error("friendly ID reported as temp ID")
	}
	if NewTempID() == id {
		t.Error("temp IDs must be unique")
	}
}

func TestDragEventPredicates(t *testing.T) {
	tests := []struct {
		name     string
		ev       DragEvent[Card]
		wantNoop bool
		wantSame bool
	}{
		{name: "noop", ev: DragEvent[Card]{SourceKey: "a", TargetKey: "a"}, wantNoop: true, wantSame: true},
		{name: "reorder", ev: DragEvent[Card]{SourceKey: "a", RemovedIndex: intPtr(0), AddedIndex: intPtr(1)}, wantSame: true},
		{name: "cross", ev: DragEvent[Card]{SourceKey: "a", RemovedIndex: intPtr(0), TargetKey: "b", AddedIndex: intPtr(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.IsNoop(); got != tt.wantNoop {
				t.Errorf("IsNoop() = %v, want %v", got, tt.wantNoop)
			}
			if got := tt.ev.SameContainer(); got != tt.wantSame {
				t.Errorf("SameContainer() = %v, want %v", got, tt.wantSame)
			}
		})
	}
}

func TestBoardLookups(t *testing.T) {
	b := Board{Columns: []Column{
		{ID: "L-1", Cards: []Card{{ID: "K-1"}}},
		{ID: "L-2", Cards: []Card{{ID: "K-2"}, {ID: "K-3"}}},
	}}
	if b.ColumnIndex("L-2") != 1 || b.ColumnIndex("nope") != -1 {
		t.Error("ColumnIndex mismatch")
	}
	card, colID, ok := b.FindCard("K-3")
	if !ok || card.ID != "K-3" || colID != "L-2" {
		t.Errorf("FindCard() = %+v, %q, %v", card, colID, ok)
	}
	if _, _, ok := b.FindCard("K-9"); ok {
		t.Error("FindCard() found a missing card")
	}
	if OrderList([]string{"x", "y"}).Index("y") != 1 {
		t.Error("OrderList.Index mismatch")
	}
}
