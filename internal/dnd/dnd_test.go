package dnd

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/order"
)

func idx(i int) *int { return &i }

func card(id, col string) domain.Card {
	return domain.Card{ID: id, ColumnID: col, BoardID: "B-1", Title: id}
}

// twoColumnBoard builds C1{a,b}, C2{c}.
func twoColumnBoard() domain.Board {
	return domain.Board{
		ID:          "B-1",
		ColumnOrder: domain.OrderList{"C1", "C2"},
		Columns: []domain.Column{
			{ID: "C1", BoardID: "B-1", CardOrder: domain.OrderList{"a", "b"}, Cards: []domain.Card{card("a", "C1"), card("b", "C1")}},
			{ID: "C2", BoardID: "B-1", CardOrder: domain.OrderList{"c"}, Cards: []domain.Card{card("c", "C2")}},
		},
	}
}

func cardIDs(c domain.Column) []string {
	return order.Keys(c.Cards, domain.CardKey)
}

func TestApply(t *testing.T) {
	items := []string{"a", "b", "c", "d"}

	tests := []struct {
		name    string
		removed *int
		added   *int
		payload *string
		want    []string
	}{
		{name: "move down", removed: idx(0), added: idx(2), want: []string{"b", "c", "a", "d"}},
		{name: "move up", removed: idx(3), added: idx(1), want: []string{"a", "d", "b", "c"}},
		{name: "same index", removed: idx(1), added: idx(1), want: []string{"a", "b", "c", "d"}},
		{name: "remove only", removed: idx(1), want: []string{"a", "c", "d"}},
		{name: "add only", added: idx(0), payload: strPtr("z"), want: []string{"z", "a", "b", "c", "d"}},
		{name: "added clamped high", removed: idx(0), added: idx(99), want: []string{"b", "c", "d", "a"}},
		{name: "added clamped low", removed: idx(2), added: idx(-5), want: []string{"c", "a", "b", "d"}},
		{name: "nothing", want: []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(items, tt.removed, tt.added, tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{"a", "b", "c", "d"}, items, "input must not be modified")
		})
	}
}

func strPtr(s string) *string { return &s }

func TestApply_Errors(t *testing.T) {
	items := []string{"a", "b"}

	_, err := Apply(items, idx(2), idx(0), nil)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "removed_index", ve.Field)

	_, err = Apply(items, nil, idx(0), nil)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "payload", ve.Field)
}

func TestReorderRoundTrip(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	for i := range items {
		for j := range items {
			there, err := Reorder(items, i, j)
			require.NoError(t, err)
			back, err := Reorder(there, j, i)
			require.NoError(t, err)
			assert.Equal(t, items, back, "i=%d j=%d", i, j)
		}
	}
}

func TestMoveCard_AcrossColumns(t *testing.T) {
	b := twoColumnBoard()

	got, err := MoveCard(b, domain.DragEvent[domain.Card]{
		SourceKey: "C1", RemovedIndex: idx(0),
		TargetKey: "C2", AddedIndex: idx(1),
	})
	require.NoError(t, err)

	c1, _ := got.Column("C1")
	c2, _ := got.Column("C2")
	assert.Equal(t, []string{"b"}, cardIDs(c1))
	assert.Equal(t, domain.OrderList{"b"}, c1.CardOrder)
	assert.Equal(t, []string{"c", "a"}, cardIDs(c2))
	assert.Equal(t, domain.OrderList{"c", "a"}, c2.CardOrder)
	assert.Equal(t, "C2", c2.Cards[1].ColumnID)

	orig, _ := b.Column("C1")
	assert.Equal(t, []string{"a", "b"}, cardIDs(orig), "input board must not be modified")
}

func TestMoveCard_ConservesCount(t *testing.T) {
	b := twoColumnBoard()
	before := len(b.Columns[0].Cards) + len(b.Columns[1].Cards)

	got, err := MoveCard(b, domain.DragEvent[domain.Card]{
		SourceKey: "C2", RemovedIndex: idx(0),
		TargetKey: "C1", AddedIndex: idx(0),
	})
	require.NoError(t, err)

	assert.Equal(t, before, len(got.Columns[0].Cards)+len(got.Columns[1].Cards))
	c1, _ := got.Column("C1")
	assert.Equal(t, []string{"c", "a", "b"}, cardIDs(c1))
	assert.Equal(t, "C1", c1.Cards[0].ColumnID)
}

func TestMoveCard_ReorderWithinColumn(t *testing.T) {
	b := twoColumnBoard()

	got, err := MoveCard(b, domain.DragEvent[domain.Card]{
		SourceKey: "C1", RemovedIndex: idx(0),
		TargetKey: "C1", AddedIndex: idx(1),
	})
	require.NoError(t, err)

	c1, _ := got.Column("C1")
	assert.Equal(t, domain.OrderList{"b", "a"}, c1.CardOrder)
	assert.Equal(t, []string{"b", "a"}, cardIDs(c1))
}

func TestMoveCard_UsesPresentationOrder(t *testing.T) {
	b := twoColumnBoard()
	// Physical storage order differs from the order list.
	b.Columns[0].Cards = []domain.Card{card("b", "C1"), card("a", "C1")}

	got, err := MoveCard(b, domain.DragEvent[domain.Card]{
		SourceKey: "C1", RemovedIndex: idx(0),
		TargetKey: "C2", AddedIndex: idx(0),
	})
	require.NoError(t, err)

	c2, _ := got.Column("C2")
	assert.Equal(t, domain.OrderList{"a", "c"}, c2.CardOrder, "index 0 is card a in presentation order")
}

func TestMoveCard_NoopReturnsInputUnchanged(t *testing.T) {
	b := twoColumnBoard()

	got, err := MoveCard(b, domain.DragEvent[domain.Card]{SourceKey: "C1", TargetKey: "C2"})
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestMoveCard_Errors(t *testing.T) {
	b := twoColumnBoard()

	tests := []struct {
		name string
		ev   domain.DragEvent[domain.Card]
		is   error
	}{
		{name: "unknown source", ev: domain.DragEvent[domain.Card]{SourceKey: "C9", RemovedIndex: idx(0), TargetKey: "C1", AddedIndex: idx(0)}, is: domain.ErrNotFound},
		{name: "unknown target", ev: domain.DragEvent[domain.Card]{SourceKey: "C1", RemovedIndex: idx(0), TargetKey: "C9", AddedIndex: idx(0)}, is: domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MoveCard(b, tt.ev)
			assert.ErrorIs(t, err, tt.is)
		})
	}

	var ve *domain.ValidationError
	_, err := MoveCard(b, domain.DragEvent[domain.Card]{SourceKey: "C1", RemovedIndex: idx(0), TargetKey: "C2"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "added_index", ve.Field)

	_, err = MoveCard(b, domain.DragEvent[domain.Card]{SourceKey: "C1", TargetKey: "C2", AddedIndex: idx(0)})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "removed_index", ve.Field)

	wrong := card("b", "C1")
	_, err = MoveCard(b, domain.DragEvent[domain.Card]{SourceKey: "C1", RemovedIndex: idx(0), TargetKey: "C2", AddedIndex: idx(0), Payload: &wrong})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "payload", ve.Field)
}

func TestMoveCard_InconsistentInputFailsLoudly(t *testing.T) {
	b := twoColumnBoard()
	b.Columns[0].CardOrder = domain.OrderList{"a"}

	_, err := MoveCard(b, domain.DragEvent[domain.Card]{SourceKey: "C1", RemovedIndex: idx(0), TargetKey: "C2", AddedIndex: idx(0)})

	var oe *domain.OrderConsistencyError
	require.ErrorAs(t, err, &oe)
}

func TestMoveColumn(t *testing.T) {
	b := twoColumnBoard()
	b.Columns = append(b.Columns, domain.Column{ID: "C3", BoardID: "B-1"})
	b.ColumnOrder = append(b.ColumnOrder, "C3")

	got, err := MoveColumn(b, domain.DragEvent[domain.Column]{RemovedIndex: idx(2), AddedIndex: idx(0)})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderList{"C3", "C1", "C2"}, got.ColumnOrder)
	assert.Equal(t, domain.OrderList{"C3", "C1", "C2"}, order.Keys(got.Columns, domain.ColumnKey))
	assert.Equal(t, domain.OrderList{"C1", "C2", "C3"}, b.ColumnOrder, "input board must not be modified")

	back, err := MoveColumn(got, domain.DragEvent[domain.Column]{SourceKey: "B-1", RemovedIndex: idx(0), TargetKey: "B-1", AddedIndex: idx(2)})
	require.NoError(t, err)
	assert.Equal(t, b.ColumnOrder, back.ColumnOrder)
}

func TestMoveColumn_RejectsOtherBoard(t *testing.T) {
	_, err := MoveColumn(twoColumnBoard(), domain.DragEvent[domain.Column]{SourceKey: "B-2", RemovedIndex: idx(0), AddedIndex: idx(1)})

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "container", ve.Field)
}

func TestRandomDragsKeepInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	b := domain.Board{ID: "B-1"}
	total := 0
	for c := 0; c < 4; c++ {
		col := domain.Column{ID: string(rune('P' + c)), BoardID: "B-1"}
		for k := 0; k < c+1; k++ {
			id := col.ID + string(rune('a'+k))
			col.Cards = append(col.Cards, card(id, col.ID))
			col.CardOrder = append(col.CardOrder, id)
			total++
		}
		b.Columns = append(b.Columns, col)
		b.ColumnOrder = append(b.ColumnOrder, col.ID)
	}

	for step := 0; step < 500; step++ {
		var err error
		if rng.Intn(4) == 0 {
			n := len(b.Columns)
			b, err = MoveColumn(b, domain.DragEvent[domain.Column]{RemovedIndex: idx(rng.Intn(n)), AddedIndex: idx(rng.Intn(n))})
			require.NoError(t, err)
			continue
		}
		src := b.Columns[rng.Intn(len(b.Columns))]
		if len(src.Cards) == 0 {
			continue
		}
		tgt := b.Columns[rng.Intn(len(b.Columns))]
		b, err = MoveCard(b, domain.DragEvent[domain.Card]{
			SourceKey: src.ID, RemovedIndex: idx(rng.Intn(len(src.Cards))),
			TargetKey: tgt.ID, AddedIndex: idx(rng.Intn(len(tgt.Cards) + 1)),
		})
		require.NoError(t, err)

		require.NoError(t, domain.CheckBoard(b), "step %d", step)
		count := 0
		for _, c := range b.Columns {
			count += len(c.Cards)
			for _, k := range c.Cards {
				require.Equal(t, c.ID, k.ColumnID)
			}
		}
		require.Equal(t, total, count, "step %d", step)
	}
}
