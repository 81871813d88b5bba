package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TempIDPrefix marks identifiers generated locally for entities the store
// has not confirmed yet.
const TempIDPrefix = "tmp-"

// OrderList is an explicit sequence of sibling identifiers. It is the only
// source of truth for presentation order.
type OrderList []string

// Board represents a kanban board
type Board struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	ColumnOrder OrderList `json:"column_order" yaml:"column_order"`
	Columns     []Column  `json:"columns" yaml:"columns"`
	ETag        int64     `json:"etag" yaml:"etag"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// Column represents a kanban column (list) on a board
type Column struct {
	ID        string    `json:"id" yaml:"id"`
	BoardID   string    `json:"board_id" yaml:"board_id"`
	Title     string    `json:"title" yaml:"title"`
	CardOrder OrderList `json:"card_order" yaml:"card_order"`
	Cards     []Card    `json:"cards" yaml:"cards"`
	Destroyed bool      `json:"destroyed,omitempty" yaml:"destroyed,omitempty"`
	ETag      int64     `json:"etag" yaml:"etag"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Card represents a card inside a column
type Card struct {
	ID        string    `json:"id" yaml:"id"`
	BoardID   string    `json:"board_id" yaml:"board_id"`
	ColumnID  string    `json:"column_id" yaml:"column_id"`
	Title     string    `json:"title" yaml:"title"`
	Cover     *string   `json:"cover,omitempty" yaml:"cover,omitempty"`
	Destroyed bool      `json:"destroyed,omitempty" yaml:"destroyed,omitempty"`
	ETag      int64     `json:"etag" yaml:"etag"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// DragEvent describes a finished drag-and-drop gesture. SourceKey and TargetKey
// identify the containers; a nil RemovedIndex means nothing left the source and
// a nil AddedIndex means nothing entered the target.
type DragEvent[T any] struct {
	SourceKey    string `json:"source_key"`
	RemovedIndex *int   `json:"removed_index"`
	TargetKey    string `json:"target_key"`
	AddedIndex   *int   `json:"added_index"`
	Payload      *T     `json:"payload,omitempty"`
}

// IsNoop reports whether the event changes neither membership nor position.
func (e DragEvent[T]) IsNoop() bool {
	return e.RemovedIndex == nil && e.AddedIndex == nil
}

// SameContainer reports whether the drag stayed inside one container.
func (e DragEvent[T]) SameContainer() bool {
	return e.TargetKey == "" || e.SourceKey == e.TargetKey
}

// Key helpers used by the order projector.
func ColumnKey(c Column) string { return c.ID }
func CardKey(c Card) string     { return c.ID }

// NewTempID returns a locally generated identifier for an unconfirmed entity.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was produced by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Clone returns a deep copy of the board. Engine operations clone before
// mutating so that callers' snapshots are never aliased.
func (b Board) Clone() Board {
	out := b
	out.ColumnOrder = cloneOrder(b.ColumnOrder)
	if b.Columns != nil {
		out.Columns = make([]Column, len(b.Columns))
		for i, c := range b.Columns {
			out.Columns[i] = c.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the column.
func (c Column) Clone() Column {
	out := c
	out.CardOrder = cloneOrder(c.CardOrder)
	if c.Cards != nil {
		out.Cards = make([]Card, len(c.Cards))
		for i, card := range c.Cards {
			out.Cards[i] = card.Clone()
		}
	}
	return out
}

// Clone returns a copy of the card that does not share the cover pointer.
func (c Card) Clone() Card {
	out := c
	if c.Cover != nil {
		cover := *c.Cover
		out.Cover = &cover
	}
	return out
}

// ColumnIndex returns the position of the column with the given ID in the
// physical collection, or -1.
func (b Board) ColumnIndex(id string) int {
	for i, c := range b.Columns {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Column looks up a column by ID.
func (b Board) Column(id string) (Column, bool) {
	if i := b.ColumnIndex(id); i >= 0 {
		return b.Columns[i], true
	}
	return Column{}, false
}

// FindCard returns the card and the ID of the column holding it.
func (b Board) FindCard(id string) (Card, string, bool) {
	for _, c := range b.Columns {
		if i := c.CardIndex(id); i >= 0 {
			return c.Cards[i], c.ID, true
		}
	}
	return Card{}, "", false
}

// CardIndex returns the position of the card with the given ID, or -1.
func (c Column) CardIndex(id string) int {
	for i, card := range c.Cards {
		if card.ID == id {
			return i
		}
	}
	return -1
}

// Index returns the position of id in the order list, or -1.
func (o OrderList) Index(id string) int {
	for i, v := range o {
		if v == id {
			return i
		}
	}
	return -1
}

func cloneOrder(o OrderList) OrderList {
	if o == nil {
		return nil
	}
	out := make(OrderList, len(o))
	copy(out, o)
	return out
}

// Event represents an event in the event log
type Event struct {
	ID           int64     `json:"id" db:"id"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	BoardID      string    `json:"board_id" db:"board_id"`
	ResourceType string    `json:"resource_type" db:"resource_type"`
	ResourceID   *string   `json:"resource_id,omitempty" db:"resource_id"`
	EventType    string    `json:"event_type" db:"event_type"`
	ETag         *int64    `json:"etag,omitempty" db:"etag"`
	Payload      *string   `json:"payload,omitempty" db:"payload"` // JSON
}
