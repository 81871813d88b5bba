// Package events writes the append-only board event log.
package events

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lherron/boardq/internal/domain"
)

// Event types recorded by the store.
const (
	BoardCreated   = "board.created"
	BoardUpdated   = "board.updated"
	ColumnCreated  = "column.created"
	ColumnUpdated  = "column.updated"
	ColumnDeleted  = "column.deleted"
	CardCreated    = "card.created"
	CardUpdated    = "card.updated"
	CardMoved      = "card.moved"
	CardDeleted    = "card.deleted"
	SequenceRepair = "system.sequence_repaired"
)

// Writer handles writing events to the event log
type Writer struct {
	db *sql.DB
}

// NewWriter creates a new event writer
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// LogEvent writes an event to the event log. A nil tx writes outside any
// transaction.
func (w *Writer) LogEvent(tx *sql.Tx, event *domain.Event) error {
	if err := domain.ValidateResourceType(event.ResourceType); err != nil {
		return err
	}
	query := `
		INSERT INTO event_log (board_id, resource_type, resource_id, event_type, etag, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := w.getExecutor(tx).Exec(query, event.BoardID, event.ResourceType, event.ResourceID, event.EventType, event.ETag, event.Payload)
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// Log records eventType for a resource with payload marshalled to JSON.
// payload may be nil.
func (w *Writer) Log(tx *sql.Tx, boardID, resourceType, resourceID, eventType string, etag int64, payload any) error {
	event := &domain.Event{
		BoardID:      boardID,
		ResourceType: resourceType,
		EventType:    eventType,
	}
	if resourceID != "" {
		event.ResourceID = &resourceID
	}
	if etag > 0 {
		event.ETag = &etag
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}
		s := string(data)
		event.Payload = &s
	}
	return w.LogEvent(tx, event)
}

// LogColumnCreated logs a column creation event
func (w *Writer) LogColumnCreated(tx *sql.Tx, col *domain.Column) error {
	return w.Log(tx, col.BoardID, "column", col.ID, ColumnCreated, col.ETag, map[string]any{"title": col.Title})
}

// LogCardCreated logs a card creation event
func (w *Writer) LogCardCreated(tx *sql.Tx, card *domain.Card) error {
	return w.Log(tx, card.BoardID, "card", card.ID, CardCreated, card.ETag, map[string]any{
		"title":     card.Title,
		"column_id": card.ColumnID,
	})
}

// LogCardMoved logs a card changing columns
func (w *Writer) LogCardMoved(tx *sql.Tx, card *domain.Card, from string) error {
	return w.Log(tx, card.BoardID, "card", card.ID, CardMoved, card.ETag, map[string]any{
		"from": from,
		"to":   card.ColumnID,
	})
}

// getExecutor returns the appropriate executor (tx or db)
func (w *Writer) getExecutor(tx *sql.Tx) interface {
	Exec(query string, args ...any) (sql.Result, error)
} {
	if tx != nil {
		return tx
	}
	return w.db
}
