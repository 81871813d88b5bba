package store

import (
	"context"
	"fmt"

	"github.com/lherron/boardq/internal/cursor"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/optimistic"
)

var _ optimistic.Remote = (*Store)(nil)

// FetchBoard loads a board with its live columns and cards.
func (s *Store) FetchBoard(ctx context.Context, boardID string) (domain.Board, error) {
	return s.Boards.Get(ctx, boardID)
}

func (s *Store) CreateColumn(ctx context.Context, col domain.Column) (domain.Column, error) {
	return s.Columns.Create(ctx, col)
}

func (s *Store) CreateCard(ctx context.Context, card domain.Card) (domain.Card, error) {
	return s.Cards.Create(ctx, card)
}

func (s *Store) UpdateBoard(ctx context.Context, id string, b domain.Board) (domain.Board, error) {
	return s.Boards.Update(ctx, id, b)
}

func (s *Store) UpdateColumn(ctx context.Context, id string, col domain.Column) (domain.Column, error) {
	return s.Columns.Update(ctx, id, col)
}

func (s *Store) UpdateColumns(ctx context.Context, cols []domain.Column) ([]domain.Column, error) {
	return s.Columns.UpdateMany(ctx, cols)
}

func (s *Store) UpdateCard(ctx context.Context, id string, card domain.Card) (domain.Card, error) {
	return s.Cards.Update(ctx, id, card)
}

// CreateBoard creates an empty board.
func (s *Store) CreateBoard(ctx context.Context, title string) (domain.Board, error) {
	return s.Boards.Create(ctx, title)
}

// ListBoards returns every board without columns.
func (s *Store) ListBoards(ctx context.Context) ([]domain.Board, error) {
	return s.Boards.List(ctx)
}

// Events returns up to limit of the most recent events for a board, oldest
// first. A limit of zero or less returns all of them.
func (s *Store) Events(ctx context.Context, boardID string, limit int) ([]domain.Event, error) {
	evs, _, err := s.EventsPage(ctx, boardID, limit, "")
	return evs, err
}

// EventsPage returns one page of a board's events walking back in time.
// The page is ordered oldest first; next is empty on the last page and
// otherwise resumes with the events just before this page.
func (s *Store) EventsPage(ctx context.Context, boardID string, limit int, after string) ([]domain.Event, string, error) {
	query := `
		SELECT id, timestamp, board_id, resource_type, resource_id, event_type, etag, payload
		FROM event_log WHERE board_id = ?`
	args := []any{boardID}
	if after != "" {
		c, err := cursor.Decode(after, boardID)
		if err != nil {
			return nil, "", &domain.ValidationError{Field: "cursor", Reason: err.Error()}
		}
		where, params := c.Where()
		query += " AND " + where
		args = append(args, params...)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit+1)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	out := []domain.Event{}
	for rows.Next() {
		var (
			e  domain.Event
			ts string
		)
		if err := rows.Scan(&e.ID, &ts, &e.BoardID, &e.ResourceType, &e.ResourceID, &e.EventType, &e.ETag, &e.Payload); err != nil {
			return nil, "", fmt.Errorf("failed to scan event: %w", err)
		}
		e.Timestamp = parseTime(ts)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if limit > 0 && len(out) > limit {
		out = out[:limit]
		if next, err = (cursor.Cursor{BoardID: boardID, LastID: out[limit-1].ID}).Encode(); err != nil {
			return nil, "", err
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, next, nil
}
