package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lherron/boardq/internal/db"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/events"
	"github.com/lherron/boardq/internal/id"
)

// ColumnStore handles column persistence operations.
type ColumnStore struct {
	store *Store
}

const columnColumns = `id, board_id, title, card_order, destroyed, etag, created_at, updated_at`

// Create adds a column to the end of its board's column order and logs a
// column.created event. Appending to the board's order does not bump the
// board's etag.
func (cs *ColumnStore) Create(ctx context.Context, in domain.Column) (domain.Column, error) {
	title, err := domain.NormalizeTitle(in.Title)
	if err != nil {
		return domain.Column{}, err
	}
	if in.BoardID == "" {
		return domain.Column{}, &domain.ValidationError{Field: "board_id", Reason: "is required"}
	}

	var col domain.Column
	err = cs.store.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		var order string
		err := tx.QueryRowContext(ctx, "SELECT column_order FROM boards WHERE id = ?", in.BoardID).Scan(&order)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("board", in.BoardID)
		}
		if err != nil {
			return fmt.Errorf("failed to load board: %w", err)
		}
		boardOrder, err := decodeOrder(order)
		if err != nil {
			return err
		}

		seq, err := db.NextSequence(tx, "column_seq")
		if err != nil {
			return err
		}
		now := cs.store.timestamp()
		col = domain.Column{
			ID:        id.FormatColumn(seq),
			BoardID:   in.BoardID,
			Title:     title,
			CardOrder: domain.OrderList{},
			Cards:     []domain.Card{},
			ETag:      1,
			CreatedAt: parseTime(now),
			UpdatedAt: parseTime(now),
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO board_columns (id, board_id, title, card_order, etag, created_at, updated_at)
			VALUES (?, ?, ?, '[]', 1, ?, ?)
		`, col.ID, col.BoardID, col.Title, now, now)
		if err != nil {
			return fmt.Errorf("failed to create column: %w", err)
		}

		encoded, err := encodeOrder(append(boardOrder, col.ID))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE boards SET column_order = ? WHERE id = ?", encoded, col.BoardID); err != nil {
			return fmt.Errorf("failed to append column to board: %w", err)
		}
		return ew.LogColumnCreated(tx, &col)
	})
	return col, err
}

// Get loads a live column with its cards.
func (cs *ColumnStore) Get(ctx context.Context, columnID string) (domain.Column, error) {
	return loadColumn(ctx, cs.store.db, columnID)
}

// Update persists a column's title, card order or deletion. See UpdateMany.
func (cs *ColumnStore) Update(ctx context.Context, columnID string, in domain.Column) (domain.Column, error) {
	in.ID = columnID
	out, err := cs.UpdateMany(ctx, []domain.Column{in})
	if err != nil {
		return domain.Column{}, err
	}
	return out[0], nil
}

// UpdateMany persists several columns in one transaction. For each column:
// Destroyed tombstones it (and its cards) and removes it from the board's
// column order; otherwise Title and CardOrder are applied when set. Cards
// listed in a CardOrder but held by another column of the same board move
// to this column. After all updates every touched column must list exactly
// its live cards.
func (cs *ColumnStore) UpdateMany(ctx context.Context, in []domain.Column) ([]domain.Column, error) {
	var out []domain.Column
	err := cs.store.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		for _, col := range in {
			if err := cs.update(ctx, tx, ew, col); err != nil {
				return err
			}
		}
		out = make([]domain.Column, 0, len(in))
		for _, col := range in {
			if col.Destroyed {
				out = append(out, col)
				continue
			}
			loaded, err := loadColumn(ctx, tx, col.ID)
			if err != nil {
				return err
			}
			if err := domain.CheckColumn(loaded); err != nil {
				return err
			}
			out = append(out, loaded)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (cs *ColumnStore) update(ctx context.Context, tx *sql.Tx, ew *events.Writer, in domain.Column) error {
	cur, err := loadColumn(ctx, tx, in.ID)
	if err != nil {
		return err
	}
	if err := checkETag(cur.ETag, in.ETag); err != nil {
		return err
	}

	if in.Destroyed {
		return cs.destroy(ctx, tx, ew, cur)
	}

	changes := map[string]any{}
	if in.Title != "" {
		title, err := domain.NormalizeTitle(in.Title)
		if err != nil {
			return err
		}
		if title != cur.Title {
			changes["title"] = title
		}
	}
	if in.CardOrder != nil && !sameOrder(in.CardOrder, cur.CardOrder) {
		if err := cs.adoptCards(ctx, tx, ew, cur, in.CardOrder); err != nil {
			return err
		}
		encoded, err := encodeOrder(in.CardOrder)
		if err != nil {
			return err
		}
		changes["card_order"] = encoded
	}
	if len(changes) == 0 {
		return nil
	}
	if err := cs.store.updateRow(ctx, tx, "board_columns", cur.ID, changes); err != nil {
		return err
	}
	return ew.Log(tx, cur.BoardID, "column", cur.ID, events.ColumnUpdated, cur.ETag+1, changes)
}

// adoptCards moves cards named in order that currently sit in another
// column of the same board.
func (cs *ColumnStore) adoptCards(ctx context.Context, tx *sql.Tx, ew *events.Writer, col domain.Column, order domain.OrderList) error {
	for _, cardID := range order {
		if col.CardIndex(cardID) >= 0 {
			continue
		}
		card, err := loadCard(ctx, tx, cardID)
		if errors.Is(err, domain.ErrNotFound) {
			continue // reported by the consistency check
		}
		if err != nil {
			return err
		}
		if card.BoardID != col.BoardID {
			return &domain.ValidationError{Field: "card_order", Reason: fmt.Sprintf("card %s belongs to board %s", cardID, card.BoardID)}
		}
		from := card.ColumnID
		if err := cs.store.updateRow(ctx, tx, "cards", cardID, map[string]any{"column_id": col.ID}); err != nil {
			return err
		}
		card.ColumnID = col.ID
		card.ETag++
		if err := ew.LogCardMoved(tx, &card, from); err != nil {
			return err
		}
	}
	return nil
}

func (cs *ColumnStore) destroy(ctx context.Context, tx *sql.Tx, ew *events.Writer, cur domain.Column) error {
	if err := cs.store.updateRow(ctx, tx, "board_columns", cur.ID, map[string]any{"destroyed": true}); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE cards SET destroyed = 1, etag = etag + 1, updated_at = ?
		WHERE column_id = ? AND destroyed = 0
	`, cs.store.timestamp(), cur.ID)
	if err != nil {
		return fmt.Errorf("failed to tombstone cards of column %s: %w", cur.ID, err)
	}

	var order string
	if err := tx.QueryRowContext(ctx, "SELECT column_order FROM boards WHERE id = ?", cur.BoardID).Scan(&order); err != nil {
		return fmt.Errorf("failed to load board: %w", err)
	}
	boardOrder, err := decodeOrder(order)
	if err != nil {
		return err
	}
	encoded, err := encodeOrder(without(boardOrder, cur.ID))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE boards SET column_order = ? WHERE id = ?", encoded, cur.BoardID); err != nil {
		return fmt.Errorf("failed to remove column from board: %w", err)
	}
	return ew.Log(tx, cur.BoardID, "column", cur.ID, events.ColumnDeleted, cur.ETag+1, map[string]any{
		"cards": len(cur.Cards),
	})
}

func loadColumn(ctx context.Context, q queryer, columnID string) (domain.Column, error) {
	col, err := scanColumn(q.QueryRowContext(ctx, "SELECT "+columnColumns+" FROM board_columns WHERE id = ? AND destroyed = 0", columnID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Column{}, notFound("column", columnID)
	}
	if err != nil {
		return domain.Column{}, err
	}
	cards, err := loadCards(ctx, q, "column_id", columnID)
	if err != nil {
		return domain.Column{}, err
	}
	col.Cards = cards[columnID]
	if col.Cards == nil {
		col.Cards = []domain.Card{}
	}
	return col, nil
}

func scanColumn(row interface{ Scan(...any) error }) (domain.Column, error) {
	var (
		c                       domain.Column
		order, created, updated string
	)
	if err := row.Scan(&c.ID, &c.BoardID, &c.Title, &order, &c.Destroyed, &c.ETag, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Column{}, err
		}
		return domain.Column{}, fmt.Errorf("failed to scan column: %w", err)
	}
	var err error
	if c.CardOrder, err = decodeOrder(order); err != nil {
		return domain.Column{}, err
	}
	c.CreatedAt, c.UpdatedAt = parseTime(created), parseTime(updated)
	return c, nil
}
