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

// CardStore handles card persistence operations.
type CardStore struct {
	store *Store
}

const cardColumns = `id, board_id, column_id, title, cover, destroyed, etag, created_at, updated_at`

// Create appends a card to a live column and logs a card.created event.
// Appending to the column's order does not bump the column's etag.
func (cs *CardStore) Create(ctx context.Context, in domain.Card) (domain.Card, error) {
	title, err := domain.NormalizeTitle(in.Title)
	if err != nil {
		return domain.Card{}, err
	}
	if in.ColumnID == "" {
		return domain.Card{}, &domain.ValidationError{Field: "column_id", Reason: "is required"}
	}

	var card domain.Card
	err = cs.store.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		var boardID, order string
		err := tx.QueryRowContext(ctx, "SELECT board_id, card_order FROM board_columns WHERE id = ? AND destroyed = 0", in.ColumnID).
			Scan(&boardID, &order)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("column", in.ColumnID)
		}
		if err != nil {
			return fmt.Errorf("failed to load column: %w", err)
		}
		if in.BoardID != "" && in.BoardID != boardID {
			return &domain.ValidationError{Field: "board_id", Reason: fmt.Sprintf("column %s belongs to board %s", in.ColumnID, boardID)}
		}
		cardOrder, err := decodeOrder(order)
		if err != nil {
			return err
		}

		seq, err := db.NextSequence(tx, "card_seq")
		if err != nil {
			return err
		}
		now := cs.store.timestamp()
		card = domain.Card{
			ID:        id.FormatCard(seq),
			BoardID:   boardID,
			ColumnID:  in.ColumnID,
			Title:     title,
			Cover:     in.Clone().Cover,
			ETag:      1,
			CreatedAt: parseTime(now),
			UpdatedAt: parseTime(now),
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cards (id, board_id, column_id, title, cover, etag, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		`, card.ID, card.BoardID, card.ColumnID, card.Title, card.Cover, now, now)
		if err != nil {
			return fmt.Errorf("failed to create card: %w", err)
		}

		encoded, err := encodeOrder(append(cardOrder, card.ID))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE board_columns SET card_order = ? WHERE id = ?", encoded, card.ColumnID); err != nil {
			return fmt.Errorf("failed to append card to column: %w", err)
		}
		return ew.LogCardCreated(tx, &card)
	})
	return card, err
}

// Get loads a live card.
func (cs *CardStore) Get(ctx context.Context, cardID string) (domain.Card, error) {
	return loadCard(ctx, cs.store.db, cardID)
}

// Update persists a card's title and cover, or tombstones it when
// Destroyed is set. Moving a card between columns is a column update.
func (cs *CardStore) Update(ctx context.Context, cardID string, in domain.Card) (domain.Card, error) {
	var out domain.Card
	err := cs.store.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		cur, err := loadCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if err := checkETag(cur.ETag, in.ETag); err != nil {
			return err
		}

		if in.Destroyed {
			out, err = cs.destroy(ctx, tx, ew, cur)
			return err
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
		if !sameCover(in.Cover, cur.Cover) {
			changes["cover"] = in.Cover
		}
		if len(changes) > 0 {
			if err := cs.store.updateRow(ctx, tx, "cards", cardID, changes); err != nil {
				return err
			}
			if err := ew.Log(tx, cur.BoardID, "card", cardID, events.CardUpdated, cur.ETag+1, changes); err != nil {
				return err
			}
		}
		out, err = loadCard(ctx, tx, cardID)
		return err
	})
	return out, err
}

func (cs *CardStore) destroy(ctx context.Context, tx *sql.Tx, ew *events.Writer, cur domain.Card) (domain.Card, error) {
	if err := cs.store.updateRow(ctx, tx, "cards", cur.ID, map[string]any{"destroyed": true}); err != nil {
		return domain.Card{}, err
	}

	var order string
	if err := tx.QueryRowContext(ctx, "SELECT card_order FROM board_columns WHERE id = ?", cur.ColumnID).Scan(&order); err != nil {
		return domain.Card{}, fmt.Errorf("failed to load column: %w", err)
	}
	cardOrder, err := decodeOrder(order)
	if err != nil {
		return domain.Card{}, err
	}
	encoded, err := encodeOrder(without(cardOrder, cur.ID))
	if err != nil {
		return domain.Card{}, err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE board_columns SET card_order = ? WHERE id = ?", encoded, cur.ColumnID); err != nil {
		return domain.Card{}, fmt.Errorf("failed to remove card from column: %w", err)
	}

	out := cur
	out.Destroyed = true
	out.ETag = cur.ETag + 1
	return out, ew.Log(tx, cur.BoardID, "card", cur.ID, events.CardDeleted, out.ETag, map[string]any{"column_id": cur.ColumnID})
}

// loadCards returns live cards matching key = value, grouped by column.
func loadCards(ctx context.Context, q queryer, key, value string) (map[string][]domain.Card, error) {
	query := fmt.Sprintf("SELECT %s FROM cards WHERE %s = ? AND destroyed = 0 ORDER BY rowid", cardColumns, key)
	rows, err := q.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	defer rows.Close()

	byColumn := make(map[string][]domain.Card)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		byColumn[card.ColumnID] = append(byColumn[card.ColumnID], card)
	}
	return byColumn, rows.Err()
}

func loadCard(ctx context.Context, q queryer, cardID string) (domain.Card, error) {
	card, err := scanCard(q.QueryRowContext(ctx, "SELECT "+cardColumns+" FROM cards WHERE id = ? AND destroyed = 0", cardID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Card{}, notFound("card", cardID)
	}
	return card, err
}

func scanCard(row interface{ Scan(...any) error }) (domain.Card, error) {
	var (
		c                domain.Card
		created, updated string
	)
	if err := row.Scan(&c.ID, &c.BoardID, &c.ColumnID, &c.Title, &c.Cover, &c.Destroyed, &c.ETag, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Card{}, err
		}
		return domain.Card{}, fmt.Errorf("failed to scan card: %w", err)
	}
	c.CreatedAt, c.UpdatedAt = parseTime(created), parseTime(updated)
	return c, nil
}

func sameCover(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
