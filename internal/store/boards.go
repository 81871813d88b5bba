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

// BoardStore handles board persistence operations.
type BoardStore struct {
	store *Store
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const boardColumns = `id, title, column_order, etag, created_at, updated_at`

// Create creates an empty board and logs a board.created event.
func (bs *BoardStore) Create(ctx context.Context, title string) (domain.Board, error) {
	title, err := domain.NormalizeTitle(title)
	if err != nil {
		return domain.Board{}, err
	}

	var b domain.Board
	err = bs.store.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		seq, err := db.NextSequence(tx, "board_seq")
		if err != nil {
			return err
		}
		now := bs.store.timestamp()
		b = domain.Board{
			ID:          id.FormatBoard(seq),
			Title:       title,
			ColumnOrder: domain.OrderList{},
			Columns:     []domain.Column{},
			ETag:        1,
			CreatedAt:   parseTime(now),
			UpdatedAt:   parseTime(now),
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO boards (id, title, column_order, etag, created_at, updated_at)
			VALUES (?, ?, '[]', 1, ?, ?)
		`, b.ID, b.Title, now, now)
		if err != nil {
			return fmt.Errorf("failed to create board: %w", err)
		}
		return ew.Log(tx, b.ID, "board", b.ID, events.BoardCreated, b.ETag, map[string]any{"title": b.Title})
	})
	return b, err
}

// List returns all boards without their columns, oldest first.
func (bs *BoardStore) List(ctx context.Context) ([]domain.Board, error) {
	rows, err := bs.store.db.QueryContext(ctx, "SELECT "+boardColumns+" FROM boards ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	boards := []domain.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// Get loads a board with its live columns and cards. Collections come back
// in insertion order; presentation order is carried by the order lists.
func (bs *BoardStore) Get(ctx context.Context, boardID string) (domain.Board, error) {
	return loadBoard(ctx, bs.store.db, boardID)
}

// Update persists the board title and column order. The order must list
// exactly the board's live columns.
func (bs *BoardStore) Update(ctx context.Context, boardID string, in domain.Board) (domain.Board, error) {
	var out domain.Board
	err := bs.store.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		cur, err := loadBoard(ctx, tx, boardID)
		if err != nil {
			return err
		}
		if err := checkETag(cur.ETag, in.ETag); err != nil {
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
		if in.ColumnOrder != nil && !sameOrder(in.ColumnOrder, cur.ColumnOrder) {
			ids := make([]string, len(cur.Columns))
			for i, c := range cur.Columns {
				ids[i] = c.ID
			}
			if err := domain.CheckOrder("board "+boardID, ids, in.ColumnOrder); err != nil {
				return err
			}
			encoded, err := encodeOrder(in.ColumnOrder)
			if err != nil {
				return err
			}
			changes["column_order"] = encoded
		}

		if len(changes) > 0 {
			if err := bs.store.updateRow(ctx, tx, "boards", boardID, changes); err != nil {
				return err
			}
			if err := ew.Log(tx, boardID, "board", boardID, events.BoardUpdated, cur.ETag+1, changes); err != nil {
				return err
			}
		}
		out, err = loadBoard(ctx, tx, boardID)
		return err
	})
	return out, err
}

func loadBoard(ctx context.Context, q queryer, boardID string) (domain.Board, error) {
	b, err := scanBoard(q.QueryRowContext(ctx, "SELECT "+boardColumns+" FROM boards WHERE id = ?", boardID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Board{}, notFound("board", boardID)
	}
	if err != nil {
		return domain.Board{}, err
	}

	rows, err := q.QueryContext(ctx, "SELECT "+columnColumns+" FROM board_columns WHERE board_id = ? AND destroyed = 0 ORDER BY rowid", boardID)
	if err != nil {
		return domain.Board{}, fmt.Errorf("failed to load columns: %w", err)
	}
	b.Columns = []domain.Column{}
	for rows.Next() {
		col, err := scanColumn(rows)
		if err != nil {
			rows.Close()
			return domain.Board{}, err
		}
		b.Columns = append(b.Columns, col)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Board{}, err
	}

	cards, err := loadCards(ctx, q, "board_id", boardID)
	if err != nil {
		return domain.Board{}, err
	}
	for i := range b.Columns {
		b.Columns[i].Cards = cards[b.Columns[i].ID]
		if b.Columns[i].Cards == nil {
			b.Columns[i].Cards = []domain.Card{}
		}
	}
	return b, nil
}

func scanBoard(row interface{ Scan(...any) error }) (domain.Board, error) {
	var (
		b                       domain.Board
		order, created, updated string
	)
	if err := row.Scan(&b.ID, &b.Title, &order, &b.ETag, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Board{}, err
		}
		return domain.Board{}, fmt.Errorf("failed to scan board: %w", err)
	}
	var err error
	if b.ColumnOrder, err = decodeOrder(order); err != nil {
		return domain.Board{}, err
	}
	b.CreatedAt, b.UpdatedAt = parseTime(created), parseTime(updated)
	return b, nil
}

func sameOrder(a, b domain.OrderList) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
