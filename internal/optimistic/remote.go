package optimistic

import (
	"context"

	"github.com/lherron/boardq/internal/domain"
)

// Remote is the authoritative store behind the board. Calls may fail; the
// coordinator never retries them.
type Remote interface {
	FetchBoard(ctx context.Context, boardID string) (domain.Board, error)
	CreateColumn(ctx context.Context, col domain.Column) (domain.Column, error)
	CreateCard(ctx context.Context, card domain.Card) (domain.Card, error)
	UpdateBoard(ctx context.Context, id string, b domain.Board) (domain.Board, error)
	UpdateColumn(ctx context.Context, id string, col domain.Column) (domain.Column, error)
	// UpdateColumns persists several columns atomically (card moves touch two).
	UpdateColumns(ctx context.Context, cols []domain.Column) ([]domain.Column, error)
	UpdateCard(ctx context.Context, id string, card domain.Card) (domain.Card, error)
}

// Result carries what the remote returned for a pending mutation.
type Result struct {
	Board   *domain.Board
	Columns []domain.Column
	Cards   []domain.Card
}
