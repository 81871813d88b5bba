// Package store provides a persistence layer that abstracts database operations,
// automatically handling etag management, timestamps, and event logging.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lherron/boardq/internal/db"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/events"
)

// Store is the root store that provides access to domain-specific stores.
type Store struct {
	db  *db.DB
	now func() time.Time

	Boards  *BoardStore
	Columns *ColumnStore
	Cards   *CardStore
}

// New creates a new Store wrapping the given database connection.
func New(database *db.DB) *Store {
	s := &Store{db: database, now: func() time.Time { return time.Now().UTC() }}
	s.Boards = &BoardStore{store: s}
	s.Columns = &ColumnStore{store: s}
	s.Cards = &CardStore{store: s}
	return s
}

// DB returns the underlying database connection (for read-only queries).
func (s *Store) DB() *db.DB {
	return s.db
}

// withTx executes fn within a transaction. If fn returns nil, the transaction
// is committed; otherwise it is rolled back.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx, ew *events.Writer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ew := events.NewWriter(s.db.DB)
	if err := fn(tx, ew); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) timestamp() string {
	return s.now().Format(time.RFC3339Nano)
}

// checkETag verifies etag matches if ifMatch > 0, returns ETagMismatchError on mismatch.
func checkETag(currentETag, ifMatch int64) error {
	if ifMatch <= 0 {
		return nil
	}
	return domain.CheckETag(ifMatch, currentETag)
}

// updateRow applies fields to one row, bumps its etag and stamps updated_at.
func (s *Store) updateRow(ctx context.Context, tx *sql.Tx, table, id string, fields map[string]any) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	setClauses := make([]string, 0, len(keys)+2)
	args := make([]any, 0, len(keys)+2)
	for _, k := range keys {
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", k))
		args = append(args, fields[k])
	}
	setClauses = append(setClauses, "etag = etag + 1", "updated_at = ?")
	args = append(args, s.timestamp(), id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(setClauses, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s %s: %w", table, id, err)
	}
	return nil
}

func encodeOrder(o domain.OrderList) (string, error) {
	if o == nil {
		o = domain.OrderList{}
	}
	data, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("failed to encode order list: %w", err)
	}
	return string(data), nil
}

func decodeOrder(s string) (domain.OrderList, error) {
	o := domain.OrderList{}
	if s == "" {
		return o, nil
	}
	if err := json.Unmarshal([]byte(s), &o); err != nil {
		return nil, fmt.Errorf("failed to decode order list: %w", err)
	}
	return o, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func without(o domain.OrderList, id string) domain.OrderList {
	out := make(domain.OrderList, 0, len(o))
	for _, v := range o {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}
