// Package optimistic applies board mutations locally before the remote store
// acknowledges them, then reconciles the store's answer (or failure) with
// whatever the user has done in the meantime.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lherron/boardq/internal/dnd"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/mutate"
	"github.com/lherron/boardq/internal/order"
)

// ErrNoop is returned when a mutation would not change anything, e.g. a
// rename to the current title or an empty drag. Nothing is sent remotely.
var ErrNoop = errors.New("mutation changes nothing")

// ErrSettled is returned when a pending mutation is confirmed or rejected twice.
var ErrSettled = errors.New("pending mutation already settled")

// Field names tracked by the generation table.
const (
	fieldTitle     = "title"
	fieldOrder     = "order"
	fieldDestroyed = "destroyed"
	fieldColumn    = "column"
)

type fieldKey struct {
	entity string
	field  string
}

// Pending is the handle for a mutation applied locally and awaiting the
// remote store.
type Pending struct {
	Kind     Kind
	EntityID string
	Seq      uint64
	Before   domain.Board

	board     domain.Board
	column    domain.Column
	card      domain.Card
	columns   []domain.Column
	removedAt int
	fromCol   string
	fields    []fieldKey
}

// Coordinator tracks in-flight optimistic mutations for boards.
type Coordinator struct {
	remote Remote
	log    logrus.FieldLogger

	mu       sync.Mutex
	seq      uint64
	gens     map[fieldKey]uint64
	inflight map[uint64]*Pending
	aliases  map[string]string
}

// New returns a Coordinator that persists through remote. A nil logger
// discards log output.
func New(remote Remote, log logrus.FieldLogger) *Coordinator {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Coordinator{
		remote:   remote,
		log:      log,
		gens:     make(map[fieldKey]uint64),
		inflight: make(map[uint64]*Pending),
		aliases:  make(map[string]string),
	}
}

// Load fetches a board from the remote store and hydrates it into
// presentation order.
func (c *Coordinator) Load(ctx context.Context, boardID string) (domain.Board, error) {
	b, err := c.remote.FetchBoard(ctx, c.Resolve(boardID))
	if err != nil {
		return domain.Board{}, fmt.Errorf("fetch board %s: %w", boardID, err)
	}
	return order.HydrateBoard(b)
}

// Resolve maps a temporary ID to its confirmed server ID. Other IDs are
// returned unchanged.
func (c *Coordinator) Resolve(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolveLocked(id)
}

func (c *Coordinator) resolveLocked(id string) string {
	if real, ok := c.aliases[id]; ok {
		return real
	}
	return id
}

// InFlight returns the number of mutations not yet confirmed or rejected.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// ApplyOptimistic applies m to b and returns the new board together with a
// handle to confirm or reject once the remote store answers. b is not
// modified. Validation failures are returned before anything is recorded.
func (c *Coordinator) ApplyOptimistic(b domain.Board, m Mutation) (domain.Board, *Pending, error) {
	m = c.resolveMutation(m)
	p := &Pending{Kind: m.Kind, Before: b.Clone()}

	next, err := c.apply(b, m, p)
	if err != nil {
		return b, nil, err
	}

	c.mu.Lock()
	c.seq++
	p.Seq = c.seq
	for _, k := range p.fields {
		c.gens[k] = p.Seq
	}
	c.inflight[p.Seq] = p
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"op": p.Kind, "entity": p.EntityID, "seq": p.Seq}).Debug("applied optimistic mutation")
	return next, p, nil
}

func (c *Coordinator) apply(b domain.Board, m Mutation, p *Pending) (domain.Board, error) {
	switch m.Kind {
	case KindRenameBoard:
		renamed, changed, err := mutate.RenameBoard(b, m.Title)
		if err != nil {
			return domain.Board{}, err
		}
		if !changed {
			return domain.Board{}, ErrNoop
		}
		p.EntityID = b.ID
		p.board = renamed
		p.fields = []fieldKey{{b.ID, fieldTitle}}
		return renamed, nil

	case KindCreateColumn:
		title, err := domain.NormalizeTitle(m.Title)
		if err != nil {
			return domain.Board{}, err
		}
		col := domain.Column{ID: domain.NewTempID(), BoardID: b.ID, Title: title}
		next, err := mutate.InsertColumn(b, col)
		if err != nil {
			return domain.Board{}, err
		}
		created, _ := next.Column(col.ID)
		p.EntityID = col.ID
		p.column = created
		p.fields = []fieldKey{{col.ID, fieldTitle}, {b.ID, fieldOrder}}
		return next, nil

	case KindRenameColumn:
		col, ok := b.Column(m.ColumnID)
		if !ok {
			return domain.Board{}, fmt.Errorf("column %s: %w", m.ColumnID, domain.ErrNotFound)
		}
		renamed, changed, err := mutate.RenameColumn(col, m.Title)
		if err != nil {
			return domain.Board{}, err
		}
		if !changed {
			return domain.Board{}, ErrNoop
		}
		next, err := mutate.ReplaceColumn(b, renamed)
		if err != nil {
			return domain.Board{}, err
		}
		p.EntityID = col.ID
		p.column = renamed
		p.fields = []fieldKey{{col.ID, fieldTitle}}
		return next, nil

	case KindDeleteColumn:
		next, removed, at, err := mutate.RemoveColumn(b, m.ColumnID)
		if err != nil {
			return domain.Board{}, err
		}
		p.EntityID = removed.ID
		p.column = mutate.SoftDeleteColumn(removed)
		p.removedAt = at
		p.fields = []fieldKey{{removed.ID, fieldDestroyed}, {b.ID, fieldOrder}}
		return next, nil

	case KindMoveColumn:
		if m.ColumnDrag == nil || m.ColumnDrag.IsNoop() {
			return domain.Board{}, ErrNoop
		}
		next, err := dnd.MoveColumn(b, *m.ColumnDrag)
		if err != nil {
			return domain.Board{}, err
		}
		p.EntityID = b.ID
		p.board = next
		p.fields = []fieldKey{{b.ID, fieldOrder}}
		return next, nil

	case KindCreateCard:
		title, err := domain.NormalizeTitle(m.Title)
		if err != nil {
			return domain.Board{}, err
		}
		card := domain.Card{ID: domain.NewTempID(), BoardID: b.ID, ColumnID: m.ColumnID, Title: title, Cover: m.Cover}
		next, err := mutate.InsertCard(b, m.ColumnID, card)
		if err != nil {
			return domain.Board{}, err
		}
		created, _, _ := next.FindCard(card.ID)
		p.EntityID = card.ID
		p.card = created
		p.fields = []fieldKey{{card.ID, fieldTitle}, {m.ColumnID, fieldOrder}}
		return next, nil

	case KindRenameCard:
		card, _, ok := b.FindCard(m.CardID)
		if !ok {
			return domain.Board{}, fmt.Errorf("card %s: %w", m.CardID, domain.ErrNotFound)
		}
		renamed, changed, err := mutate.RenameCard(card, m.Title)
		if err != nil {
			return domain.Board{}, err
		}
		if !changed {
			return domain.Board{}, ErrNoop
		}
		next, err := mutate.ReplaceCard(b, renamed)
		if err != nil {
			return domain.Board{}, err
		}
		p.EntityID = card.ID
		p.card = renamed
		p.fields = []fieldKey{{card.ID, fieldTitle}}
		return next, nil

	case KindDeleteCard:
		next, removed, at, err := mutate.RemoveCard(b, m.CardID)
		if err != nil {
			return domain.Board{}, err
		}
		p.EntityID = removed.ID
		p.card = mutate.SoftDeleteCard(removed)
		p.removedAt = at
		p.fromCol = removed.ColumnID
		p.fields = []fieldKey{{removed.ID, fieldDestroyed}, {removed.ColumnID, fieldOrder}}
		return next, nil

	case KindMoveCard:
		if m.CardDrag == nil || m.CardDrag.IsNoop() {
			return domain.Board{}, ErrNoop
		}
		ev := *m.CardDrag
		next, err := dnd.MoveCard(b, ev)
		if err != nil {
			return domain.Board{}, err
		}
		hydrated, err := order.HydrateBoard(b)
		if err != nil {
			return domain.Board{}, err
		}
		src, _ := hydrated.Column(ev.SourceKey)
		card := src.Cards[*ev.RemovedIndex]

		target := ev.TargetKey
		if ev.SameContainer() {
			target = ev.SourceKey
		}
		p.EntityID = card.ID
		p.removedAt = *ev.RemovedIndex
		p.fromCol = ev.SourceKey
		p.fields = []fieldKey{{ev.SourceKey, fieldOrder}, {card.ID, fieldColumn}}
		moved, _ := next.Column(ev.SourceKey)
		p.columns = []domain.Column{moved}
		if target != ev.SourceKey {
			p.fields = append(p.fields, fieldKey{target, fieldOrder})
			dst, _ := next.Column(target)
			p.columns = append([]domain.Column{dst}, p.columns...)
		}
		return next, nil
	}
	return domain.Board{}, &domain.ValidationError{Field: "mutation", Reason: fmt.Sprintf("unknown kind %q", m.Kind)}
}

// resolveMutation rewrites temporary IDs that have since been confirmed.
func (c *Coordinator) resolveMutation(m Mutation) Mutation {
	c.mu.Lock()
	defer c.mu.Unlock()
	m.ColumnID = c.resolveLocked(m.ColumnID)
	m.CardID = c.resolveLocked(m.CardID)
	if m.ColumnDrag != nil {
		ev := *m.ColumnDrag
		ev.SourceKey = c.resolveLocked(ev.SourceKey)
		ev.TargetKey = c.resolveLocked(ev.TargetKey)
		m.ColumnDrag = &ev
	}
	if m.CardDrag != nil {
		ev := *m.CardDrag
		ev.SourceKey = c.resolveLocked(ev.SourceKey)
		ev.TargetKey = c.resolveLocked(ev.TargetKey)
		m.CardDrag = &ev
	}
	return m
}

// Send performs the remote call for p.
func (c *Coordinator) Send(ctx context.Context, p *Pending) (Result, error) {
	switch p.Kind {
	case KindRenameBoard, KindMoveColumn:
		req := p.board.Clone()
		req.Columns = nil
		if p.Kind == KindRenameBoard {
			// A nil order leaves the stored column order alone.
			req.ColumnOrder = nil
		}
		for i, id := range req.ColumnOrder {
			req.ColumnOrder[i] = c.Resolve(id)
			if err := confirmed(req.ColumnOrder[i]); err != nil {
				return Result{}, err
			}
		}
		b, err := c.remote.UpdateBoard(ctx, req.ID, req)
		if err != nil {
			return Result{}, err
		}
		return Result{Board: &b}, nil

	case KindCreateColumn:
		req := domain.Column{BoardID: p.column.BoardID, Title: p.column.Title}
		col, err := c.remote.CreateColumn(ctx, req)
		if err != nil {
			return Result{}, err
		}
		return Result{Columns: []domain.Column{col}}, nil

	case KindRenameColumn, KindDeleteColumn:
		req := p.column.Clone()
		req.ID = c.Resolve(req.ID)
		if err := confirmed(req.ID); err != nil {
			return Result{}, err
		}
		col, err := c.remote.UpdateColumn(ctx, req.ID, req)
		if err != nil {
			return Result{}, err
		}
		return Result{Columns: []domain.Column{col}}, nil

	case KindCreateCard:
		req := p.card.Clone()
		req.ID = ""
		req.ColumnID = c.Resolve(req.ColumnID)
		if err := confirmed(req.ColumnID); err != nil {
			return Result{}, err
		}
		card, err := c.remote.CreateCard(ctx, req)
		if err != nil {
			return Result{}, err
		}
		return Result{Cards: []domain.Card{card}}, nil

	case KindRenameCard, KindDeleteCard:
		req := p.card.Clone()
		req.ID = c.Resolve(req.ID)
		if err := confirmed(req.ID); err != nil {
			return Result{}, err
		}
		card, err := c.remote.UpdateCard(ctx, req.ID, req)
		if err != nil {
			return Result{}, err
		}
		return Result{Cards: []domain.Card{card}}, nil

	case KindMoveCard:
		reqs := make([]domain.Column, len(p.columns))
		for i, col := range p.columns {
			reqs[i] = c.resolveColumn(col)
			if err := confirmed(reqs[i].ID); err != nil {
				return Result{}, err
			}
			for _, id := range reqs[i].CardOrder {
				if err := confirmed(id); err != nil {
					return Result{}, err
				}
			}
		}
		cols, err := c.remote.UpdateColumns(ctx, reqs)
		if err != nil {
			return Result{}, err
		}
		return Result{Columns: cols}, nil
	}
	return Result{}, fmt.Errorf("unknown mutation kind %q", p.Kind)
}

// resolveColumn returns a copy of col with confirmed IDs substituted for
// temporary ones in the column, its order list and its cards.
func (c *Coordinator) resolveColumn(col domain.Column) domain.Column {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := col.Clone()
	out.ID = c.resolveLocked(out.ID)
	for i, id := range out.CardOrder {
		out.CardOrder[i] = c.resolveLocked(id)
	}
	for i := range out.Cards {
		out.Cards[i].ID = c.resolveLocked(out.Cards[i].ID)
		out.Cards[i].ColumnID = out.ID
	}
	return out
}

func confirmed(id string) error {
	if domain.IsTempID(id) {
		return fmt.Errorf("%s not yet confirmed by the store", id)
	}
	return nil
}

// Sync applies m, persists it and reconciles the answer. On remote failure
// the returned board has the mutation reverted and the error is a
// *domain.RemoteSyncError. A mutation that changes nothing returns b and
// ErrNoop without contacting the store.
func (c *Coordinator) Sync(ctx context.Context, b domain.Board, m Mutation) (domain.Board, error) {
	next, p, err := c.ApplyOptimistic(b, m)
	if err != nil {
		return b, err
	}
	res, err := c.Send(ctx, p)
	if err != nil {
		reverted, rerr := c.Reject(next, p, err)
		return reverted, rerr
	}
	return c.Confirm(next, p, res)
}

// fresh reports whether no mutation newer than p has touched the field.
// Callers hold c.mu.
func (c *Coordinator) fresh(p *Pending, entity, field string) bool {
	return c.gens[fieldKey{entity, field}] <= p.Seq
}

func (c *Coordinator) settle(p *Pending) error {
	if p == nil {
		return fmt.Errorf("nil pending mutation")
	}
	if _, ok := c.inflight[p.Seq]; !ok {
		return ErrSettled
	}
	delete(c.inflight, p.Seq)
	return nil
}
