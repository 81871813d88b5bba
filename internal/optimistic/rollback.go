package optimistic

import (
	"github.com/sirupsen/logrus"

	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/mutate"
	"github.com/lherron/boardq/internal/order"
)

// Reject reverts p on b after the remote store refused it. Fields touched
// by a newer local mutation are left alone. The returned error always
// carries the board as it was before p was applied.
func (c *Coordinator) Reject(b domain.Board, p *Pending, cause error) (domain.Board, *domain.RemoteSyncError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rerr := &domain.RemoteSyncError{Err: cause}
	if p == nil {
		return b, rerr
	}
	rerr.Op = string(p.Kind)
	rerr.EntityID = p.EntityID
	rerr.Before = p.Before.Clone()
	if err := c.settle(p); err != nil {
		return b, rerr
	}

	log := c.log.WithFields(logrus.Fields{"op": p.Kind, "entity": p.EntityID, "seq": p.Seq})
	out, err := c.revert(b, p)
	if err != nil {
		log.WithError(err).Warn("could not revert rejected mutation")
		return b, rerr
	}
	log.WithError(cause).Warn("remote rejected mutation")
	return out, rerr
}

func (c *Coordinator) revert(b domain.Board, p *Pending) (domain.Board, error) {
	id := c.resolveLocked(p.EntityID)

	switch p.Kind {
	case KindRenameBoard:
		if !c.fresh(p, b.ID, fieldTitle) {
			return b, nil
		}
		out := b.Clone()
		out.Title = p.Before.Title
		return out, nil

	case KindCreateColumn:
		if b.ColumnIndex(id) < 0 {
			return b, nil
		}
		out, _, _, err := mutate.RemoveColumn(b, id)
		return out, err

	case KindRenameColumn:
		col, ok := b.Column(id)
		before, had := p.Before.Column(id)
		if !ok || !had || !c.fresh(p, id, fieldTitle) {
			return b, nil
		}
		col = col.Clone()
		col.Title = before.Title
		return mutate.ReplaceColumn(b, col)

	case KindDeleteColumn:
		if b.ColumnIndex(id) >= 0 {
			return b, nil
		}
		col := p.column.Clone()
		col.Destroyed = false
		return mutate.InsertColumnAt(b, col, p.removedAt)

	case KindMoveColumn:
		if !c.fresh(p, b.ID, fieldOrder) {
			return b, nil
		}
		out, err := order.HydrateBoard(b)
		if err != nil {
			return domain.Board{}, err
		}
		out.Columns = order.Project(out.Columns, p.Before.ColumnOrder, domain.ColumnKey)
		out.ColumnOrder = order.Keys(out.Columns, domain.ColumnKey)
		return out, nil

	case KindCreateCard:
		if _, _, ok := b.FindCard(id); !ok {
			return b, nil
		}
		out, _, _, err := mutate.RemoveCard(b, id)
		return out, err

	case KindRenameCard:
		card, _, ok := b.FindCard(id)
		before, _, had := p.Before.FindCard(id)
		if !ok || !had || !c.fresh(p, id, fieldTitle) {
			return b, nil
		}
		card = card.Clone()
		card.Title = before.Title
		return mutate.ReplaceCard(b, card)

	case KindDeleteCard:
		if _, _, ok := b.FindCard(id); ok {
			return b, nil
		}
		from := c.resolveLocked(p.fromCol)
		if b.ColumnIndex(from) < 0 {
			return b, nil
		}
		card := p.card.Clone()
		card.Destroyed = false
		return mutate.InsertCardAt(b, from, card, p.removedAt)

	case KindMoveCard:
		for _, k := range p.fields {
			if !c.fresh(p, c.resolveLocked(k.entity), k.field) {
				return b, nil
			}
		}
		from := c.resolveLocked(p.fromCol)
		if b.ColumnIndex(from) < 0 {
			return b, nil
		}
		out, card, _, err := mutate.RemoveCard(b, id)
		if err != nil {
			return domain.Board{}, err
		}
		return mutate.InsertCardAt(out, from, card, p.removedAt)
	}
	return b, nil
}
