package optimistic

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/order"
)

// Confirm folds the remote store's answer for p into b. Temporary IDs are
// replaced in place by the server's IDs. Server fields are merged one at a
// time: version and timestamps always, user-editable fields only when no
// newer local mutation has touched them. Collections (Cards) are never taken
// from the server.
func (c *Coordinator) Confirm(b domain.Board, p *Pending, res Result) (domain.Board, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.settle(p); err != nil {
		return b, err
	}
	log := c.log.WithFields(logrus.Fields{"op": p.Kind, "entity": p.EntityID, "seq": p.Seq})

	var (
		out domain.Board
		err error
	)
	switch p.Kind {
	case KindCreateColumn:
		if len(res.Columns) != 1 {
			return b, fmt.Errorf("confirm %s: expected 1 column, got %d", p.Kind, len(res.Columns))
		}
		out, err = c.confirmColumnCreate(b, p, res.Columns[0], log)
	case KindCreateCard:
		if len(res.Cards) != 1 {
			return b, fmt.Errorf("confirm %s: expected 1 card, got %d", p.Kind, len(res.Cards))
		}
		out, err = c.confirmCardCreate(b, p, res.Cards[0], log)
	default:
		out = b.Clone()
		if res.Board != nil {
			c.mergeBoard(&out, p, *res.Board, log)
		}
		for _, col := range res.Columns {
			c.mergeColumn(&out, p, col, log)
		}
		for _, card := range res.Cards {
			c.mergeCard(&out, p, card, log)
		}
	}
	if err != nil {
		return b, err
	}
	if err := domain.CheckBoard(out); err != nil {
		return b, fmt.Errorf("confirm %s: %w", p.Kind, err)
	}
	log.Debug("confirmed mutation")
	return out, nil
}

func (c *Coordinator) confirmColumnCreate(b domain.Board, p *Pending, server domain.Column, log logrus.FieldLogger) (domain.Board, error) {
	temp := p.EntityID
	c.aliases[temp] = server.ID
	c.rekey(temp, server.ID)

	i := b.ColumnIndex(temp)
	if i < 0 {
		log.WithField("server_id", server.ID).Warn("created column no longer on board")
		return b.Clone(), nil
	}
	out := b.Clone()
	col := &out.Columns[i]
	col.ID = server.ID
	col.BoardID = server.BoardID
	col.ETag = server.ETag
	col.CreatedAt = server.CreatedAt
	col.UpdatedAt = server.UpdatedAt
	if c.fresh(p, server.ID, fieldTitle) {
		col.Title = server.Title
	}
	for j := range col.Cards {
		col.Cards[j].ColumnID = server.ID
	}
	replaceID(out.ColumnOrder, temp, server.ID)
	return out, nil
}

func (c *Coordinator) confirmCardCreate(b domain.Board, p *Pending, server domain.Card, log logrus.FieldLogger) (domain.Board, error) {
	temp := p.EntityID
	c.aliases[temp] = server.ID
	c.rekey(temp, server.ID)

	_, columnID, ok := b.FindCard(temp)
	if !ok {
		log.WithField("server_id", server.ID).Warn("created card no longer on board")
		return b.Clone(), nil
	}
	out := b.Clone()
	col := &out.Columns[out.ColumnIndex(columnID)]
	card := &col.Cards[col.CardIndex(temp)]
	card.ID = server.ID
	card.BoardID = server.BoardID
	card.ETag = server.ETag
	card.CreatedAt = server.CreatedAt
	card.UpdatedAt = server.UpdatedAt
	if c.fresh(p, server.ID, fieldTitle) {
		card.Title = server.Title
	}
	replaceID(col.CardOrder, temp, server.ID)
	return out, nil
}

func (c *Coordinator) mergeBoard(out *domain.Board, p *Pending, server domain.Board, log logrus.FieldLogger) {
	if server.ID != out.ID {
		return
	}
	out.ETag = server.ETag
	out.UpdatedAt = server.UpdatedAt
	if c.fresh(p, out.ID, fieldTitle) {
		out.Title = server.Title
	} else {
		log.Debug("skipped stale board title")
	}
	if !c.fresh(p, out.ID, fieldOrder) {
		log.Debug("skipped stale column order")
		return
	}
	if order.Consistent("board "+out.ID, out.Columns, server.ColumnOrder, domain.ColumnKey) == nil {
		out.Columns = order.Project(out.Columns, server.ColumnOrder, domain.ColumnKey)
		out.ColumnOrder = order.Keys(out.Columns, domain.ColumnKey)
	}
}

func (c *Coordinator) mergeColumn(out *domain.Board, p *Pending, server domain.Column, log logrus.FieldLogger) {
	i := out.ColumnIndex(server.ID)
	if i < 0 {
		return
	}
	col := &out.Columns[i]
	col.ETag = server.ETag
	col.UpdatedAt = server.UpdatedAt
	if c.fresh(p, col.ID, fieldTitle) {
		col.Title = server.Title
	} else {
		log.WithField("column", col.ID).Debug("skipped stale column title")
	}
	if c.fresh(p, col.ID, fieldOrder) && order.Consistent("column "+col.ID, col.Cards, server.CardOrder, domain.CardKey) == nil {
		col.Cards = order.Project(col.Cards, server.CardOrder, domain.CardKey)
		col.CardOrder = order.Keys(col.Cards, domain.CardKey)
	}
	for _, sc := range server.Cards {
		if j := col.CardIndex(sc.ID); j >= 0 {
			col.Cards[j].ETag = sc.ETag
			col.Cards[j].UpdatedAt = sc.UpdatedAt
		}
	}
}

func (c *Coordinator) mergeCard(out *domain.Board, p *Pending, server domain.Card, log logrus.FieldLogger) {
	_, columnID, ok := out.FindCard(server.ID)
	if !ok {
		return
	}
	col := &out.Columns[out.ColumnIndex(columnID)]
	card := &col.Cards[col.CardIndex(server.ID)]
	card.ETag = server.ETag
	card.UpdatedAt = server.UpdatedAt
	if c.fresh(p, card.ID, fieldTitle) {
		card.Title = server.Title
		card.Cover = server.Clone().Cover
	} else {
		log.WithField("card", card.ID).Debug("skipped stale card title")
	}
}

// rekey moves generation entries recorded under a temporary ID to the
// server ID. Callers hold c.mu.
func (c *Coordinator) rekey(from, to string) {
	for k, gen := range c.gens {
		if k.entity != from {
			continue
		}
		delete(c.gens, k)
		nk := fieldKey{to, k.field}
		if gen > c.gens[nk] {
			c.gens[nk] = gen
		}
	}
}

func replaceID(o domain.OrderList, from, to string) {
	if i := o.Index(from); i >= 0 {
		o[i] = to
	}
}
