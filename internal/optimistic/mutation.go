package optimistic

import "github.com/lherron/boardq/internal/domain"

// Kind names a user edit the coordinator knows how to apply and persist.
type Kind string

const (
	KindRenameBoard  Kind = "rename_board"
	KindCreateColumn Kind = "create_column"
	KindRenameColumn Kind = "rename_column"
	KindDeleteColumn Kind = "delete_column"
	KindMoveColumn   Kind = "move_column"
	KindCreateCard   Kind = "create_card"
	KindRenameCard   Kind = "rename_card"
	KindDeleteCard   Kind = "delete_card"
	KindMoveCard     Kind = "move_card"
)

// Mutation is a local edit. Use the constructors below.
type Mutation struct {
	Kind       Kind
	ColumnID   string
	CardID     string
	Title      string
	Cover      *string
	ColumnDrag *domain.DragEvent[domain.Column]
	CardDrag   *domain.DragEvent[domain.Card]
}

func RenameBoard(title string) Mutation {
	return Mutation{Kind: KindRenameBoard, Title: title}
}

func CreateColumn(title string) Mutation {
	return Mutation{Kind: KindCreateColumn, Title: title}
}

func RenameColumn(columnID, title string) Mutation {
	return Mutation{Kind: KindRenameColumn, ColumnID: columnID, Title: title}
}

func DeleteColumn(columnID string) Mutation {
	return Mutation{Kind: KindDeleteColumn, ColumnID: columnID}
}

func MoveColumn(ev domain.DragEvent[domain.Column]) Mutation {
	return Mutation{Kind: KindMoveColumn, ColumnDrag: &ev}
}

func CreateCard(columnID, title string, cover *string) Mutation {
	return Mutation{Kind: KindCreateCard, ColumnID: columnID, Title: title, Cover: cover}
}

func RenameCard(cardID, title string) Mutation {
	return Mutation{Kind: KindRenameCard, CardID: cardID, Title: title}
}

func DeleteCard(cardID string) Mutation {
	return Mutation{Kind: KindDeleteCard, CardID: cardID}
}

func MoveCard(ev domain.DragEvent[domain.Card]) Mutation {
	return Mutation{Kind: KindMoveCard, CardDrag: &ev}
}
