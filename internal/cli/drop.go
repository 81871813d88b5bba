package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/cli/appctx"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/optimistic"
)

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Replay a finished drag-and-drop gesture",
	Long: `Drop applies a drag the way a board UI reports it: the index the item left
and the index it landed at, both in the order shown by 'board show'.`,
}

var dropColumnCmd = &cobra.Command{
	Use:   "column <FROM> <TO>",
	Short: "Move the column at position FROM to position TO",
	Long: `Move a column within the board.

Examples:
  boardq drop column 0 2                  # first column becomes third
  boardq drop column 2 0 --expect L-00003 # fail unless L-00003 is at 2
`,
	Args: cobra.ExactArgs(2),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runDropColumn),
}

var dropCardCmd = &cobra.Command{
	Use:   "card <COLUMN:FROM> <COLUMN:TO>",
	Short: "Move a card within or between columns",
	Long: `Move a card within a column or to another column.

Examples:
  boardq drop card L-00001:0 L-00001:2    # reorder inside L-00001
  boardq drop card L-00001:1 L-00002:0    # move to the top of L-00002
`,
	Args: cobra.ExactArgs(2),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runDropCard),
}

func init() {
	rootCmd.AddCommand(dropCmd)
	dropCmd.AddCommand(dropColumnCmd, dropCardCmd)
	for _, c := range []*cobra.Command{dropColumnCmd, dropCardCmd} {
		addMutationFlags(c)
		addDropFlags(c)
	}
}

func addDropFlags(cmd *cobra.Command) {
	cmd.Flags().String("expect", "", "ID expected at the source position")
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, &domain.ValidationError{Field: "index", Reason: fmt.Sprintf("%q is not a non-negative integer", s)}
	}
	return n, nil
}

// parseSlot splits COLUMN:INDEX.
func parseSlot(s string) (string, int, error) {
	col, idx, ok := strings.Cut(s, ":")
	if !ok {
		return "", 0, &domain.ValidationError{Field: "position", Reason: fmt.Sprintf("%q must look like COLUMN:INDEX", s)}
	}
	columnID, err := expectColumn(col)
	if err != nil {
		return "", 0, err
	}
	n, err := parseIndex(idx)
	if err != nil {
		return "", 0, err
	}
	return columnID, n, nil
}

func runDropColumn(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardID, err := app.BoardID("")
	if err != nil {
		return err
	}
	from, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	to, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	expect, _ := cmd.Flags().GetString("expect")
	return runMutation(app, cmd, boardID, func(b domain.Board) (optimistic.Mutation, error) {
		ev := domain.DragEvent[domain.Column]{SourceKey: b.ID, RemovedIndex: &from, TargetKey: b.ID, AddedIndex: &to}
		if expect != "" {
			ev.Payload = &domain.Column{ID: expect}
		}
		return optimistic.MoveColumn(ev), nil
	})
}

func runDropCard(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardID, err := app.BoardID("")
	if err != nil {
		return err
	}
	src, from, err := parseSlot(args[0])
	if err != nil {
		return err
	}
	dst, to, err := parseSlot(args[1])
	if err != nil {
		return err
	}
	expect, _ := cmd.Flags().GetString("expect")
	return runMutation(app, cmd, boardID, func(domain.Board) (optimistic.Mutation, error) {
		ev := domain.DragEvent[domain.Card]{SourceKey: src, RemovedIndex: &from, TargetKey: dst, AddedIndex: &to}
		if expect != "" {
			ev.Payload = &domain.Card{ID: expect}
		}
		return optimistic.MoveCard(ev), nil
	})
}
