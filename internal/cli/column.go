package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/cli/appctx"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/optimistic"
)

var columnCmd = &cobra.Command{
	Use:     "column",
	Aliases: []string{"col"},
	Short:   "Add, rename and remove columns on the selected board",
}

var columnAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Append a column to the board",
	Args:  cobra.MinimumNArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runColumnAdd),
}

var columnRenameCmd = &cobra.Command{
	Use:   "rename <COLUMN> <title>",
	Short: "Rename a column",
	Args:  cobra.MinimumNArgs(2),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runColumnRename),
}

var columnRmCmd = &cobra.Command{
	Use:   "rm <COLUMN>...",
	Short: "Delete columns and the cards in them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runColumnRm),
}

func init() {
	rootCmd.AddCommand(columnCmd)
	columnCmd.AddCommand(columnAddCmd, columnRenameCmd, columnRmCmd)
	for _, c := range []*cobra.Command{columnAddCmd, columnRenameCmd, columnRmCmd} {
		addMutationFlags(c)
	}
	addBulkFlags(columnRmCmd)
}

func runColumnAdd(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardID, err := app.BoardID("")
	if err != nil {
		return err
	}
	return runMutation(app, cmd, boardID, func(domain.Board) (optimistic.Mutation, error) {
		return optimistic.CreateColumn(strings.Join(args, " ")), nil
	})
}

func runColumnRename(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardID, err := app.BoardID("")
	if err != nil {
		return err
	}
	columnID, err := expectColumn(args[0])
	if err != nil {
		return err
	}
	return runMutation(app, cmd, boardID, func(domain.Board) (optimistic.Mutation, error) {
		return optimistic.RenameColumn(columnID, strings.Join(args[1:], " ")), nil
	})
}

func runColumnRm(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardID, err := app.BoardID("")
	if err != nil {
		return err
	}
	ids := make([]string, len(args))
	for i, arg := range args {
		if ids[i], err = expectColumn(arg); err != nil {
			return err
		}
	}
	return runEach(app, cmd, boardID, ids, optimistic.DeleteColumn)
}
