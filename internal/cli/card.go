package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/cli/appctx"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/optimistic"
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Add, rename and remove cards on the selected board",
}

var cardAddCmd = &cobra.Command{
	Use:   "add <COLUMN> <title>",
	Short: "Append a card to a column",
	Long: `Append a card to the end of a column.

Examples:
  boardq card add L-00001 "Write release notes"
  boardq card add L-00002 Launch --cover launch.png
`,
	Args: cobra.MinimumNArgs(2),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runCardAdd),
}

var cardRenameCmd = &cobra.Command{
	Use:   "rename <CARD> <title>",
	Short: "Rename a card",
	Args:  cobra.MinimumNArgs(2),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runCardRename),
}

var cardRmCmd = &cobra.Command{
	Use:   "rm <CARD>...",
	Short: "Delete cards",
	Args:  cobra.MinimumNArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runCardRm),
}

var cardAddCover string

func init() {
	rootCmd.AddCommand(cardCmd)
	cardCmd.AddCommand(cardAddCmd, cardRenameCmd, cardRmCmd)
	for _, c := range []*cobra.Command{cardAddCmd, cardRenameCmd, cardRmCmd} {
		addMutationFlags(c)
	}
	addBulkFlags(cardRmCmd)
	cardAddCmd.Flags().StringVar(&cardAddCover, "cover", "", "Cover image reference")
}

func runCardAdd(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardID, err := app.BoardID("")
	if err != nil {
		return err
	}
	columnID, err := expectColumn(args[0])
	if err != nil {
		return err
	}
	var cover *string
	if cmd.Flags().Changed("cover") {
		cover = &cardAddCover
	}
	return runMutation(app, cmd, boardID, func(domain.Board) (optimistic.Mutation, error) {
		return optimistic.CreateCard(columnID, strings.Join(args[1:], " "), cover), nil
	})
}

func runCardRename(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardID, err := app.BoardID("")
	if err != nil {
		return err
	}
	cardID, err := expectCard(args[0])
	if err != nil {
		return err
	}
	return runMutation(app, cmd, boardID, func(domain.Board) (optimistic.Mutation, error) {
		return optimistic.RenameCard(cardID, strings.Join(args[1:], " ")), nil
	})
}

func runCardRm(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardID, err := app.BoardID("")
	if err != nil {
		return err
	}
	ids := make([]string, len(args))
	for i, arg := range args {
		if ids[i], err = expectCard(arg); err != nil {
			return err
		}
	}
	return runEach(app, cmd, boardID, ids, optimistic.DeleteCard)
}
