package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/cli/appctx"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/optimistic"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Create, list, show and rename boards",
}

var boardCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create an empty board",
	Args:  cobra.MinimumNArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runBoardCreate),
}

var boardLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List boards",
	Args:    cobra.NoArgs,
	RunE:    appctx.WithApp(appctx.DefaultOptions(), runBoardLs),
}

var boardShowCmd = &cobra.Command{
	Use:   "show [BOARD]",
	Short: "Show a board with its columns and cards in order",
	Long: `Show loads a board and prints it in presentation order.

Examples:
  boardq board show B-00001
  boardq --board B-00001 board show -o yaml
`,
	Args: cobra.MaximumNArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runBoardShow),
}

var boardRenameCmd = &cobra.Command{
	Use:   "rename <title>",
	Short: "Rename the selected board",
	Args:  cobra.MinimumNArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runBoardRename),
}

func init() {
	rootCmd.AddCommand(boardCmd)
	boardCmd.AddCommand(boardCreateCmd, boardLsCmd, boardShowCmd, boardRenameCmd)
	addMutationFlags(boardRenameCmd)
}

func runBoardCreate(app *appctx.App, cmd *cobra.Command, args []string) error {
	b, err := app.Store.CreateBoard(commandContext(cmd), strings.Join(args, " "))
	if err != nil {
		return err
	}
	r, err := app.Renderer(cmd)
	if err != nil {
		return err
	}
	return r.RenderBoard(b)
}

func runBoardLs(app *appctx.App, cmd *cobra.Command, args []string) error {
	boards, err := app.Store.ListBoards(commandContext(cmd))
	if err != nil {
		return err
	}
	r, err := app.Renderer(cmd)
	if err != nil {
		return err
	}
	return r.RenderBoards(boards)
}

func runBoardShow(app *appctx.App, cmd *cobra.Command, args []string) error {
	explicit := ""
	if len(args) > 0 {
		explicit = args[0]
	}
	boardID, err := app.BoardID(explicit)
	if err != nil {
		return err
	}
	b, err := app.Coordinator.Load(commandContext(cmd), boardID)
	if err != nil {
		return err
	}
	r, err := app.Renderer(cmd)
	if err != nil {
		return err
	}
	return r.RenderBoard(b)
}

func runBoardRename(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardID, err := app.BoardID("")
	if err != nil {
		return err
	}
	return runMutation(app, cmd, boardID, func(domain.Board) (optimistic.Mutation, error) {
		return optimistic.RenameBoard(strings.Join(args, " ")), nil
	})
}
