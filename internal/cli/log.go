package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/cli/appctx"
)

var logCmd = &cobra.Command{
	Use:   "log [BOARD]",
	Short: "Show change history for a board",
	Long: `Show change history from the event log, oldest first.

Examples:
  boardq log B-00001             # last 50 events
  boardq log --limit 0 -o ndjson # everything, one JSON object per line
  boardq log --limit 20 --cursor <next_cursor from the previous page>
`,
	Args: cobra.MaximumNArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runLog),
}

var (
	logLimit  int
	logCursor string
)

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().IntVar(&logLimit, "limit", 50, "Show only the newest N events (0 = unlimited)")
	logCmd.Flags().StringVar(&logCursor, "cursor", "", "Continue with the events before a previous page")
}

func runLog(app *appctx.App, cmd *cobra.Command, args []string) error {
	explicit := ""
	if len(args) > 0 {
		explicit = args[0]
	}
	boardID, err := app.BoardID(explicit)
	if err != nil {
		return err
	}
	evs, next, err := app.Store.EventsPage(commandContext(cmd), boardID, logLimit, logCursor)
	if err != nil {
		return err
	}
	r, err := app.Renderer(cmd)
	if err != nil {
		return err
	}
	if err := r.RenderEvents(evs); err != nil {
		return err
	}
	if next != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "next_cursor=%s\n", next)
	}
	return nil
}
