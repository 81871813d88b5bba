package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/config"
	"github.com/lherron/boardq/internal/db"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the boardq database",
	Long: `Initialize creates the SQLite database and runs pending migrations. With
--title it also seeds a first board with the given columns.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var (
	initTitle   string
	initColumns []string
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initTitle, "title", "", "Seed a board with this title on a new database")
	initCmd.Flags().StringSliceVar(&initColumns, "columns", []string{"Todo", "Doing", "Done"}, "Columns of the seeded board")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath := cmd.Flag("db").Value.String(); dbPath != "" {
		cfg.DBPath = dbPath
	}

	dbExists := false
	if _, err := os.Stat(cfg.DBPath); err == nil {
		dbExists = true
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	applied, err := database.MigrateWithInfo()
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	out := cmd.OutOrStdout()
	if dbExists {
		fmt.Fprintf(out, "✓ Database already initialized at %s\n", cfg.DBPath)
		fmt.Fprintf(out, "✓ Applied %d migration(s)\n", len(applied))
		return nil
	}
	fmt.Fprintf(out, "✓ Initialized new database at %s\n", cfg.DBPath)

	if initTitle == "" {
		return nil
	}
	b, err := seedBoard(cmd.Context(), store.New(database), initTitle, initColumns)
	if err != nil {
		return fmt.Errorf("failed to seed board: %w", err)
	}
	fmt.Fprintf(out, "✓ Seeded board %s %q with %d column(s)\n", b, initTitle, len(initColumns))
	return nil
}

func seedBoard(ctx context.Context, s *store.Store, title string, columns []string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := s.CreateBoard(ctx, title)
	if err != nil {
		return "", err
	}
	for _, col := range columns {
		if _, err := s.Columns.Create(ctx, domain.Column{BoardID: b.ID, Title: col}); err != nil {
			return "", err
		}
	}
	return b.ID, nil
}
