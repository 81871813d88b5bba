package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/bulk"
	"github.com/lherron/boardq/internal/config"
	"github.com/lherron/boardq/internal/db"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/events"
	"github.com/lherron/boardq/internal/render"
	"github.com/lherron/boardq/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check database health and board consistency",
	Long: `Performs health checks on the database file, schema, order lists and
friendly-ID sequences. --fix repairs sequence drift.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

var (
	doctorJSON    bool
	doctorFix     bool
	doctorVerbose bool
)

type checkResult struct {
	Name    string   `json:"name"`
	Status  string   `json:"status"` // "ok", "warning", "error"
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

type doctorReport struct {
	DBPath        string        `json:"db_path"`
	Checks        []checkResult `json:"checks"`
	Fixed         []string      `json:"fixed,omitempty"`
	Warnings      int           `json:"warnings"`
	Errors        int           `json:"errors"`
	OverallStatus string        `json:"overall_status"`
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output JSON")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Repair sequence drift")
	doctorCmd.Flags().BoolVar(&doctorVerbose, "verbose", false, "Verbose output")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath := cmd.Flag("db").Value.String(); dbPath != "" {
		cfg.DBPath = dbPath
	}

	report := &doctorReport{DBPath: cfg.DBPath, Checks: []checkResult{}}
	report.Checks = append(report.Checks, checkDatabaseFile(cfg.DBPath)...)

	if _, statErr := os.Stat(cfg.DBPath); statErr == nil {
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			report.Checks = append(report.Checks, checkResult{
				Name:    "database_open",
				Status:  "error",
				Message: fmt.Sprintf("Failed to open database: %v", err),
			})
		} else {
			defer database.Close()
			if doctorFix {
				report.Fixed = applyFixes(database)
			}
			report.Checks = append(report.Checks, checkDatabasePragmas(database)...)
			report.Checks = append(report.Checks, checkSchema(database)...)
			report.Checks = append(report.Checks, checkBoards(commandContext(cmd), store.New(database))...)
			report.Checks = append(report.Checks, checkSequences(database)...)
		}
	}
	summarize(report)

	if doctorJSON {
		if err := render.NewRenderer(cmd.OutOrStdout(), render.Options{}).RenderJSON(report); err != nil {
			return err
		}
	} else {
		printHumanReport(cmd, report)
	}
	if report.Errors > 0 {
		return fmt.Errorf("doctor found %d error(s)", report.Errors)
	}
	return nil
}

func summarize(report *doctorReport) {
	report.OverallStatus = "ok"
	for _, check := range report.Checks {
		switch check.Status {
		case "warning":
			report.Warnings++
		case "error":
			report.Errors++
		}
	}
	switch {
	case report.Errors > 0:
		report.OverallStatus = "error"
	case report.Warnings > 0:
		report.OverallStatus = "warning"
	}
}

func checkDatabaseFile(dbPath string) []checkResult {
	info, err := os.Stat(dbPath)
	if err != nil {
		return []checkResult{{
			Name:    "db_file_exists",
			Status:  "error",
			Message: fmt.Sprintf("Database file not found: %s", dbPath),
			Details: []string{"Run 'boardq init' to create it"},
		}}
	}
	results := []checkResult{{
		Name:    "db_file_exists",
		Status:  "ok",
		Message: fmt.Sprintf("Database file: %s (%.1f MB)", dbPath, float64(info.Size())/(1024*1024)),
	}}

	f, err := os.OpenFile(dbPath, os.O_RDWR, 0)
	if err != nil {
		return append(results, checkResult{
			Name:    "db_file_permissions",
			Status:  "error",
			Message: fmt.Sprintf("Database file not writable: %v", err),
		})
	}
	f.Close()
	return append(results, checkResult{
		Name:    "db_file_permissions",
		Status:  "ok",
		Message: "Database file is readable and writable",
	})
}

func checkDatabasePragmas(database *db.DB) []checkResult {
	var results []checkResult

	var journalMode string
	database.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if journalMode == "wal" {
		results = append(results, checkResult{Name: "wal_mode", Status: "ok", Message: "WAL mode enabled"})
	} else {
		results = append(results, checkResult{
			Name:    "wal_mode",
			Status:  "warning",
			Message: fmt.Sprintf("WAL mode not enabled (current: %s)", journalMode),
		})
	}

	var foreignKeys int
	database.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys)
	if foreignKeys == 1 {
		results = append(results, checkResult{Name: "foreign_keys", Status: "ok", Message: "Foreign keys enabled"})
	} else {
		results = append(results, checkResult{
			Name:    "foreign_keys",
			Status:  "error",
			Message: "Foreign keys not enabled",
			Details: []string{"Critical: foreign key constraints are not enforced"},
		})
	}

	var integrity string
	database.QueryRow("PRAGMA integrity_check").Scan(&integrity)
	if integrity == "ok" {
		results = append(results, checkResult{Name: "integrity_check", Status: "ok", Message: "Database integrity check passed"})
	} else {
		results = append(results, checkResult{
			Name:    "integrity_check",
			Status:  "error",
			Message: fmt.Sprintf("Database integrity check failed: %s", integrity),
			Details: []string{"Database may be corrupted", "Restore from backup recommended"},
		})
	}
	return results
}

func checkSchema(database *db.DB) []checkResult {
	_, pending, err := database.MigrationStatus()
	if err != nil {
		return []checkResult{{Name: "migrations", Status: "error", Message: err.Error()}}
	}
	if len(pending) > 0 {
		return []checkResult{{
			Name:    "migrations",
			Status:  "error",
			Message: fmt.Sprintf("%d pending migration(s)", len(pending)),
			Details: append([]string{"Run 'boardq init' to apply:"}, pending...),
		}}
	}

	required := []string{"boards", "board_columns", "cards", "event_log", "board_seq", "column_seq", "card_seq"}
	var missing []string
	for _, table := range required {
		var count int
		err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil || count == 0 {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return []checkResult{{
			Name:    "schema_tables",
			Status:  "error",
			Message: fmt.Sprintf("Missing tables: %v", missing),
		}}
	}
	return []checkResult{
		{Name: "migrations", Status: "ok", Message: "Schema is up to date"},
		{Name: "schema_tables", Status: "ok", Message: fmt.Sprintf("All required tables present (%d/%d)", len(required), len(required))},
	}
}

// checkBoards verifies every board's order lists against its live columns
// and cards.
func checkBoards(ctx context.Context, s *store.Store) []checkResult {
	boards, err := s.ListBoards(ctx)
	if err != nil {
		return []checkResult{{Name: "order_lists", Status: "error", Message: err.Error()}}
	}
	ids := make([]string, len(boards))
	for i, b := range boards {
		ids[i] = b.ID
	}

	op := &bulk.Operation{ContinueOnError: true}
	result := op.Execute(ids, func(boardID string) error {
		b, err := s.FetchBoard(ctx, boardID)
		if err != nil {
			return err
		}
		return domain.CheckBoard(b)
	})
	if result.Failed > 0 {
		details := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			details = append(details, fmt.Sprintf("%s: %v", e.Item, e.Error))
		}
		sort.Strings(details)
		return []checkResult{{
			Name:    "order_lists",
			Status:  "error",
			Message: fmt.Sprintf("%d of %d board(s) have inconsistent order lists", result.Failed, len(boards)),
			Details: details,
		}}
	}
	return []checkResult{{
		Name:    "order_lists",
		Status:  "ok",
		Message: fmt.Sprintf("Order lists consistent on %d board(s)", len(boards)),
	}}
}

func checkSequences(database *db.DB) []checkResult {
	drifts, err := db.SequenceDrifts(database, db.DefaultSequenceSpecs())
	if err != nil {
		return []checkResult{{Name: "sequences", Status: "error", Message: err.Error()}}
	}
	if len(drifts) == 0 {
		return []checkResult{{Name: "sequences", Status: "ok", Message: "Friendly-ID sequences ahead of existing IDs"}}
	}
	details := make([]string, len(drifts))
	for i, d := range drifts {
		details[i] = fmt.Sprintf("%s at %d, %s max %d", d.SeqTable, d.SeqValue, d.EntityTable, d.MaxID)
	}
	return []checkResult{{
		Name:    "sequences",
		Status:  "warning",
		Message: fmt.Sprintf("%d sequence(s) behind existing IDs", len(drifts)),
		Details: append(details, "Use --fix to advance them"),
	}}
}

// applyFixes advances drifted sequences and records each repair in the
// event log.
func applyFixes(database *db.DB) []string {
	fixed, err := db.FixSequenceDrifts(database, db.DefaultSequenceSpecs())
	if err != nil {
		return []string{fmt.Sprintf("sequence repair failed: %v", err)}
	}
	ew := events.NewWriter(database.DB)
	var out []string
	for _, d := range fixed {
		msg := fmt.Sprintf("advanced %s from %d to %d", d.SeqTable, d.SeqValue, d.MaxID)
		if err := ew.Log(nil, "", "system", d.SeqTable, events.SequenceRepair, 0, d); err != nil {
			msg += fmt.Sprintf(" (not logged: %v)", err)
		}
		out = append(out, msg)
	}
	return out
}

func printHumanReport(cmd *cobra.Command, report *doctorReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "boardq doctor\n\n")
	fmt.Fprintf(out, "Database: %s\n\n", report.DBPath)

	for _, fix := range report.Fixed {
		fmt.Fprintf(out, "  ✎ %s\n", fix)
	}
	if len(report.Fixed) > 0 {
		fmt.Fprintln(out)
	}

	for _, check := range report.Checks {
		icon := "✓"
		if check.Status == "warning" {
			icon = "⚠"
		} else if check.Status == "error" {
			icon = "✗"
		}
		fmt.Fprintf(out, "  %s %s\n", icon, check.Message)
		if doctorVerbose || check.Status == "error" {
			for _, detail := range check.Details {
				fmt.Fprintf(out, "      %s\n", detail)
			}
		}
	}
	fmt.Fprintln(out)

	if report.Errors > 0 {
		fmt.Fprintf(out, "Summary: %d error(s), %d warning(s)\n", report.Errors, report.Warnings)
	} else if report.Warnings > 0 {
		fmt.Fprintf(out, "Summary: %d warning(s)\n", report.Warnings)
	} else {
		fmt.Fprintf(out, "Summary: All checks passed ✓\n")
	}
}
