package commands

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	// sqlite driver for read-only ad-hoc queries.
	_ "modernc.org/sqlite"
)

// openReadOnly opens the database for ad-hoc querying without going
// through the engine. Read-only mode keeps the shell from mutating data
// unless the caller explicitly asks for write access.
func openReadOnly(path string) (*sql.DB, error) {
	return sql.Open("sqlite", path+"?mode=ro")
}

// NewQueryCommand creates the query command: one-shot when given SQL,
// interactive shell otherwise.
func NewQueryCommand() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Run ad-hoc SQL against the database",
		Long: `Run a single SQL statement, or start an interactive shell when no
statement is given. The database opens read-only unless --write is set.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				return runShell(cmd, cfg.DatabasePath, cfg.Output, write)
			}

			db, err := openQueryDB(cfg.DatabasePath, write)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			return runStatement(cmd, db, strings.Join(args, " "), cfg.Output)
		},
	}

	cmd.Flags().BoolVar(&write, "write", false, "Open the database read-write")
	return cmd
}

func openQueryDB(path string, write bool) (*sql.DB, error) {
	if write {
		return sql.Open("sqlite", path)
	}
	return openReadOnly(path)
}

// runStatement executes one statement and renders its result. Statements
// that return no rows report the affected count instead.
func runStatement(cmd *cobra.Command, db *sql.DB, sqlText, format string) error {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sqlText), ";"))
	if trimmed == "" {
		return nil
	}

	if isReadStatement(trimmed) {
		rows, err := db.Query(trimmed)
		if err != nil {
			return err
		}
		defer rows.Close()
		return renderResults(cmd.OutOrStdout(), rows, format)
	}

	res, err := db.Exec(trimmed)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	fmt.Fprintf(cmd.OutOrStdout(), "%d row(s) affected\n", affected)
	return nil
}

func isReadStatement(sqlText string) bool {
	head := strings.ToUpper(sqlText)
	for _, prefix := range []string{"SELECT", "WITH", "PRAGMA", "EXPLAIN"} {
		if strings.HasPrefix(head, prefix) {
			return true
		}
	}
	return false
}
