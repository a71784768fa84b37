package commands

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// runShell starts the interactive SQL shell.
func runShell(cmd *cobra.Command, dbPath, format string, write bool) error {
	db, err := openQueryDB(dbPath, write)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	historyFile := filepath.Join(filepath.Dir(dbPath), ".strata_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "strata> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	mode := "read-only"
	if write {
		mode = "read-write"
	}
	_, _ = fmt.Fprintf(out, "strata shell (%s, %s)\n", dbPath, mode)
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	var buffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buffer.Reset()
			rl.SetPrompt("strata> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") && buffer.Len() == 0 {
			if line == ".quit" || line == ".exit" {
				break
			}
			handleDotCommand(cmd, db, line, format)
			continue
		}

		// Accumulate multi-line SQL until a terminating semicolon.
		buffer.WriteString(line)
		buffer.WriteString(" ")
		if !strings.HasSuffix(line, ";") {
			rl.SetPrompt("   ...> ")
			continue
		}

		stmt := buffer.String()
		buffer.Reset()
		rl.SetPrompt("strata> ")

		if err := runStatement(cmd, db, stmt, format); err != nil {
			_, _ = fmt.Fprintf(out, "Error: %v\n", err)
		}
	}

	return nil
}

func handleDotCommand(cmd *cobra.Command, db *sql.DB, line, format string) {
	out := cmd.OutOrStdout()
	switch {
	case line == ".help":
		_, _ = fmt.Fprintln(out, "  .tables         list tables")
		_, _ = fmt.Fprintln(out, "  .schema TABLE   show a table's DDL")
		_, _ = fmt.Fprintln(out, "  .quit           exit the shell")
	case line == ".tables":
		_ = runStatement(cmd, db,
			"SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name", format)
	case strings.HasPrefix(line, ".schema"):
		name := strings.TrimSpace(strings.TrimPrefix(line, ".schema"))
		if name == "" {
			_, _ = fmt.Fprintln(out, "Usage: .schema TABLE")
			return
		}
		rows, err := db.Query("SELECT sql FROM sqlite_master WHERE name = ?", name)
		if err != nil {
			_, _ = fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		defer rows.Close()
		found := false
		for rows.Next() {
			var ddl sql.NullString
			if err := rows.Scan(&ddl); err == nil && ddl.Valid {
				_, _ = fmt.Fprintln(out, ddl.String+";")
				found = true
			}
		}
		if !found {
			_, _ = fmt.Fprintf(out, "No such table: %s\n", name)
		}
	default:
		_, _ = fmt.Fprintf(out, "Unknown command: %s (try .help)\n", line)
	}
}
