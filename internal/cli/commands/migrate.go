package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/strata/internal/migrate"
	"github.com/leapstack-labs/strata/pkg/core"
)

// NewMigrateCommand creates the migrate command with up/down/status
// subcommands.
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert schema migrations",
		Long: `Apply or revert the SQL migration pairs found in the migrations
directory (<name>.up.sql / <name>.down.sql). Applied migrations are tracked
in the database's migrations ledger; re-running up is a no-op for anything
already applied.`,
	}

	cmd.AddCommand(newMigrateRunCommand(core.DirectionUp, "Apply all pending migrations"))
	cmd.AddCommand(newMigrateRunCommand(core.DirectionDown, "Revert applied migrations, newest first"))
	cmd.AddCommand(newMigrateStatusCommand())
	return cmd
}

func newMigrateRunCommand(direction core.Direction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(direction),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}

			migrations, err := migrate.LoadDir(cfg.MigrationsDir)
			if err != nil {
				return err
			}
			if len(migrations) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No migrations found in %s\n", cfg.MigrationsDir)
				return nil
			}

			eng, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			before, err := eng.MigrationStatus()
			if err != nil {
				return err
			}
			if err := eng.Migrate(direction, migrations); err != nil {
				return err
			}
			after, err := eng.MigrationStatus()
			if err != nil {
				return err
			}

			delta := len(after) - len(before)
			if delta < 0 {
				delta = -delta
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s: %d unit(s), %d applied total\n",
				direction, delta, len(after))
			return nil
		},
	}
}

func newMigrateStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which migrations are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}

			migrations, err := migrate.LoadDir(cfg.MigrationsDir)
			if err != nil {
				return err
			}

			eng, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			records, err := eng.MigrationStatus()
			if err != nil {
				return err
			}
			applied := make(map[string]core.MigrationRecord, len(records))
			for _, rec := range records {
				applied[rec.Name] = rec
			}

			out := cmd.OutOrStdout()
			for _, m := range migrations {
				if rec, ok := applied[m.Name]; ok {
					fmt.Fprintf(out, "  [x] %s  (applied %s)\n", m.Name, rec.ExecutedAt)
				} else {
					fmt.Fprintf(out, "  [ ] %s\n", m.Name)
				}
			}
			fmt.Fprintf(out, "%d of %d applied\n", len(records), len(migrations))
			return nil
		},
	}
}
