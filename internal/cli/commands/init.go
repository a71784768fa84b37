package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/strata/internal/cli/config"
)

const configTemplate = `# strata configuration
database: %s
migrations_dir: %s
busy_timeout: %d

# Enable column encryption by setting a key here or, better, via the
# STRATA_ENCRYPTION_KEY environment variable. Without a key, columns
# flagged encrypted store plaintext.
# encryption_key: ""
`

// NewInitCommand creates the init command, which scaffolds a strata.yaml
// and an empty migrations directory.
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Scaffold a strata project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			if err := os.MkdirAll(filepath.Join(dir, config.DefaultMigrationsDir), 0o755); err != nil {
				return fmt.Errorf("creating migrations directory: %w", err)
			}

			cfgPath := filepath.Join(dir, "strata.yaml")
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("%s already exists", cfgPath)
			}

			content := fmt.Sprintf(configTemplate,
				config.DefaultDatabase, config.DefaultMigrationsDir, config.DefaultBusyTimeout)
			if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s\n", cfgPath)
			fmt.Fprintf(out, "Created %s/\n", filepath.Join(dir, config.DefaultMigrationsDir))
			return nil
		},
	}
}
