package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewBackupCommand creates the backup command.
func NewBackupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <destination>",
		Short: "Write a consistent snapshot of the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			dest := args[0]
			if err := eng.Backup(dest); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", dest)
			return nil
		},
	}
}
