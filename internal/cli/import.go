package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Copy a binary player file into the configured store",
		Long: `Copy every record of a binary player file into the configured store.

The source file is left in place. Stored records with the same ids
are overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.ImportFile(commandContext(cmd), args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "import failed", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d players from %s\n", n, args[0])
			return err
		},
	}
}
