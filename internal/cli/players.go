package cli

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"playercache/internal/admin"
)

// LookupOptions holds flags shared by lookup and history.
type LookupOptions struct {
	*RootOptions
	Resolve bool
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LookupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lookup <name|id>",
		Short: "Show the player holding a name or id",
		Long: `Look a player up by current name or by id.

A 36 character argument that parses as an id is treated as an id.
With --resolve a miss is asked of the remote identity service and the
answer is stored.

Examples:
  playercache lookup Notch
  playercache lookup 069a79f4-44e9-4726-a5be-fca90e38aaf5 --resolve`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(opts, cmd, args[0])
		},
	}
	cmd.Flags().BoolVar(&opts.Resolve, "resolve", false, "ask the remote service on a miss")
	return cmd
}

func runLookup(opts *LookupOptions, cmd *cobra.Command, key string) error {
	a, err := opts.openApp(cmd, opts.Resolve)
	if err != nil {
		return err
	}
	defer a.Close()

	player, ok := a.Service.PlayerByNameOrID(commandContext(cmd), key, opts.Resolve)
	if !ok && opts.Format == "json" {
		return NewExitError(ExitFailure, "unknown account")
	}
	return opts.render(cmd, admin.NewPlayerResponse(player), func(w io.Writer) error {
		return admin.WritePlayer(w, player, ok)
	})
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LookupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show every name an id has held",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("illegal uuid %q", args[0]), err)
			}
			return runHistory(opts, cmd, id)
		},
	}
	cmd.Flags().BoolVar(&opts.Resolve, "resolve", false, "ask the remote service on a miss")
	return cmd
}

func runHistory(opts *LookupOptions, cmd *cobra.Command, id uuid.UUID) error {
	a, err := opts.openApp(cmd, opts.Resolve)
	if err != nil {
		return err
	}
	defer a.Close()

	history, ok := a.Service.NameHistory(commandContext(cmd), id, opts.Resolve)
	if !ok && opts.Format == "json" {
		return NewExitError(ExitFailure, "unknown account")
	}
	return opts.render(cmd, admin.NewHistoryResponse(history), func(w io.Writer) error {
		return admin.WriteHistory(w, history, ok)
	})
}

// NewNamesCommand creates the names command.
func NewNamesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "names <name>",
		Short: "List every id that has ever been named <name>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			name := args[0]
			ids := a.Service.IDsEverNamed(commandContext(cmd), name)
			return opts.render(cmd, admin.NewIDsResponse(name, ids), func(w io.Writer) error {
				return admin.WriteIDs(w, name, ids)
			})
		},
	}
}

// NewSearchCommand creates the search command.
func NewSearchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <fragment>",
		Short: "List players whose name contains <fragment>, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			records := a.Service.SearchPlayers(commandContext(cmd), args[0])
			return opts.render(cmd, admin.NewSearchResponse(records), func(w io.Writer) error {
				return admin.WriteSearch(w, records)
			})
		},
	}
}
