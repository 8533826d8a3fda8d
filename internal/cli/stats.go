package cli

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"playercache/internal/admin"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Server string
	Token  string
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print cache counters",
		Long: `Print cache counters.

Without --server the counters of a freshly opened cache are shown. With
--server they are fetched from a running instance's admin API.

Examples:
  playercache stats --server http://localhost:8080 --token $TOKEN`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Server != "" {
				return runRemoteStats(opts, cmd)
			}
			a, err := opts.openApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			stats := a.Service.Stats()
			return opts.render(cmd, stats, func(w io.Writer) error {
				return admin.WriteStats(w, stats, a.Cache.HasProfileStore())
			})
		},
	}
	cmd.Flags().StringVar(&opts.Server, "server", "", "base URL of a running instance")
	cmd.Flags().StringVar(&opts.Token, "token", "", "admin bearer token for --server")
	return cmd
}

func runRemoteStats(opts *StatsOptions, cmd *cobra.Command) error {
	target, err := url.JoinPath(opts.Server, "admin", "stats")
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid server URL", err)
	}
	if opts.Format == "text" {
		target += "?format=text"
	}
	req, err := http.NewRequestWithContext(commandContext(cmd), http.MethodGet, target, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid server URL", err)
	}
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return WrapExitError(ExitCommandError, "request stats", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return NewExitError(ExitCommandError, fmt.Sprintf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body))))
	}
	_, err = io.Copy(cmd.OutOrStdout(), resp.Body)
	return err
}
