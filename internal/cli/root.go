package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/entrypoint"
)

// BuildInfo is stamped at link time.
type BuildInfo struct {
	Version string
	Commit  string
}

// NewRootCommand assembles the librarian command tree. Running the binary
// without a subcommand starts the server.
func NewRootCommand(cfg *config.Config, info BuildInfo) *cobra.Command {
	serve := func(*cobra.Command, []string) {
		entrypoint.Run(cfg, info.Version)
	}

	root := &cobra.Command{
		Use:           "librarian",
		Short:         "Library catalog and loan service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		Run:           serve,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server (default if no command given)",
			Args:  cobra.NoArgs,
			Run:   serve,
		},
		NewCreateAdminCommand().Cobra(cfg),
		&cobra.Command{
			Use:   "version",
			Short: "Print the build version",
			Args:  cobra.NoArgs,
			Run: func(c *cobra.Command, _ []string) {
				fmt.Fprintf(c.OutOrStdout(), "librarian %s (%s)\n", info.Version, info.Commit)
			},
		},
	)
	return root
}
