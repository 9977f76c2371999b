// Package cli implements the fresson command-line interface.
package cli

import (
	"fmt"

	"github.com/leeforge/fresson/logging"
	"github.com/spf13/cobra"
)

const appName = "fresson"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion records build information, usually injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// CLI holds state shared by all commands.
type CLI struct {
	verbose bool
	// newLogger builds the logger of one-shot commands.
	newLogger func(level string) logging.Logger
}

// New creates a CLI whose one-shot commands log to the terminal.
func New() *CLI {
	return &CLI{
		newLogger: func(level string) logging.Logger {
			return logging.NewLogger(logging.ConsoleConfig(level))
		},
	}
}

// RootCommand creates the root command with every subcommand registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Fresson applies a painterly quadrichromy filter to photographs",
		Long:          `Fresson turns photographs into painterly images: randomized color grading, noise texture, brush-like blur, optional texture overlay, soft focus and channel balancing.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(versionString() + "\n")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.applyCommand())
	root.AddCommand(c.versionCommand())

	return root
}

func (c *CLI) logLevel() string {
	if c.verbose {
		return "debug"
	}
	return "info"
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), versionString())
			return err
		},
	}
}

func versionString() string {
	return fmt.Sprintf("%s %s\ncommit: %s\nbuilt: %s", appName, version, commit, date)
}
