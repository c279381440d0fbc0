package service

import (
	"os"

	"forumhub/app/config"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version is reported by the version command
const Version = "1.0.0"

var osExit = os.Exit

type configLoader func() (*config.Config, error)

// NewRootCmd builds the forum command tree
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "forum",
		Short:         "A small discussion forum: posts, threaded replies, likes and live updates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "forum.yaml", "path to the YAML config file")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	root.AddCommand(
		newServeCmd(load),
		newDBCmd(load),
		newUsersCmd(load),
		newPostsCmd(load),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		osExit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("forum version %s\n", Version)
		},
	}
}
