package main

import (
	"github.com/spf13/cobra"

	"github.com/tis24dev/savevault/internal/version"
)

func newRootCmd(env *appEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "savevault",
		Short:         "Move, inspect and export game save backups",
		Version:       version.Full(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.setup(cmd)
		},
	}
	env.opts.Bind(cmd.PersistentFlags())

	cmd.AddCommand(newMigrateCmd(env))
	cmd.AddCommand(newExportCmd(env))
	cmd.AddCommand(newSettingsCmd(env))
	cmd.AddCommand(newResolveCmd(env))
	cmd.AddCommand(newNewestCmd(env))
	cmd.AddCommand(newVerifyCmd(env))
	cmd.AddCommand(newSizeCmd(env))
	cmd.AddCommand(newFixPermissionsCmd(env))
	cmd.AddCommand(newPruneCmd(env))
	cmd.AddCommand(newStatusCmd(env))
	cmd.AddCommand(newVersionCmd())
	return cmd
}
