package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tis24dev/savevault/internal/config"
)

func newSettingsCmd(env *appEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "settings",
		Aliases: []string{"config"},
		Short:   "Show or change settings",
	}

	getCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all settings as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current := env.store.Get()
			if len(args) == 0 {
				return printJSON(cmd.OutOrStdout(), current)
			}
			value, err := current.Get(args[0])
			if err != nil {
				return err
			}
			if s, ok := value.(string); ok {
				fmt.Fprintln(cmd.OutOrStdout(), s)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), value)
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long: "Changes one setting and waits until it is written to disk. List settings " +
			"(gameInstalls, pinnedGames) accept a JSON array or a comma separated list.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := config.ParseValue(args[0], args[1])
			if err != nil {
				return err
			}
			if err := <-env.orch.UpdateSetting(args[0], value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
			return nil
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the settings file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), env.store.Path())
			return nil
		},
	}

	cmd.AddCommand(getCmd, setCmd, pathCmd)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
