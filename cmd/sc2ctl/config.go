package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/sc2ctl/internal/config"
)

func newConfigCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "config",
		Short: "Manage sc2ctl configuration",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter config holding the defaults",
		Args:  cobra.MaximumNArgs(1),
		// no config is loaded before one exists
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "sc2ctl.toml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteTemplate(path, force); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := config.Encode(c.cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}
	root.AddCommand(initCmd, show)
	return root
}
