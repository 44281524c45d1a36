package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vadiminshakov/papertrade/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check configuration files",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().SaveToFile(out); err != nil {
				return err
			}
			cmd.Printf("wrote %s; set auth.secret or %s before serving\n", out, config.EnvSecretKey)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "config.yaml", "file to write")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a config file, including environment overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return errors.New("--file is required")
			}
			if _, err := config.Load(path); err != nil {
				return errors.Wrapf(err, "%s is invalid", path)
			}
			cmd.Printf("%s is valid\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "config file to check")
	return cmd
}
