package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lab-report-normalizer/internal/setup"
)

func (a *app) newSetupCmd() *cobra.Command {
	var clientConfig string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the MCP server with Claude Desktop",
	}
	cmd.PersistentFlags().StringVar(&clientConfig, "client-config", "", "client config file (defaults to the platform location)")

	resolve := func() (string, error) {
		if clientConfig != "" {
			return clientConfig, nil
		}
		return setup.DesktopConfigPath()
	}

	var opts setup.Options
	register := &cobra.Command{
		Use:   "register",
		Short: "Add or update the server entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := resolve()
			if err != nil {
				return err
			}
			o := opts
			if o.ConfigFile == "" {
				o.ConfigFile = a.configFile
			}
			entry, err := setup.Register(path, o)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Registered %s in %s\n", setup.ServerName, path)
			fmt.Fprintf(w, "  command: %s\n", entry.Command)
			keys := make([]string, 0, len(entry.Env))
			for k := range entry.Env {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "  %s=%s\n", k, entry.Env[k])
			}
			fmt.Fprintln(w, "Restart the client to load the server.")
			return nil
		},
	}
	register.Flags().StringVar(&opts.BinaryPath, "binary", "", "path to the MCP server binary (searched when empty)")
	register.Flags().StringVar(&opts.DataDir, "data-dir", "", "directory for run history")
	register.Flags().StringVar(&opts.ConfigFile, "server-config", "", "config file passed to the server")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := resolve()
			if err != nil {
				return err
			}
			st, err := setup.GetStatus(path)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Client config: %s\n", st.ConfigPath)
			fmt.Fprintf(w, "Registered:    %t\n", st.Registered)
			if st.Registered {
				fmt.Fprintf(w, "Command:       %s (found: %t)\n", st.Command, st.BinaryFound)
				fmt.Fprintf(w, "Data dir:      %s\n", st.DataDir)
			}
			for _, issue := range st.Issues {
				fmt.Fprintf(w, "  ! %s\n", issue)
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove the server entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := resolve()
			if err != nil {
				return err
			}
			removed, err := setup.Unregister(path)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintln(cmd.OutOrStdout(), "Server was not registered.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s\n", setup.ServerName, path)
			return nil
		},
	}

	cmd.AddCommand(register, status, remove)
	return cmd
}
