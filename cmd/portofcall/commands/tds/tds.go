// Package tds implements the "tds" subcommand family (Sybase TDS 5.0).
package tds

import (
	"github.com/spf13/cobra"

	"github.com/pocc/portofcall-sub006/cmd/portofcall/cmdutil"
)

// Cmd is the parent command for TDS operations.
var Cmd = &cobra.Command{
	Use:   "tds",
	Short: "Sybase TDS 5.0 operations",
}

var probeCmd = &cobra.Command{
	Use:   "probe-prelogin",
	Short: "Send a TDS PRELOGIN packet and check for acknowledgement",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunOperation("tds", "probe_prelogin", cmdutil.TargetParams(cmd))
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Run a TDS LOGIN exchange",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		password, err := cmdutil.PromptIfEmpty(password, "Password")
		if err != nil {
			return err
		}
		appName, _ := cmd.Flags().GetString("app-name")
		serverName, _ := cmd.Flags().GetString("server-name")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{
			"username": username, "password": password, "app_name": appName, "server_name": serverName,
		})
		return cmdutil.RunOperation("tds", "login", params)
	},
}

func init() {
	cmdutil.AddTargetFlags(probeCmd)

	cmdutil.AddTargetFlags(loginCmd)
	loginCmd.Flags().String("username", "", "TDS login username")
	loginCmd.Flags().String("password", "", "TDS login password (prompted if omitted)")
	loginCmd.Flags().String("app-name", "portofcall", "client application name")
	loginCmd.Flags().String("server-name", "", "target server name")
	_ = loginCmd.MarkFlagRequired("username")

	Cmd.AddCommand(probeCmd, loginCmd)
}
