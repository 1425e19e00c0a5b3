// Package clickhouse implements the "clickhouse" subcommand family
// (ClickHouse native protocol).
package clickhouse

import (
	"github.com/spf13/cobra"

	"github.com/pocc/portofcall-sub006/cmd/portofcall/cmdutil"
)

// Cmd is the parent command for ClickHouse operations.
var Cmd = &cobra.Command{
	Use:   "clickhouse",
	Short: "ClickHouse native protocol operations",
}

func addCreds(cmd *cobra.Command) {
	cmd.Flags().String("database", "default", "database name")
	cmd.Flags().String("username", "default", "username")
	cmd.Flags().String("password", "", "password (prompted if omitted)")
}

func credParams(cmd *cobra.Command) (map[string]any, error) {
	database, _ := cmd.Flags().GetString("database")
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	password, err := cmdutil.PromptIfEmpty(password, "Password")
	if err != nil {
		return nil, err
	}
	return map[string]any{"database": database, "username": username, "password": password}, nil
}

var handshakeCmd = &cobra.Command{
	Use:   "handshake",
	Short: "Run the ClickHouse client/server handshake",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credParams(cmd)
		if err != nil {
			return err
		}
		return cmdutil.RunOperation("clickhouse", "handshake", cmdutil.Merge(cmdutil.TargetParams(cmd), creds))
	},
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Handshake then run a query, returning its result blocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credParams(cmd)
		if err != nil {
			return err
		}
		query, _ := cmd.Flags().GetString("query")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), creds, map[string]any{"query": query})
		return cmdutil.RunOperation("clickhouse", "query", params)
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Send a ClickHouse Ping and await Pong",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunOperation("clickhouse", "ping", cmdutil.TargetParams(cmd))
	},
}

func init() {
	cmdutil.AddTargetFlags(handshakeCmd)
	addCreds(handshakeCmd)

	cmdutil.AddTargetFlags(queryCmd)
	addCreds(queryCmd)
	queryCmd.Flags().String("query", "", "SQL query to run")
	_ = queryCmd.MarkFlagRequired("query")

	cmdutil.AddTargetFlags(pingCmd)

	Cmd.AddCommand(handshakeCmd, queryCmd, pingCmd)
}
