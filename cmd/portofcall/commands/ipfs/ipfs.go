// Package ipfs implements the "ipfs" subcommand family (IPFS HTTP RPC).
package ipfs

import (
	"github.com/spf13/cobra"

	"github.com/pocc/portofcall-sub006/cmd/portofcall/cmdutil"
)

// Cmd is the parent command for IPFS HTTP API operations.
var Cmd = &cobra.Command{
	Use:   "ipfs",
	Short: "IPFS HTTP RPC API operations",
}

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Fetch the node's peer identity via /api/v0/id",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunOperation("ipfs", "id", cmdutil.TargetParams(cmd))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Fetch the node's version via /api/v0/version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunOperation("ipfs", "version", cmdutil.TargetParams(cmd))
	},
}

func init() {
	cmdutil.AddTargetFlags(idCmd)
	cmdutil.AddTargetFlags(versionCmd)

	Cmd.AddCommand(idCmd, versionCmd)
}
