// Package multistream implements the "multistream" subcommand family
// (libp2p multistream-select).
package multistream

import (
	"github.com/spf13/cobra"

	"github.com/pocc/portofcall-sub006/cmd/portofcall/cmdutil"
)

// Cmd is the parent command for multistream-select operations.
var Cmd = &cobra.Command{
	Use:   "multistream",
	Short: "libp2p multistream-select operations",
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Handshake then propose one protocol ID, reporting acceptance",
	RunE: func(cmd *cobra.Command, args []string) error {
		protocolID, _ := cmd.Flags().GetString("protocol-id")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{"protocol_id": protocolID})
		return cmdutil.RunOperation("multistream", "select", params)
	},
}

var listProtocolsCmd = &cobra.Command{
	Use:   "list-protocols",
	Short: "Handshake then list the peer's supported protocol IDs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunOperation("multistream", "list_protocols", cmdutil.TargetParams(cmd))
	},
}

func init() {
	cmdutil.AddTargetFlags(selectCmd)
	selectCmd.Flags().String("protocol-id", "", "protocol ID to propose (e.g. /ipfs/id/1.0.0)")
	_ = selectCmd.MarkFlagRequired("protocol-id")

	cmdutil.AddTargetFlags(listProtocolsCmd)

	Cmd.AddCommand(selectCmd, listProtocolsCmd)
}
