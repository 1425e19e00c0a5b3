// Package zookeeper implements the "zookeeper" subcommand family (4LW).
package zookeeper

import (
	"github.com/spf13/cobra"

	"github.com/pocc/portofcall-sub006/cmd/portofcall/cmdutil"
)

// Cmd is the parent command for ZooKeeper four-letter-word operations.
var Cmd = &cobra.Command{
	Use:   "zookeeper",
	Short: "ZooKeeper four-letter-word commands",
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a four-letter-word command (ruok, stat, mntr, srvr, ...)",
	RunE: func(cmd *cobra.Command, args []string) error {
		command, _ := cmd.Flags().GetString("command")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{"command": command})
		return cmdutil.RunOperation("zookeeper", "send", params)
	},
}

func init() {
	cmdutil.AddTargetFlags(sendCmd)
	sendCmd.Flags().String("command", "", "four-letter-word command to send (e.g. ruok)")
	_ = sendCmd.MarkFlagRequired("command")

	Cmd.AddCommand(sendCmd)
}
