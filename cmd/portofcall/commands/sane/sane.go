// Package sane implements the "sane" subcommand family.
package sane

import (
	"github.com/spf13/cobra"

	"github.com/pocc/portofcall-sub006/cmd/portofcall/cmdutil"
)

// Cmd is the parent command for SANE network scanning operations.
var Cmd = &cobra.Command{
	Use:   "sane",
	Short: "SANE network scanner protocol operations",
}

var getDevicesCmd = &cobra.Command{
	Use:   "get-devices",
	Short: "Init a SANE session and list available scanner devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		callerName, _ := cmd.Flags().GetString("caller-name")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{"caller_name": callerName})
		return cmdutil.RunOperation("sane", "get_devices", params)
	},
}

func init() {
	cmdutil.AddTargetFlags(getDevicesCmd)
	getDevicesCmd.Flags().String("caller-name", "portofcall", "client name reported to saned")

	Cmd.AddCommand(getDevicesCmd)
}
