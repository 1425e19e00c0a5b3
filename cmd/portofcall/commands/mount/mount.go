// Package mount implements the "mount" subcommand family (ONC-RPC MOUNT).
package mount

import (
	"github.com/spf13/cobra"

	"github.com/pocc/portofcall-sub006/cmd/portofcall/cmdutil"
)

// Cmd is the parent command for MOUNT operations.
var Cmd = &cobra.Command{
	Use:   "mount",
	Short: "ONC-RPC MOUNT protocol operations",
}

var mntCmd = &cobra.Command{
	Use:   "mnt",
	Short: "Request a file handle for an exported directory path",
	RunE: func(cmd *cobra.Command, args []string) error {
		dirPath, _ := cmd.Flags().GetString("dir-path")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{"dir_path": dirPath})
		return cmdutil.RunOperation("mount", "mnt", params)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "List the server's exported directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunOperation("mount", "export", cmdutil.TargetParams(cmd))
	},
}

func init() {
	cmdutil.AddTargetFlags(mntCmd)
	mntCmd.Flags().String("dir-path", "", "exported directory path to mount")
	_ = mntCmd.MarkFlagRequired("dir-path")

	cmdutil.AddTargetFlags(exportCmd)

	Cmd.AddCommand(mntCmd)
	Cmd.AddCommand(exportCmd)
}
