// Package nfs3 implements the "nfs3" subcommand family (NFSv3 procedures).
package nfs3

import (
	"github.com/spf13/cobra"

	"github.com/pocc/portofcall-sub006/cmd/portofcall/cmdutil"
)

// Cmd is the parent command for NFSv3 operations.
var Cmd = &cobra.Command{
	Use:   "nfs3",
	Short: "NFSv3 file operations",
}

func handleFlag(cmd *cobra.Command, name, usage string) {
	cmd.Flags().String(name, "", usage)
	_ = cmd.MarkFlagRequired(name)
}

var getattrCmd = &cobra.Command{
	Use:   "getattr",
	Short: "Fetch attributes for a file handle",
	RunE: func(cmd *cobra.Command, args []string) error {
		handle, _ := cmd.Flags().GetString("handle")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{"handle": handle})
		return cmdutil.RunOperation("nfs3", "getattr", params)
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Resolve a name within a directory handle",
	RunE: func(cmd *cobra.Command, args []string) error {
		dirHandle, _ := cmd.Flags().GetString("dir-handle")
		name, _ := cmd.Flags().GetString("name")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{"dir_handle": dirHandle, "name": name})
		return cmdutil.RunOperation("nfs3", "lookup", params)
	},
}

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read a byte range from a file handle",
	RunE: func(cmd *cobra.Command, args []string) error {
		handle, _ := cmd.Flags().GetString("handle")
		offset, _ := cmd.Flags().GetUint64("offset")
		count, _ := cmd.Flags().GetUint32("count")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{"handle": handle, "offset": offset, "count": count})
		return cmdutil.RunOperation("nfs3", "read", params)
	},
}

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write hex-encoded bytes to a file handle at an offset",
	RunE: func(cmd *cobra.Command, args []string) error {
		handle, _ := cmd.Flags().GetString("handle")
		offset, _ := cmd.Flags().GetUint64("offset")
		dataHex, _ := cmd.Flags().GetString("data-hex")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{"handle": handle, "offset": offset, "data_hex": dataHex})
		return cmdutil.RunOperation("nfs3", "write", params)
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a file in a directory handle",
	RunE: func(cmd *cobra.Command, args []string) error {
		dirHandle, _ := cmd.Flags().GetString("dir-handle")
		name, _ := cmd.Flags().GetString("name")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{"dir_handle": dirHandle, "name": name})
		return cmdutil.RunOperation("nfs3", "create", params)
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir",
	Short: "Create a directory in a directory handle",
	RunE: func(cmd *cobra.Command, args []string) error {
		dirHandle, _ := cmd.Flags().GetString("dir-handle")
		name, _ := cmd.Flags().GetString("name")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{"dir_handle": dirHandle, "name": name})
		return cmdutil.RunOperation("nfs3", "mkdir", params)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a file from a directory handle",
	RunE: func(cmd *cobra.Command, args []string) error {
		dirHandle, _ := cmd.Flags().GetString("dir-handle")
		name, _ := cmd.Flags().GetString("name")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{"dir_handle": dirHandle, "name": name})
		return cmdutil.RunOperation("nfs3", "remove", params)
	},
}

var rmdirCmd = &cobra.Command{
	Use:   "rmdir",
	Short: "Remove a directory from a directory handle",
	RunE: func(cmd *cobra.Command, args []string) error {
		dirHandle, _ := cmd.Flags().GetString("dir-handle")
		name, _ := cmd.Flags().GetString("name")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{"dir_handle": dirHandle, "name": name})
		return cmdutil.RunOperation("nfs3", "rmdir", params)
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename",
	Short: "Rename an entry between (possibly the same) directory handles",
	RunE: func(cmd *cobra.Command, args []string) error {
		fromDir, _ := cmd.Flags().GetString("from-dir-handle")
		fromName, _ := cmd.Flags().GetString("from-name")
		toDir, _ := cmd.Flags().GetString("to-dir-handle")
		toName, _ := cmd.Flags().GetString("to-name")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{
			"from_dir_handle": fromDir, "from_name": fromName,
			"to_dir_handle": toDir, "to_name": toName,
		})
		return cmdutil.RunOperation("nfs3", "rename", params)
	},
}

var readdirCmd = &cobra.Command{
	Use:   "readdir",
	Short: "List directory entries starting from a cookie",
	RunE: func(cmd *cobra.Command, args []string) error {
		handle, _ := cmd.Flags().GetString("handle")
		cookie, _ := cmd.Flags().GetUint64("cookie")
		cookieVerf, _ := cmd.Flags().GetString("cookie-verf")
		count, _ := cmd.Flags().GetUint32("count")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{
			"handle": handle, "cookie": cookie, "cookie_verf": cookieVerf, "count": count,
		})
		return cmdutil.RunOperation("nfs3", "readdir", params)
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe NULL-call support at NFS versions 2, 3, and 4",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunOperation("nfs3", "probe", cmdutil.TargetParams(cmd))
	},
}

func init() {
	cmdutil.AddTargetFlags(getattrCmd)
	handleFlag(getattrCmd, "handle", "hex-encoded file handle")

	cmdutil.AddTargetFlags(lookupCmd)
	handleFlag(lookupCmd, "dir-handle", "hex-encoded directory handle")
	handleFlag(lookupCmd, "name", "entry name to resolve")

	cmdutil.AddTargetFlags(readCmd)
	handleFlag(readCmd, "handle", "hex-encoded file handle")
	readCmd.Flags().Uint64("offset", 0, "byte offset to read from")
	readCmd.Flags().Uint32("count", 0, "number of bytes to read")
	_ = readCmd.MarkFlagRequired("count")

	cmdutil.AddTargetFlags(writeCmd)
	handleFlag(writeCmd, "handle", "hex-encoded file handle")
	writeCmd.Flags().Uint64("offset", 0, "byte offset to write at")
	writeCmd.Flags().String("data-hex", "", "hex-encoded payload to write")
	_ = writeCmd.MarkFlagRequired("data-hex")

	cmdutil.AddTargetFlags(createCmd)
	handleFlag(createCmd, "dir-handle", "hex-encoded directory handle")
	handleFlag(createCmd, "name", "new file name")

	cmdutil.AddTargetFlags(mkdirCmd)
	handleFlag(mkdirCmd, "dir-handle", "hex-encoded directory handle")
	handleFlag(mkdirCmd, "name", "new directory name")

	cmdutil.AddTargetFlags(removeCmd)
	handleFlag(removeCmd, "dir-handle", "hex-encoded directory handle")
	handleFlag(removeCmd, "name", "file name to remove")

	cmdutil.AddTargetFlags(rmdirCmd)
	handleFlag(rmdirCmd, "dir-handle", "hex-encoded directory handle")
	handleFlag(rmdirCmd, "name", "directory name to remove")

	cmdutil.AddTargetFlags(renameCmd)
	handleFlag(renameCmd, "from-dir-handle", "hex-encoded source directory handle")
	handleFlag(renameCmd, "from-name", "source entry name")
	handleFlag(renameCmd, "to-dir-handle", "hex-encoded destination directory handle")
	handleFlag(renameCmd, "to-name", "destination entry name")

	cmdutil.AddTargetFlags(readdirCmd)
	handleFlag(readdirCmd, "handle", "hex-encoded directory handle")
	readdirCmd.Flags().Uint64("cookie", 0, "directory cookie to resume from")
	readdirCmd.Flags().String("cookie-verf", "", "hex-encoded 8-byte cookie verifier")
	readdirCmd.Flags().Uint32("count", 8192, "maximum response size in bytes")

	cmdutil.AddTargetFlags(probeCmd)

	Cmd.AddCommand(getattrCmd, lookupCmd, readCmd, writeCmd, createCmd, mkdirCmd, removeCmd, rmdirCmd, renameCmd, readdirCmd, probeCmd)
}
