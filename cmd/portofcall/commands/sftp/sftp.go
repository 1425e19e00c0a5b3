// Package sftp implements the "sftp" subcommand family (SFTP over SSH).
package sftp

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pocc/portofcall-sub006/cmd/portofcall/cmdutil"
)

// Cmd is the parent command for SFTP operations.
var Cmd = &cobra.Command{
	Use:   "sftp",
	Short: "SFTP-over-SSH file operations",
}

func addAuthFlags(cmd *cobra.Command) {
	cmd.Flags().String("username", "", "SSH username")
	cmd.Flags().String("password", "", "SSH password (prompted if omitted and no key is given)")
	cmd.Flags().String("private-key-file", "", "path to a PEM-encoded private key")
	_ = cmd.MarkFlagRequired("username")
}

func authParams(cmd *cobra.Command) (map[string]any, error) {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	keyFile, _ := cmd.Flags().GetString("private-key-file")

	var keyPEM string
	if keyFile != "" {
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, err
		}
		keyPEM = string(data)
	} else if password == "" {
		resolved, err := cmdutil.PromptIfEmpty(password, "Password")
		if err != nil {
			return nil, err
		}
		password = resolved
	}

	return map[string]any{"username": username, "password": password, "private_key_pem": keyPEM}, nil
}

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open a remote path and return its handle",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := authParams(cmd)
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("path")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), auth, map[string]any{"path": path})
		return cmdutil.RunOperation("sftp", "open", params)
	},
}

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read a byte range from an open file handle",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := authParams(cmd)
		if err != nil {
			return err
		}
		handle, _ := cmd.Flags().GetString("handle-hex")
		offset, _ := cmd.Flags().GetUint64("offset")
		length, _ := cmd.Flags().GetUint32("length")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), auth, map[string]any{
			"handle_hex": handle, "offset": offset, "length": length,
		})
		return cmdutil.RunOperation("sftp", "read", params)
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Read an open file handle to EOF, up to the aggregate download cap",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := authParams(cmd)
		if err != nil {
			return err
		}
		handle, _ := cmd.Flags().GetString("handle-hex")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), auth, map[string]any{"handle_hex": handle})
		return cmdutil.RunOperation("sftp", "download", params)
	},
}

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write hex-encoded bytes to an open file handle",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := authParams(cmd)
		if err != nil {
			return err
		}
		handle, _ := cmd.Flags().GetString("handle-hex")
		offset, _ := cmd.Flags().GetUint64("offset")
		dataHex, _ := cmd.Flags().GetString("data-hex")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), auth, map[string]any{
			"handle_hex": handle, "offset": offset, "data_hex": dataHex,
		})
		return cmdutil.RunOperation("sftp", "write", params)
	},
}

var readdirCmd = &cobra.Command{
	Use:   "readdir",
	Short: "List entries under a remote directory path",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := authParams(cmd)
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("path")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), auth, map[string]any{"path": path})
		return cmdutil.RunOperation("sftp", "readdir", params)
	},
}

var statCmd = &cobra.Command{
	Use:   "stat",
	Short: "Fetch attributes for a remote path",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := authParams(cmd)
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("path")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), auth, map[string]any{"path": path})
		return cmdutil.RunOperation("sftp", "stat", params)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a remote file",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := authParams(cmd)
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("path")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), auth, map[string]any{"path": path})
		return cmdutil.RunOperation("sftp", "remove", params)
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir",
	Short: "Create a remote directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := authParams(cmd)
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("path")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), auth, map[string]any{"path": path})
		return cmdutil.RunOperation("sftp", "mkdir", params)
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename",
	Short: "Rename a remote path",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := authParams(cmd)
		if err != nil {
			return err
		}
		oldPath, _ := cmd.Flags().GetString("old-path")
		newPath, _ := cmd.Flags().GetString("new-path")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), auth, map[string]any{"old_path": oldPath, "new_path": newPath})
		return cmdutil.RunOperation("sftp", "rename", params)
	},
}

func init() {
	for _, c := range []*cobra.Command{openCmd, readCmd, downloadCmd, writeCmd, readdirCmd, statCmd, removeCmd, mkdirCmd, renameCmd} {
		cmdutil.AddTargetFlags(c)
		addAuthFlags(c)
	}

	openCmd.Flags().String("path", "", "remote path to open")
	_ = openCmd.MarkFlagRequired("path")

	readCmd.Flags().String("handle-hex", "", "hex-encoded handle returned by open")
	readCmd.Flags().Uint64("offset", 0, "byte offset to read from")
	readCmd.Flags().Uint32("length", 0, "number of bytes to read")
	_ = readCmd.MarkFlagRequired("handle-hex")
	_ = readCmd.MarkFlagRequired("length")

	downloadCmd.Flags().String("handle-hex", "", "hex-encoded handle returned by open")
	_ = downloadCmd.MarkFlagRequired("handle-hex")

	writeCmd.Flags().String("handle-hex", "", "hex-encoded handle returned by open")
	writeCmd.Flags().Uint64("offset", 0, "byte offset to write at")
	writeCmd.Flags().String("data-hex", "", "hex-encoded payload to write")
	_ = writeCmd.MarkFlagRequired("handle-hex")
	_ = writeCmd.MarkFlagRequired("data-hex")

	readdirCmd.Flags().String("path", "", "remote directory path")
	_ = readdirCmd.MarkFlagRequired("path")

	statCmd.Flags().String("path", "", "remote path")
	_ = statCmd.MarkFlagRequired("path")

	removeCmd.Flags().String("path", "", "remote path to remove")
	_ = removeCmd.MarkFlagRequired("path")

	mkdirCmd.Flags().String("path", "", "remote directory path to create")
	_ = mkdirCmd.MarkFlagRequired("path")

	renameCmd.Flags().String("old-path", "", "existing remote path")
	renameCmd.Flags().String("new-path", "", "new remote path")
	_ = renameCmd.MarkFlagRequired("old-path")
	_ = renameCmd.MarkFlagRequired("new-path")

	Cmd.AddCommand(openCmd, readCmd, downloadCmd, writeCmd, readdirCmd, statCmd, removeCmd, mkdirCmd, renameCmd)
}
