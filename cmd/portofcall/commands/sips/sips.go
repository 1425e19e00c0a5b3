// Package sips implements the "sips" subcommand family (SIP over TLS with digest auth).
package sips

import (
	"github.com/spf13/cobra"

	"github.com/pocc/portofcall-sub006/cmd/portofcall/cmdutil"
)

// Cmd is the parent command for SIPS operations.
var Cmd = &cobra.Command{
	Use:   "sips",
	Short: "SIP-over-TLS operations",
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "REGISTER an address-of-record, resolving a digest challenge if offered",
	RunE: func(cmd *cobra.Command, args []string) error {
		uri, _ := cmd.Flags().GetString("uri")
		aor, _ := cmd.Flags().GetString("aor")
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		password, err := cmdutil.PromptIfEmpty(password, "Password")
		if err != nil {
			return err
		}
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{
			"uri": uri, "aor": aor, "username": username, "password": password,
		})
		return cmdutil.RunOperation("sips", "register", params)
	},
}

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Send an INVITE and report the response",
	RunE: func(cmd *cobra.Command, args []string) error {
		uri, _ := cmd.Flags().GetString("uri")
		aor, _ := cmd.Flags().GetString("aor")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{"uri": uri, "aor": aor})
		return cmdutil.RunOperation("sips", "invite", params)
	},
}

func init() {
	cmdutil.AddTargetFlags(registerCmd)
	registerCmd.Flags().String("uri", "", "request URI (sip:host)")
	registerCmd.Flags().String("aor", "", "address-of-record to register")
	registerCmd.Flags().String("username", "", "digest auth username")
	registerCmd.Flags().String("password", "", "digest auth password (prompted if omitted)")
	_ = registerCmd.MarkFlagRequired("uri")
	_ = registerCmd.MarkFlagRequired("aor")
	_ = registerCmd.MarkFlagRequired("username")

	cmdutil.AddTargetFlags(inviteCmd)
	inviteCmd.Flags().String("uri", "", "request URI (sip:host)")
	inviteCmd.Flags().String("aor", "", "address-of-record to invite")
	_ = inviteCmd.MarkFlagRequired("uri")
	_ = inviteCmd.MarkFlagRequired("aor")

	Cmd.AddCommand(registerCmd, inviteCmd)
}
