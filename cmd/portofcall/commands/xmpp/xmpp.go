// Package xmpp implements the "xmpp" subcommand family (c2s/s2s with STARTTLS).
package xmpp

import (
	"github.com/spf13/cobra"

	"github.com/pocc/portofcall-sub006/cmd/portofcall/cmdutil"
)

// Cmd is the parent command for XMPP operations.
var Cmd = &cobra.Command{
	Use:   "xmpp",
	Short: "XMPP client session operations",
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Negotiate STARTTLS, authenticate, and optionally send one message",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		password, err := cmdutil.PromptIfEmpty(password, "Password")
		if err != nil {
			return err
		}
		message, _ := cmd.Flags().GetString("message")
		messageTo, _ := cmd.Flags().GetString("message-to")
		params := cmdutil.Merge(cmdutil.TargetParams(cmd), map[string]any{
			"username": username, "password": password, "message": message, "message_to": messageTo,
		})
		return cmdutil.RunOperation("xmpp", "session", params)
	},
}

func init() {
	cmdutil.AddTargetFlags(sessionCmd)
	sessionCmd.Flags().String("username", "", "XMPP username (localpart)")
	sessionCmd.Flags().String("password", "", "XMPP password (prompted if omitted)")
	sessionCmd.Flags().String("message", "", "optional chat message body to send after authenticating")
	sessionCmd.Flags().String("message-to", "", "full JID to send --message to")
	_ = sessionCmd.MarkFlagRequired("username")

	Cmd.AddCommand(sessionCmd)
}
