package commands

import "testing"

func TestEveryProtocolHasACommand(t *testing.T) {
	want := []string{
		"mount", "nfs3", "sftp", "tds", "clickhouse",
		"xmpp", "sips", "sane", "zookeeper", "multistream", "ipfs",
	}

	root := GetRootCmd()
	have := make(map[string]bool)
	for _, c := range root.Commands() {
		have[c.Name()] = true
	}

	for _, name := range want {
		if !have[name] {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}

func TestListCommandIsRegistered(t *testing.T) {
	root := GetRootCmd()
	cmd, _, err := root.Find([]string{"list"})
	if err != nil {
		t.Fatalf("Find(list) returned error: %v", err)
	}
	if cmd.Use != "list" {
		t.Errorf("Find(list) resolved to %q", cmd.Use)
	}
}

// TestEveryLeafCommandHasTargetFlags walks every protocol family's
// subcommands and asserts each one carries the host/port/timeout-ms
// flags that cmdutil.TargetParams reads.
func TestEveryLeafCommandHasTargetFlags(t *testing.T) {
	protocols := []string{"mount", "nfs3", "sftp", "tds", "clickhouse", "xmpp", "sips", "sane", "zookeeper", "multistream", "ipfs"}
	root := GetRootCmd()

	for _, protocol := range protocols {
		parent, _, err := root.Find([]string{protocol})
		if err != nil {
			t.Fatalf("Find(%s) returned error: %v", protocol, err)
		}
		leaves := parent.Commands()
		if len(leaves) == 0 {
			t.Errorf("%s has no subcommands", protocol)
			continue
		}
		for _, leaf := range leaves {
			for _, flagName := range []string{"host", "port", "timeout-ms"} {
				if leaf.Flags().Lookup(flagName) == nil {
					t.Errorf("%s %s is missing --%s", protocol, leaf.Name(), flagName)
				}
			}
		}
	}
}
