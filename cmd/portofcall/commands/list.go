package commands

import (
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pocc/portofcall-sub006/cmd/portofcall/cmdutil"
	"github.com/pocc/portofcall-sub006/internal/cli/output"
)

// operationList renders the registry's dispatch table for table/JSON/YAML output.
type operationList []string

func (operationList) Headers() []string { return []string{"PROTOCOL", "OPERATION"} }

func (ol operationList) Rows() [][]string {
	rows := make([][]string, 0, len(ol))
	for _, key := range ol {
		for i := 0; i < len(key); i++ {
			if key[i] == '.' {
				rows = append(rows, []string{key[:i], key[i+1:]})
				break
			}
		}
	}
	return rows
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every protocol.operation this CLI can dispatch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ops := cmdutil.Registry.List()
		keys := make([]string, 0, len(ops))
		for _, op := range ops {
			keys = append(keys, op.Protocol+"."+op.Name)
		}
		sort.Strings(keys)

		format, err := cmdutil.GetOutputFormatParsed()
		if err != nil {
			return err
		}
		switch format {
		case output.FormatJSON:
			return output.PrintJSON(os.Stdout, keys)
		case output.FormatYAML:
			return output.PrintYAML(os.Stdout, keys)
		default:
			return output.PrintTable(os.Stdout, operationList(keys))
		}
	},
}
