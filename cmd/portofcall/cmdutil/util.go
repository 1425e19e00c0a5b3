// Package cmdutil provides shared flag wiring and output rendering for
// portofcall's per-protocol subcommands.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pocc/portofcall-sub006/internal/adapter"
	"github.com/pocc/portofcall-sub006/internal/cli/output"
	"github.com/pocc/portofcall-sub006/internal/cli/prompt"
	"github.com/pocc/portofcall-sub006/internal/metrics"
	"github.com/pocc/portofcall-sub006/internal/result"
	"github.com/pocc/portofcall-sub006/internal/telemetry"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the values of the root command's persistent flags.
type GlobalFlags struct {
	Output  string
	NoColor bool
	Verbose bool
}

// Registry is the single Handler Adapter dispatch table every
// subcommand runs its operation through.
var Registry = adapter.NewRegistry()

// AddTargetFlags adds the --host/--port/--timeout-ms flags every
// operation needs, mirroring adapter.CommonParams.
func AddTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("host", "", "target host")
	cmd.Flags().Uint16("port", 0, "target port")
	cmd.Flags().Uint32("timeout-ms", 5000, "operation timeout in milliseconds")
	_ = cmd.MarkFlagRequired("host")
	_ = cmd.MarkFlagRequired("port")
}

// TargetParams reads the common target flags into a param map keyed
// the way adapter.CommonParams expects.
func TargetParams(cmd *cobra.Command) map[string]any {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetUint16("port")
	timeoutMS, _ := cmd.Flags().GetUint32("timeout-ms")
	return map[string]any{"host": host, "port": port, "timeout_ms": timeoutMS}
}

// Merge folds extra param maps on top of a base map, later maps
// winning on key collision.
func Merge(base map[string]any, extra ...map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, m := range extra {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// PromptIfEmpty returns value unchanged if non-empty, otherwise prompts
// for masked input under label. Used for passwords not worth putting
// on a command line.
func PromptIfEmpty(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	return prompt.Password(label)
}

// RunOperation dispatches protocol.operation through the shared
// Registry and renders the resulting envelope. It returns an error
// (causing cobra to exit non-zero) when the envelope reports failure.
func RunOperation(protocol, operation string, params map[string]any) error {
	ctx, end := telemetry.StartOperation(context.Background(), protocol, operation)
	env := Registry.Dispatch(ctx, protocol, operation, params)

	var opErr error
	errorKind := ""
	if env.Error != nil {
		errorKind = string(env.Error.Kind)
		opErr = env.Error
	}
	metrics.Observe(protocol, operation, float64(env.LatencyMS)/1000, errorKind)
	end(opErr)

	if err := PrintEnvelope(os.Stdout, env); err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("%s.%s failed: %s", protocol, operation, env.Error.Error())
	}
	return nil
}

// GetOutputFormatParsed returns the parsed --output flag value.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// PrintEnvelope renders a Result Envelope in the configured output
// format: JSON/YAML dump the whole envelope, table format prints a
// summary followed by the payload as indented JSON (payload shapes
// vary too widely across eleven protocols for one fixed table).
func PrintEnvelope(w io.Writer, env result.Envelope) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, env)
	case output.FormatYAML:
		return output.PrintYAML(w, env)
	default:
		status := "ok"
		if !env.Success {
			status = "failed"
		}
		pairs := [][2]string{
			{"protocol", env.Protocol},
			{"operation", env.Operation},
			{"status", status},
			{"latency_ms", fmt.Sprintf("%d", env.LatencyMS)},
		}
		if env.Error != nil {
			pairs = append(pairs, [2]string{"error_kind", string(env.Error.Kind)}, [2]string{"error", env.Error.Message})
		}
		if err := output.SimpleTable(w, pairs); err != nil {
			return err
		}
		if env.Payload != nil {
			return output.PrintJSON(w, env.Payload)
		}
		return nil
	}
}
