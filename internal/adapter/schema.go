package adapter

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/pocc/portofcall-sub006/internal/result"
)

// reflector mirrors the teacher's config schema command: no additional
// properties (a typo'd param name should be a schema violation, not
// silently ignored by a downstream caller), and inline definitions
// rather than a $defs/$ref graph, since every params struct here is
// flat and one level deep.
var reflector = &jsonschema.Reflector{
	AllowAdditionalProperties: false,
	DoNotReference:            true,
}

// Schema generates the JSON Schema document describing target's
// parameter shape, for a collaborator handler to expose alongside the
// operation (e.g. for client-side form generation or request
// validation before this repo is ever reached).
func Schema(target any) (json.RawMessage, error) {
	schema := reflector.Reflect(target)
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, result.InvalidArgument("generate schema: %v", err)
	}
	return out, nil
}
