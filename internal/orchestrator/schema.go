package orchestrator

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/santhosh-tekuri/jsonschema/v2"

	"github.com/oss-vizier/core/pkg/model"
)

// parameterConfigSchemaJSON constrains one search-space parameter:
// DOUBLE/INTEGER parameters must carry bounds, CATEGORICAL/DISCRETE
// must carry a non-empty feasible value set.
const parameterConfigSchemaJSON = `{
	"type": "object",
	"required": ["name", "type"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"type": {"enum": ["DOUBLE", "INTEGER", "CATEGORICAL", "DISCRETE"]},
		"bounds": {
			"type": "object",
			"properties": {
				"min": {"type": "number"},
				"max": {"type": "number"}
			}
		},
		"feasible_values": {
			"type": "array",
			"items": {"type": "string"},
			"minItems": 1
		}
	},
	"anyOf": [
		{
			"properties": {"type": {"enum": ["DOUBLE", "INTEGER"]}},
			"required": ["bounds"]
		},
		{
			"properties": {"type": {"enum": ["CATEGORICAL", "DISCRETE"]}},
			"required": ["feasible_values"]
		}
	]
}`

var parameterConfigSchema = compileParameterConfigSchema()

func compileParameterConfigSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("parameter_config.json", strings.NewReader(parameterConfigSchemaJSON)); err != nil {
		panic(err)
	}
	s, err := c.Compile("parameter_config.json")
	if err != nil {
		panic(err)
	}
	return s
}

// validateStudySpec checks every search-space parameter against the
// fixed schema above before CreateStudy persists it. Failures are
// aggregated so a caller sees every malformed parameter in one error,
// not just the first encountered.
func validateStudySpec(spec model.StudySpec) error {
	var errs *multierror.Error
	for _, p := range spec.SearchSpace.Parameters {
		doc := map[string]interface{}{
			"name": p.Name,
			"type": p.Type.String(),
		}
		if p.Bounds != nil {
			doc["bounds"] = map[string]interface{}{"min": p.Bounds.Min, "max": p.Bounds.Max}
		}
		if len(p.FeasibleValues) > 0 {
			values := make([]interface{}, len(p.FeasibleValues))
			for i, v := range p.FeasibleValues {
				values[i] = v
			}
			doc["feasible_values"] = values
		}
		if err := parameterConfigSchema.ValidateInterface(doc); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("parameter %q: %w", p.Name, err))
		}
	}
	return errs.ErrorOrNil()
}
