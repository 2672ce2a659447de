package harness

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed scenario.cue
var schemaSource string

// SchemaSource returns the CUE schema scenario files are validated against.
func SchemaSource() string {
	return schemaSource
}

// ValidateSchema checks scenario YAML against the #Scenario definition.
//
// The document is decoded generically and encoded as a CUE value so the
// schema sees exactly what the file says, before typed decoding applies
// any zero values.
func ValidateSchema(filename string, data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("%s: empty scenario", filename)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("scenario.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}

	value := ctx.Encode(doc)
	if err := value.Err(); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{File: filename, Details: cueerrors.Details(err, nil)}
	}
	return nil
}

// SchemaError reports a scenario file that does not match the schema.
type SchemaError struct {
	File    string
	Details string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s does not match scenario schema:\n%s", e.File, e.Details)
}
