package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// optionSchemaCUE constrains the option schema document shape: every value is
// a scalar or a non-empty list of strings, and option names are snake_case
// identifiers so they remain usable as template fields.
const optionSchemaCUE = `
#OptionSchema: {
	[=~"^[a-z][a-z0-9_]*$"]: string | number | bool | [string, ...string]
}
`

var (
	cueOnce   sync.Once
	cueSchema cue.Value
	cueCtx    *cue.Context
)

func compiledSchema() (cue.Value, *cue.Context, error) {
	var compileErr error
	cueOnce.Do(func() {
		cueCtx = cuecontext.New()
		cueSchema = cueCtx.CompileString(optionSchemaCUE)
		if err := cueSchema.Err(); err != nil {
			compileErr = fmt.Errorf("failed to compile built-in option schema: %w", err)
		}
	})
	if compileErr != nil {
		return cue.Value{}, nil, compileErr
	}
	return cueSchema.LookupPath(cue.ParsePath("#OptionSchema")), cueCtx, nil
}

// validateShape checks a raw option schema document against the built-in CUE
// schema before the ordered decode runs.
func validateShape(data []byte) error {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("option schema is not valid JSON: %w", err)
	}

	constraint, ctx, err := compiledSchema()
	if err != nil {
		return err
	}

	val := ctx.Encode(doc)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to encode option schema: %w", err)
	}

	unified := constraint.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("option schema validation failed: %w", err)
	}

	return nil
}
