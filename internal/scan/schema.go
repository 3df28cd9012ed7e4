package scan

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/greentic-ai/cards2flow/internal/diag"
)

// cardSchema is the structural contract a recognized card is checked
// against. It is deliberately open: the card body's field semantics are not
// our business, only the shape the downstream component relies on. Schema
// violations are permanent warnings, never fatal.
const cardSchema = `
#Action: {
	type?:  string
	title?: string
	data?:  {...}
	...
}

#Card: {
	type?:    "AdaptiveCard"
	version?: string
	body?:    [...]
	actions?: [...#Action]
	...
}

#Card
`

type schemaValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

var loadValidator = sync.OnceValue(func() *schemaValidator {
	ctx := cuecontext.New()
	return &schemaValidator{
		ctx:    ctx,
		schema: ctx.CompileString(cardSchema, cue.Filename("card-schema.cue")),
	}
})

// validateCard unifies a recognized card document with the embedded schema
// and converts each violation into a validation warning.
func validateCard(rel string, raw []byte) []diag.Diagnostic {
	v := loadValidator()
	if err := v.schema.Err(); err != nil {
		return []diag.Diagnostic{diag.New(diag.Validation, rel,
			fmt.Sprintf("card schema failed to compile: %v", err))}
	}

	expr, err := cuejson.Extract(rel, raw)
	if err != nil {
		// The document already parsed with encoding/json; a CUE extract
		// failure is a validator limitation, not a card problem.
		return []diag.Diagnostic{diag.New(diag.Validation, rel,
			fmt.Sprintf("schema check skipped: %v", err))}
	}

	unified := v.schema.Unify(v.ctx.BuildExpr(expr))
	if err := unified.Validate(); err != nil {
		var diags []diag.Diagnostic
		for _, e := range cueerrors.Errors(err) {
			diags = append(diags, diag.New(diag.Validation, rel, e.Error()))
		}
		return diags
	}
	return nil
}
