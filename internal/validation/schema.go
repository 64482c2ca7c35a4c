package validation

import (
	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed result.schema.json
var resultSchemaJSON string

const resultSchemaURL = "result.schema.json"

// resultSchema describes the body of a 2xx response from the validation API.
var resultSchema = jsonschema.MustCompileString(resultSchemaURL, resultSchemaJSON)
