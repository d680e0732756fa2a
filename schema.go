package failover

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const configSchemaURL = "failover-config.schema.json"

// configSchema describes the configuration document accepted by
// [LoadConfig]. Durations stay strings here; they are parsed by
// [BuildOptions].
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["strategies"],
  "additionalProperties": false,
  "properties": {
    "strategies": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["candidates"],
        "additionalProperties": false,
        "properties": {
          "candidates": {
            "type": "array",
            "minItems": 1,
            "items": {"type": "string", "minLength": 1}
          },
          "attempt_timeout": {"type": "string"},
          "stop_on_permanent": {"type": "boolean"},
          "circuit_breaker": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
              "failure_threshold": {"type": "integer", "minimum": 1},
              "recovery_timeout": {"type": "string"},
              "half_open_max_attempts": {"type": "integer", "minimum": 1}
            }
          },
          "rate_limit": {
            "type": "object",
            "required": ["rate"],
            "additionalProperties": false,
            "properties": {
              "rate": {"type": "number", "exclusiveMinimum": 0},
              "burst": {"type": "integer", "minimum": 0},
              "blocking": {"type": "boolean"}
            }
          }
        }
      }
    },
    "caches": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "ttl": {"type": "string"},
          "max_size": {"type": "integer", "minimum": 1},
          "options": {"type": "object"}
        }
      }
    }
  }
}`

//nolint:gochecknoglobals // compiled once, read-only afterwards
var compiledConfigSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(configSchemaURL, strings.NewReader(configSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}

	return compiler.Compile(configSchemaURL) //nolint:wrapcheck // wrapped by caller
})

// validateConfigDocument checks a decoded JSON document against the config
// schema and flattens schema violations into one error per location.
func validateConfigDocument(doc any) error {
	schema, err := compiledConfigSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err //nolint:wrapcheck // wrapped by caller
	}

	var errs []error
	collectSchemaErrors(ve, &errs)

	return errors.Join(errs...)
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]error) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}

		*errs = append(*errs, fmt.Errorf("%s: %s", loc, ve.Message))

		return
	}

	for _, cause := range ve.Causes {
		collectSchemaErrors(cause, errs)
	}
}
