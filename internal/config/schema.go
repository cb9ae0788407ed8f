package config

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates a JSON schema for SimulationConfig.
func GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t.String() {
			case "optional.Option[time.Time]":
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date",
				}
			case "decimal.Decimal":
				return &jsonschema.Schema{
					Type:    "string",
					Pattern: `^-?\d+(\.\d+)?$`,
				}
			case "time.Duration":
				return &jsonschema.Schema{
					Type:    "string",
					Pattern: `^(\d+(\.\d+)?(ns|us|µs|ms|s|m|h))+$`,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(&SimulationConfig{})

	schema.Title = "argo-replay-simulation-config"
	schema.Description = "Configuration schema for a historical replay run"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates the indented JSON schema document.
func GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
