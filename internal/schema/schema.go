// Package schema performs structural validation of a merged document
// before marker resolution. Validation is intentionally shallow: markers
// are still embedded as strings at this point, so only the shape of the
// document is checked, never the eventual scalar types behind markers.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"github.com/zclconf/go-cty/cty"

	"github.com/cnnpruning/mayo/internal/yamldoc"
)

// documentSchema is the JSON schema for a model-description document.
const documentSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["model"],
	"properties": {
		"dataset": {
			"type": "object",
			"properties": {
				"task": {"type": "object"},
				"preprocess": {
					"type": "object",
					"properties": {
						"shape": {
							"type": "object",
							"properties": {
								"height": {"$ref": "#/definitions/dimension"},
								"width": {"$ref": "#/definitions/dimension"},
								"channels": {"$ref": "#/definitions/dimension"}
							}
						}
					}
				}
			}
		},
		"model": {
			"type": "object",
			"required": ["name", "layers", "graph"],
			"properties": {
				"name": {"type": "string"},
				"description": {"type": "string"},
				"layers": {
					"type": "object",
					"additionalProperties": {"$ref": "#/definitions/layer"}
				},
				"graph": {"$ref": "#/definitions/graph"}
			}
		}
	},
	"definitions": {
		"dimension": {
			"type": ["integer", "string"]
		},
		"layer": {
			"type": "object",
			"required": ["type"],
			"properties": {
				"type": {"type": "string"}
			},
			"if": {
				"required": ["type"],
				"properties": {"type": {"const": "module"}}
			},
			"then": {
				"required": ["layers", "graph"],
				"properties": {
					"kwargs": {"type": "object"},
					"layers": {
						"type": "object",
						"additionalProperties": {"$ref": "#/definitions/layer"}
					},
					"graph": {"$ref": "#/definitions/graph"}
				}
			}
		},
		"names": {
			"oneOf": [
				{"type": "string"},
				{"type": "array", "items": {"type": "string"}}
			]
		},
		"connection": {
			"type": "object",
			"required": ["from", "to"],
			"properties": {
				"from": {"$ref": "#/definitions/names"},
				"to": {"$ref": "#/definitions/names"},
				"with": {"$ref": "#/definitions/names"}
			}
		},
		"graph": {
			"oneOf": [
				{"$ref": "#/definitions/connection"},
				{"type": "array", "items": {"$ref": "#/definitions/connection"}}
			]
		}
	}
}`

// ValidationError aggregates every structural violation found in one
// document.
type ValidationError struct {
	Fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("document failed structural validation:")
	for _, f := range e.Fields {
		b.WriteString("\n  - ")
		b.WriteString(f)
	}
	return b.String()
}

// Validate checks a merged document tree against the structural schema.
func Validate(doc cty.Value) error {
	gv, err := yamldoc.ToGo(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document for validation: %w", err)
	}
	data, err := json.Marshal(gv)
	if err != nil {
		return fmt.Errorf("failed to encode document for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed to run: %w", err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{}
	for _, desc := range result.Errors() {
		verr.Fields = append(verr.Fields, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return verr
}
