package middleware

import (
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	contextutils "prepx/internal/utils"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v2"
)

//go:embed schemas/api.yaml
var schemaFS embed.FS

const schemaDocumentPath = "schemas/api.yaml"

// Schemas applied when a route has no entry of its own
const (
	SuccessEnvelopeSchema = "SuccessEnvelope"
	ErrorEnvelopeSchema   = "ErrorEnvelope"
)

// SchemaLoader holds the compiled response schemas and the route to schema table
type SchemaLoader struct {
	schemas map[string]*gojsonschema.Schema
	routes  map[string]string
}

// NewSchemaLoader creates an empty schema loader
func NewSchemaLoader() *SchemaLoader {
	return &SchemaLoader{
		schemas: make(map[string]*gojsonschema.Schema),
		routes:  make(map[string]string),
	}
}

// LoadEmbeddedSchemas compiles the schema document built into the binary
func LoadEmbeddedSchemas() (*SchemaLoader, error) {
	data, err := schemaFS.ReadFile(schemaDocumentPath)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to read embedded schema document")
	}
	sl := NewSchemaLoader()
	if err := sl.LoadSchemas(data); err != nil {
		return nil, err
	}
	return sl, nil
}

// LoadSchemas parses a YAML document with components/schemas and a routes table.
// A schema that fails to compile or a route naming an unknown schema is an error.
func (sl *SchemaLoader) LoadSchemas(data []byte) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return contextutils.WrapError(err, "failed to parse schema document as YAML")
	}

	components, ok := doc["components"].(map[interface{}]interface{})
	if !ok {
		return contextutils.ErrorWithContextf("no components section found in schema document")
	}
	schemas, ok := components["schemas"].(map[interface{}]interface{})
	if !ok {
		return contextutils.ErrorWithContextf("no schemas section found in components")
	}

	jsonCompatibleSchemas := make(map[string]interface{}, len(schemas))
	for schemaName, schemaData := range schemas {
		name, ok := schemaName.(string)
		if !ok {
			return contextutils.ErrorWithContextf("schema name is not a string: %v", schemaName)
		}
		converted, err := convertToJSONCompatible(schemaData)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to convert schema %s", name)
		}
		jsonCompatibleSchemas[name] = converted
	}

	for name := range jsonCompatibleSchemas {
		// Each schema is compiled inside the full document so $refs resolve
		completeSchemaDoc := map[string]interface{}{
			"$schema": "http://json-schema.org/draft-07/schema#",
			"components": map[string]interface{}{
				"schemas": jsonCompatibleSchemas,
			},
			"$ref": "#/components/schemas/" + name,
		}
		schemaBytes, err := json.Marshal(completeSchemaDoc)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to marshal schema %s", name)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaBytes))
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to compile schema %s", name)
		}
		sl.schemas[name] = schema
	}

	if routes, ok := doc["routes"].(map[interface{}]interface{}); ok {
		for route, schemaName := range routes {
			routeStr, ok1 := route.(string)
			nameStr, ok2 := schemaName.(string)
			if !ok1 || !ok2 {
				return contextutils.ErrorWithContextf("invalid route entry %v: %v", route, schemaName)
			}
			if _, exists := sl.schemas[nameStr]; !exists {
				return contextutils.ErrorWithContextf("route %s references unknown schema %s", routeStr, nameStr)
			}
			sl.routes[normalizeRoute(routeStr)] = nameStr
		}
	}

	return nil
}

func normalizeRoute(route string) string {
	fields := strings.Fields(route)
	if len(fields) != 2 {
		return route
	}
	return strings.ToUpper(fields[0]) + " " + fields[1]
}

// HasSchema reports whether name was loaded
func (sl *SchemaLoader) HasSchema(name string) bool {
	_, ok := sl.schemas[name]
	return ok
}

// SchemaForResponse picks the schema a response must satisfy. route is the gin full path
// (for example /api/users/:user), so parameters need no pattern matching.
func (sl *SchemaLoader) SchemaForResponse(method, route string, status int) string {
	if status >= http.StatusBadRequest {
		return ErrorEnvelopeSchema
	}
	if name, ok := sl.routes[method+" "+route]; ok {
		return name
	}
	return SuccessEnvelopeSchema
}

// convertToJSONCompatible converts yaml.v2 maps to map[string]interface{} and rewrites
// OpenAPI style nullable into a JSON schema union with null.
func convertToJSONCompatible(data interface{}) (interface{}, error) {
	switch v := data.(type) {
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(v))
		hasNullable := false

		for k, val := range v {
			keyStr, ok := k.(string)
			if !ok {
				return nil, contextutils.ErrorWithContextf("key is not a string: %v", k)
			}

			if keyStr == "nullable" {
				if nullable, ok := val.(bool); ok && nullable {
					hasNullable = true
				}
				continue
			}

			convertedVal, err := convertToJSONCompatible(val)
			if err != nil {
				return nil, err
			}
			result[keyStr] = convertedVal
		}

		if hasNullable {
			if ref, hasRef := result["$ref"].(string); hasRef {
				result["oneOf"] = []interface{}{
					map[string]interface{}{"$ref": ref},
					map[string]interface{}{"type": "null"},
				}
				delete(result, "$ref")
			} else if typeVal, hasType := result["type"].(string); hasType {
				result["type"] = []interface{}{typeVal, "null"}
			}
		}

		return result, nil
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			convertedVal, err := convertToJSONCompatible(val)
			if err != nil {
				return nil, err
			}
			result[i] = convertedVal
		}
		return result, nil
	default:
		return data, nil
	}
}

// ValidateJSON validates a raw JSON document against a loaded schema
func (sl *SchemaLoader) ValidateJSON(body []byte, schemaName string) error {
	schema, exists := sl.schemas[schemaName]
	if !exists {
		return contextutils.ErrorWithContextf("schema %s not found", schemaName)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return contextutils.WrapError(err, "validation error")
	}

	if !result.Valid() {
		var validationErrors []string
		for _, validationErr := range result.Errors() {
			validationErrors = append(validationErrors, fmt.Sprintf("%s: %s", validationErr.Field(), validationErr.Description()))
		}
		return contextutils.ErrorWithContextf("schema validation failed: %s", strings.Join(validationErrors, "; "))
	}

	return nil
}

// ValidateData marshals data and validates it against a loaded schema
func (sl *SchemaLoader) ValidateData(data interface{}, schemaName string) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return contextutils.WrapError(err, "failed to marshal data")
	}
	return sl.ValidateJSON(jsonData, schemaName)
}
