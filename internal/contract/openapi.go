package contract

import (
	"fmt"
	"sort"
	"strings"
)

// EndpointSchema is the request-body shape extracted from an OpenAPI
// document for a single endpoint and method. Fields and Types are parallel
// arrays; Constraints holds per-field rule strings like "REQUIRED" or
// "MAX_LENGTH: 64".
type EndpointSchema struct {
	Fields      []string            `json:"fields"`
	Types       []string            `json:"types"`
	Constraints map[string][]string `json:"constraints"`
}

// Endpoint is one operation discovered while listing an OpenAPI document.
type Endpoint struct {
	Method      string              `json:"method"`
	Path        string              `json:"path"`
	Summary     string              `json:"summary"`
	Fields      []string            `json:"fields,omitempty"`
	Types       []string            `json:"types,omitempty"`
	Constraints map[string][]string `json:"constraints,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// ExtractEndpointSchema pulls the request-body schema for one endpoint out
// of a decoded OpenAPI document. Both Swagger 2.0 (parameters with
// in: body) and OpenAPI 3.0 (requestBody with application/json content)
// layouts are understood, and internal $ref pointers are resolved.
// Properties are emitted in name order.
func ExtractEndpointSchema(doc map[string]any, endpoint, method string) (*EndpointSchema, error) {
	method = strings.ToUpper(method)

	paths := asMap(doc["paths"])
	pathItem, ok := paths[endpoint]
	if !ok {
		return nil, fmt.Errorf("endpoint %q not found; available: %s", endpoint, strings.Join(sortedKeys(paths), ", "))
	}

	operations := asMap(pathItem)
	operation, ok := operations[strings.ToLower(method)]
	if !ok {
		var available []string
		for m := range operations {
			if m == "parameters" {
				continue
			}
			available = append(available, strings.ToUpper(m))
		}
		sort.Strings(available)
		return nil, fmt.Errorf("method %q not available for %q; available: %s", method, endpoint, strings.Join(available, ", "))
	}

	schema, bodyRequired, err := requestBodySchema(doc, asMap(operation))
	if err != nil {
		return nil, err
	}
	if len(schema) == 0 {
		return &EndpointSchema{Fields: []string{}, Types: []string{}, Constraints: map[string][]string{}}, nil
	}
	return extractFields(schema, bodyRequired), nil
}

// ListEndpoints enumerates the operations in a decoded OpenAPI document,
// optionally filtered to one HTTP method and optionally carrying the
// extracted request-body fields. Output is ordered by path then method.
func ListEndpoints(doc map[string]any, withFields bool, method string) []Endpoint {
	method = strings.ToUpper(method)
	paths := asMap(doc["paths"])

	var results []Endpoint
	for _, path := range sortedKeys(paths) {
		if !strings.HasPrefix(path, "/") {
			continue
		}
		operations := asMap(paths[path])
		for _, opMethod := range sortedKeys(operations) {
			switch strings.ToLower(opMethod) {
			case "parameters", "$ref", "summary", "description":
				continue
			}
			upper := strings.ToUpper(opMethod)
			if method != "" && upper != method {
				continue
			}

			info := Endpoint{
				Method:  upper,
				Path:    path,
				Summary: asString(asMap(operations[opMethod])["summary"]),
			}
			if withFields {
				schema, err := ExtractEndpointSchema(doc, path, upper)
				if err != nil {
					info.Error = "failed to extract schema"
				} else {
					info.Fields = schema.Fields
					info.Types = schema.Types
					info.Constraints = schema.Constraints
				}
			}
			results = append(results, info)
		}
	}
	return results
}

// requestBodySchema locates the body schema of an operation, trying the
// Swagger 2.0 body parameter first and the OpenAPI 3.0 requestBody second.
// It returns a nil schema when the operation takes no body.
func requestBodySchema(doc, operation map[string]any) (map[string]any, bool, error) {
	if params, ok := operation["parameters"].([]any); ok {
		for _, p := range params {
			param := asMap(p)
			if asString(param["in"]) != "body" {
				continue
			}
			required, _ := param["required"].(bool)
			return resolveSchema(doc, asMap(param["schema"]), required)
		}
	}

	requestBody := asMap(operation["requestBody"])
	if len(requestBody) == 0 {
		return nil, false, nil
	}
	content := asMap(requestBody["content"])
	jsonContent := asMap(content["application/json"])
	if len(jsonContent) == 0 {
		jsonContent = asMap(content["application/x-www-form-urlencoded"])
	}
	if len(jsonContent) == 0 {
		return nil, false, nil
	}
	required, _ := requestBody["required"].(bool)
	return resolveSchema(doc, asMap(jsonContent["schema"]), required)
}

func resolveSchema(doc, schema map[string]any, required bool) (map[string]any, bool, error) {
	if ref := asString(schema["$ref"]); ref != "" {
		resolved, err := resolveRef(doc, ref)
		if err != nil {
			return nil, false, err
		}
		return resolved, required, nil
	}
	return schema, required, nil
}

// resolveRef walks an internal reference like #/components/schemas/User.
func resolveRef(doc map[string]any, ref string) (map[string]any, error) {
	if !strings.HasPrefix(ref, "#/") {
		return nil, fmt.Errorf("only internal references are supported: %s", ref)
	}
	current := doc
	for _, part := range strings.Split(ref[2:], "/") {
		next, ok := current[part]
		if !ok {
			return nil, fmt.Errorf("reference %s not found", ref)
		}
		current = asMap(next)
	}
	return current, nil
}

func extractFields(schema map[string]any, bodyRequired bool) *EndpointSchema {
	out := &EndpointSchema{
		Fields:      []string{},
		Types:       []string{},
		Constraints: map[string][]string{},
	}

	required := map[string]bool{}
	if reqList, ok := schema["required"].([]any); ok {
		for _, r := range reqList {
			required[asString(r)] = true
		}
	}

	properties := asMap(schema["properties"])
	for _, name := range sortedKeys(properties) {
		fieldSchema := asMap(properties[name])
		fieldType := asString(fieldSchema["type"])
		if fieldType == "" {
			fieldType = "string"
		}

		out.Fields = append(out.Fields, name)
		out.Types = append(out.Types, mapJSONType(fieldType, asString(fieldSchema["format"])))

		var rules []string
		if required[name] || bodyRequired {
			rules = append(rules, "REQUIRED")
		}
		if enum, ok := fieldSchema["enum"].([]any); ok {
			values := make([]string, len(enum))
			for i, v := range enum {
				values[i] = fmt.Sprintf("%v", v)
			}
			rules = append(rules, "ENUM: "+strings.Join(values, ", "))
		}
		if fieldType == "string" {
			if v, ok := fieldSchema["minLength"]; ok {
				rules = append(rules, fmt.Sprintf("MIN_LENGTH: %v", v))
			}
			if v, ok := fieldSchema["maxLength"]; ok {
				rules = append(rules, fmt.Sprintf("MAX_LENGTH: %v", v))
			}
			if v, ok := fieldSchema["pattern"]; ok {
				rules = append(rules, fmt.Sprintf("PATTERN: %v", v))
			}
		}
		if fieldType == "integer" || fieldType == "number" {
			if v, ok := fieldSchema["minimum"]; ok {
				rules = append(rules, fmt.Sprintf("MIN: %v", v))
			}
			if v, ok := fieldSchema["maximum"]; ok {
				rules = append(rules, fmt.Sprintf("MAX: %v", v))
			}
		}
		if len(rules) > 0 {
			out.Constraints[name] = rules
		}
	}
	return out
}

// mapJSONType maps a JSON schema type and format to the destination type
// vocabulary. Format wins over type when both carry information.
func mapJSONType(jsonType, format string) string {
	switch format {
	case "date-time":
		return "datetime"
	case "date":
		return "date"
	case "time":
		return "time"
	case "email":
		return "email"
	case "uri":
		return "url"
	case "uuid":
		return "uuid"
	case "int32":
		return "integer"
	case "int64":
		return "bigint"
	case "float":
		return "float"
	case "double":
		return "double"
	}

	switch jsonType {
	case "string":
		return "text"
	case "integer":
		return "integer"
	case "number":
		return "float"
	case "boolean":
		return "boolean"
	case "array":
		return "array"
	case "object":
		return "json"
	case "null":
		return "null"
	}
	return "text"
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
