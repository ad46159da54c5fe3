// Package schema provides offline CloudFormation schema validation.
//
// A synthesized template is re-read with the cloudformation-schema-go template
// parser and every resource of a type the exporter emits is checked against
// its required properties and property types.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	cfntemplate "github.com/lex00/cloudformation-schema-go/template"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/internal/template"
)

// Options configures schema validation.
type Options struct {
	// Strict reports properties the schema does not know as warnings
	Strict bool
}

// Error is a schema violation in one resource.
type Error struct {
	Resource string `json:"resource"`
	Property string `json:"property,omitempty"`
	Message  string `json:"message"`
}

func (e Error) String() string {
	if e.Property == "" {
		return fmt.Sprintf("%s: %s", e.Resource, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", e.Resource, e.Property, e.Message)
}

// Result contains schema validation results.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Error `json:"errors,omitempty"`
	Warnings []Error `json:"warnings,omitempty"`
}

// ValidateTemplate validates a synthesized template.
func ValidateTemplate(tmpl *exporter.Template, opts Options) (*Result, error) {
	data, err := template.ToJSON(tmpl)
	if err != nil {
		return nil, fmt.Errorf("serializing template: %w", err)
	}
	return ValidateContent(data, "template.json", opts)
}

// ValidateContent parses a JSON or YAML template and validates it.
func ValidateContent(content []byte, sourceName string, opts Options) (*Result, error) {
	parsed, err := cfntemplate.ParseTemplateContent(content, sourceName)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", sourceName, err)
	}

	result := &Result{Valid: true}

	names := make([]string, 0, len(parsed.Resources))
	for name := range parsed.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		errs, warnings := validateResource(name, parsed.Resources[name], opts)
		result.Errors = append(result.Errors, errs...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

func validateResource(name string, resource *cfntemplate.Resource, opts Options) ([]Error, []Error) {
	var errs, warnings []Error

	if !isValidResourceType(resource.ResourceType) {
		errs = append(errs, Error{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("invalid resource type format: %s", resource.ResourceType),
		})
		return errs, warnings
	}

	schema, ok := resourceSchemas[resource.ResourceType]
	if !ok {
		warnings = append(warnings, Error{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("unknown resource type: %s (schema not available for validation)", resource.ResourceType),
		})
		return errs, warnings
	}

	for _, required := range schema.Required {
		if _, exists := resource.Properties[required]; !exists {
			errs = append(errs, Error{
				Resource: name,
				Property: required,
				Message:  fmt.Sprintf("missing required property: %s", required),
			})
		}
	}

	props := make([]string, 0, len(resource.Properties))
	for propName := range resource.Properties {
		props = append(props, propName)
	}
	sort.Strings(props)

	for _, propName := range props {
		propSchema, ok := schema.Properties[propName]
		if !ok {
			if opts.Strict {
				warnings = append(warnings, Error{
					Resource: name,
					Property: propName,
					Message:  fmt.Sprintf("unknown property: %s", propName),
				})
			}
			continue
		}
		errs = append(errs, validateProperty(name, propName, resource.Properties[propName].Value, propSchema)...)
	}

	return errs, warnings
}

// isValidResourceType checks that a resource type has the AWS::Service::Resource
// or Custom::* form.
func isValidResourceType(resourceType string) bool {
	if strings.HasPrefix(resourceType, "Custom::") {
		return true
	}
	parts := strings.Split(resourceType, "::")
	if len(parts) != 3 {
		return false
	}
	return parts[0] == "AWS" || parts[0] == "Alexa"
}

func validateProperty(resource, property string, value any, schema PropertySchema) []Error {
	var errs []Error

	if !isValidType(value, schema.Type) {
		errs = append(errs, Error{
			Resource: resource,
			Property: property,
			Message:  fmt.Sprintf("expected type %s", schema.Type),
		})
		return errs
	}

	if len(schema.AllowedValues) > 0 {
		if strVal, ok := value.(string); ok && !contains(schema.AllowedValues, strVal) {
			errs = append(errs, Error{
				Resource: resource,
				Property: property,
				Message:  fmt.Sprintf("value %q not in allowed values: %v", strVal, schema.AllowedValues),
			})
		}
	}

	return errs
}

// isValidType checks if a value matches the expected type. Intrinsic
// functions resolve at deploy time and match any type.
func isValidType(value any, expectedType string) bool {
	if isIntrinsic(value) {
		return true
	}

	switch expectedType {
	case "String":
		_, ok := value.(string)
		return ok
	case "Integer":
		switch v := value.(type) {
		case int, int32, int64, uint64:
			return true
		case float64:
			return v == float64(int64(v))
		case json.Number:
			_, err := v.Int64()
			return err == nil
		}
		return false
	case "Boolean":
		_, ok := value.(bool)
		return ok
	case "List":
		_, ok := value.([]any)
		return ok
	case "Map":
		_, ok := value.(map[string]any)
		return ok
	case "Json":
		return true
	default:
		return true
	}
}

func isIntrinsic(value any) bool {
	switch v := value.(type) {
	case *cfntemplate.Intrinsic:
		return true
	case map[string]any:
		if len(v) != 1 {
			return false
		}
		for key := range v {
			return strings.HasPrefix(key, "Fn::") || key == "Ref"
		}
	}
	return false
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
