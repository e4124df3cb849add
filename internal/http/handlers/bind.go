package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindJSON binds and validates the request body. Validation is all-or-
// nothing: every failing field is reported at once, in declaration order,
// aggregated into the envelope message as "field: message" pairs.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		fields := parseBindError(err, out, "json")

		RespondBadRequest(ctx, "validation_error", aggregateMessage(fields))

		return false
	}

	return true
}

// BindQuery validates query parameters the same way. The transformed values
// live in out; the raw request is left untouched.
func BindQuery(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindQuery(out)

	if err != nil {
		fields := parseBindError(err, out, "form")

		RespondBadRequest(ctx, "validation_error", aggregateMessage(fields))

		return false
	}

	return true
}

// BindURI validates route parameters against their uri tags.
func BindURI(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindUri(out)

	if err != nil {
		fields := parseBindError(err, out, "uri")

		RespondBadRequest(ctx, "validation_error", aggregateMessage(fields))

		return false
	}

	return true
}

func aggregateMessage(fields []FieldError) string {
	if len(fields) == 0 {
		return "Invalid request"
	}

	parts := make([]string, 0, len(fields))

	for _, f := range fields {
		parts = append(parts, f.Field+": "+f.Message)
	}

	return strings.Join(parts, ", ")
}

func parseBindError(err error, out interface{}, tag string) []FieldError {
	rootType := baseStructType(out)

	// validator errors (struct bind tags)

	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			field := fieldPathFromValidatorError(rootType, fieldError, tag)
			rule := fieldError.Tag()
			param := fieldError.Param()

			fields = append(fields, FieldError{
				Field:   field,
				Rule:    rule,
				Param:   param,
				Message: validationMessage(rule, param),
			})
		}
		return fields
	}

	// in the event of bad json

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return []FieldError{{Field: "body", Rule: "json", Message: "must be valid JSON"}}
	}

	// in the event of a type mismatch

	var unmatchedTypeError *json.UnmarshalTypeError

	if errors.As(err, &unmatchedTypeError) {
		field := fieldPathFromDotPath(rootType, unmatchedTypeError.Field, tag)

		if field == "" {
			field = strings.TrimSpace(unmatchedTypeError.Field)
		}

		if field == "" {
			field = "body"
		}

		return []FieldError{{
			Field:   field,
			Rule:    "type",
			Message: fmt.Sprintf("must be of type %s", unmatchedTypeError.Type.String()),
		}}
	}

	// final fallback if the error could not be deciphered
	return []FieldError{{Field: "body", Rule: "invalid", Message: err.Error()}}
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

func fieldPathFromValidatorError(rootType reflect.Type, fieldError validator.FieldError, tag string) string {
	// Namespace format is usually "<StructName>.<Field>[.<NestedField>...]".
	namespace := fieldError.StructNamespace()
	if namespace == "" {
		namespace = fieldError.Namespace()
	}

	if namespace == "" {
		return fieldError.Field()
	}

	parts := strings.Split(namespace, ".")
	if len(parts) == 0 {
		return fieldError.Field()
	}

	if rootType != nil && rootType.Name() != "" && parts[0] == rootType.Name() {
		parts = parts[1:]
	}

	path := mapStructPathToTagPath(rootType, parts, tag)
	if path != "" {
		return path
	}

	return fieldError.Field()
}

func fieldPathFromDotPath(rootType reflect.Type, dotPath string, tag string) string {
	dotPath = strings.TrimSpace(dotPath)
	if dotPath == "" {
		return ""
	}

	return mapStructPathToTagPath(rootType, strings.Split(dotPath, "."), tag)
}

func mapStructPathToTagPath(rootType reflect.Type, parts []string, tag string) string {
	if len(parts) == 0 {
		return ""
	}

	current := rootType
	out := make([]string, 0, len(parts))

	for _, rawPart := range parts {
		if rawPart == "" {
			continue
		}

		fieldName, indexSuffix := splitFieldIndex(rawPart)
		tagName := fieldName

		nextType := reflect.Type(nil)
		if current != nil {
			for current.Kind() == reflect.Pointer {
				current = current.Elem()
			}

			if current.Kind() == reflect.Struct {
				if sf, ok := current.FieldByName(fieldName); ok {
					tagName = tagNameFromStructField(sf, tag)
					nextType = sf.Type
				}
			}
		}

		out = append(out, tagName+indexSuffix)

		if nextType != nil {
			current = unwindCollection(nextType)
		} else {
			current = nil
		}
	}

	return strings.Join(out, ".")
}

func splitFieldIndex(part string) (string, string) {
	idx := strings.Index(part, "[")
	if idx == -1 {
		return part, ""
	}

	return part[:idx], part[idx:]
}

func tagNameFromStructField(sf reflect.StructField, tag string) string {
	raw := sf.Tag.Get(tag)
	if raw == "" {
		return sf.Name
	}

	name, _, _ := strings.Cut(raw, ",")
	if name == "" || name == "-" {
		return sf.Name
	}

	return name
}

func unwindCollection(t reflect.Type) reflect.Type {
	for t != nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			t = t.Elem()
		default:
			return t
		}
	}

	return nil
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "gte":
		return "must be at least " + param
	case "lte":
		return "must be at most " + param
	case "len":
		return "must be exactly " + param
	case "nefield":
		return "must differ from " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
