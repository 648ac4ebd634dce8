package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	benchmarkpkg "github.com/llmbench/llmbench/internal/benchmark"
)

const (
	locBody  = "body"
	locQuery = "query"
)

// ValidationError is one entry of a 422 response. Loc is the path to the
// offending value, starting with "body" or "query".
type ValidationError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationErrorResponse is returned with 422 Unprocessable Entity
type ValidationErrorResponse struct {
	Detail []ValidationError `json:"detail"`
}

// parseBenchmarkQuery reads the optional query parameters, applying defaults
// for absent ones. Every malformed or out-of-range value is reported.
func parseBenchmarkQuery(c *gin.Context) (BenchmarkQuery, []ValidationError) {
	q := BenchmarkQuery{
		Timeout:      benchmarkpkg.DefaultTimeout.Seconds(),
		MaxRetries:   benchmarkpkg.DefaultMaxRetries,
		RetryDelay:   benchmarkpkg.DefaultRetryDelay.Seconds(),
		RequestDelay: benchmarkpkg.DefaultRequestDelay.Seconds(),
	}

	var details []ValidationError
	fail := func(name, msg, typ string) {
		details = append(details, ValidationError{Loc: []string{locQuery, name}, Msg: msg, Type: typ})
	}

	floatParam := func(name string, dst *float64) {
		raw, ok := c.GetQuery(name)
		if !ok {
			return
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			fail(name, "value is not a valid float", "type_error.float")
			return
		}
		*dst = v
	}
	intParam := func(name string, dst *int) {
		raw, ok := c.GetQuery(name)
		if !ok {
			return
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			fail(name, "value is not a valid integer", "type_error.integer")
			return
		}
		*dst = v
	}
	boolParam := func(name string, dst *bool) {
		raw, ok := c.GetQuery(name)
		if !ok {
			return
		}
		v, ok := parseBool(raw)
		if !ok {
			fail(name, "value could not be parsed to a boolean", "type_error.bool")
			return
		}
		*dst = v
	}

	floatParam("timeout", &q.Timeout)
	intParam("max_retries", &q.MaxRetries)
	floatParam("retry_delay", &q.RetryDelay)
	floatParam("request_delay", &q.RequestDelay)
	boolParam("debug", &q.Debug)
	boolParam("randomize_prompt", &q.RandomizePrompt)

	if len(details) > 0 {
		return q, details
	}
	if err := binding.Validator.ValidateStruct(&q); err != nil {
		details = append(details, validationDetails(locQuery, err)...)
	}
	return q, details
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, true
	case "0", "false", "f", "no", "n", "off":
		return false, true
	}
	return false, false
}

// bodyValidationDetails converts a JSON binding failure into 422 entries
func bodyValidationDetails(err error) []ValidationError {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.Is(err, io.EOF):
		return []ValidationError{{Loc: []string{locBody}, Msg: "field required", Type: "value_error.missing"}}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return []ValidationError{{Loc: []string{locBody}, Msg: "invalid JSON: " + err.Error(), Type: "value_error.jsondecode"}}
	case errors.As(err, &typeErr):
		loc := []string{locBody}
		if typeErr.Field != "" {
			loc = append(loc, strings.Split(typeErr.Field, ".")...)
		}
		return []ValidationError{{Loc: loc, Msg: typeMismatchMessage(typeErr.Type.Kind().String()), Type: "type_error"}}
	}

	if details := validationDetails(locBody, err); len(details) > 0 {
		return details
	}
	return []ValidationError{{Loc: []string{locBody}, Msg: err.Error(), Type: "value_error"}}
}

func typeMismatchMessage(kind string) string {
	switch kind {
	case "int", "int64":
		return "value is not a valid integer"
	case "float64":
		return "value is not a valid float"
	case "string":
		return "str type expected"
	case "bool":
		return "value could not be parsed to a boolean"
	}
	return fmt.Sprintf("value is not a valid %s", kind)
}

// validationDetails maps validator errors to 422 entries, reporting fields by
// their wire names rather than Go struct names.
func validationDetails(loc string, err error) []ValidationError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	details := make([]ValidationError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		d := ValidationError{Loc: []string{loc, toSnakeCase(fe.Field())}}
		switch fe.Tag() {
		case "required":
			d.Msg, d.Type = "field required", "value_error.missing"
		case "min":
			d.Msg, d.Type = "ensure this value is greater than or equal to "+fe.Param(), "value_error.number.not_ge"
		case "max":
			d.Msg, d.Type = "ensure this value is less than or equal to "+fe.Param(), "value_error.number.not_le"
		case "gt":
			d.Msg, d.Type = "ensure this value is greater than "+fe.Param(), "value_error.number.not_gt"
		default:
			d.Msg, d.Type = fmt.Sprintf("failed validation (%s)", fe.Tag()), "value_error"
		}
		details = append(details, d)
	}
	return details
}

var snakeCaseRegex = regexp.MustCompile("([a-z0-9])([A-Z])")

// toSnakeCase converts a PascalCase or camelCase string to snake_case
func toSnakeCase(s string) string {
	fieldMappings := map[string]string{
		"APIKey": "api_key",
	}
	if mapped, ok := fieldMappings[s]; ok {
		return mapped
	}
	return strings.ToLower(snakeCaseRegex.ReplaceAllString(s, "${1}_${2}"))
}
