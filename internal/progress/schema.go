package progress

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schemas for the top-level fields of a persisted State and for externally
// supplied events. Each state field is validated on its own so that one bad
// field does not discard the others.
const (
	attemptRecordSchema = `{
		"type": "object",
		"required": ["correct"],
		"properties": {
			"questionId": {"type": ["string", "null"]},
			"correct":    {"type": "boolean"},
			"category":   {"type": ["string", "null"]},
			"difficulty": {"type": ["string", "null"]},
			"timeTaken":  {"type": ["number", "null"]},
			"prompt":     {"type": ["string", "null"]},
			"source":     {"type": ["string", "null"]},
			"quizId":     {"type": ["string", "null"]},
			"updatedAt":  {"type": ["string", "null"]}
		}
	}`

	bucketSchema = `{
		"type": "object",
		"required": ["attempts", "correct"],
		"properties": {
			"attempts": {"type": "integer"},
			"correct":  {"type": "integer"}
		}
	}`

	historyEntrySchema = `{
		"type": "object",
		"required": ["questionId", "correct"],
		"properties": {
			"id":         {"type": ["string", "null"]},
			"questionId": {"type": "string", "minLength": 1},
			"correct":    {"type": "boolean"},
			"category":   {"type": ["string", "null"]},
			"difficulty": {"type": ["string", "null"]},
			"timeTaken":  {"type": ["number", "null"]},
			"timestamp":  {"type": ["string", "null"]},
			"prompt":     {"type": ["string", "null"]},
			"source":     {"type": ["string", "null"]},
			"quizId":     {"type": ["string", "null"]}
		}
	}`

	totalsSchema = `{
		"type": "object",
		"required": ["attempts", "correct", "timeSpentMinutes"],
		"properties": {
			"attempts":         {"type": "integer", "minimum": 0},
			"correct":          {"type": "integer", "minimum": 0},
			"timeSpentMinutes": {"type": "number", "minimum": 0}
		}
	}`

	eventSchema = `{
		"type": "object",
		"required": ["questionId", "correct"],
		"properties": {
			"questionId": {"type": "string", "minLength": 1},
			"correct":    {"type": "boolean"},
			"category":   {"type": ["string", "null"]},
			"difficulty": {"type": ["string", "null"]},
			"timeTaken":  {"type": ["number", "null"], "minimum": 0},
			"prompt":     {"type": ["string", "null"]},
			"source":     {"type": ["string", "null"]},
			"quizId":     {"type": ["string", "null"]}
		}
	}`
)

var schemaSources = map[string]string{
	"attempts":    `{"type": "object", "additionalProperties": ` + attemptRecordSchema + `}`,
	"category":    `{"type": "object", "additionalProperties": ` + bucketSchema + `}`,
	"difficulty":  `{"type": "object", "additionalProperties": ` + bucketSchema + `}`,
	"totals":      totalsSchema,
	"history":     `{"type": "array", "items": ` + historyEntrySchema + `}`,
	"lastUpdated": `{"type": ["string", "null"]}`,
	"event":       eventSchema,
}

// schemaCache caches compiled schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

var compileMu sync.Mutex

// compiledSchema returns the compiled schema registered under name.
func compiledSchema(name string) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	compileMu.Lock()
	defer compileMu.Unlock()
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	src, ok := schemaSources[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse schema %q: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://placeprep/%s.json", name)
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", name, err)
	}

	schemaCache.Store(name, compiled)
	return compiled, nil
}

// validate checks a value decoded by jsonschema.UnmarshalJSON against the
// named schema.
func validate(name string, v any) error {
	s, err := compiledSchema(name)
	if err != nil {
		return err
	}
	return s.Validate(v)
}
