package tasks

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed tasks.schema.json
var blobSchemaJSON string

var compileBlobSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(blobSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal blob schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("tasks.schema.json", doc); err != nil {
		return nil, fmt.Errorf("add blob schema resource: %w", err)
	}
	return c.Compile("tasks.schema.json")
})

// EncodeTasks serializes the whole collection, deleted rows included.
func EncodeTasks(all []Task) (string, error) {
	if all == nil {
		all = []Task{}
	}
	b, err := json.Marshal(all)
	if err != nil {
		return "", fmt.Errorf("encode tasks: %w", err)
	}
	return string(b), nil
}

// DecodeTasks parses a stored blob. Anything that is not an array of task
// records fails with ErrMalformedBlob.
func DecodeTasks(blob string) ([]Task, error) {
	schema, err := compileBlobSchema()
	if err != nil {
		return nil, err
	}
	// jsonschema.UnmarshalJSON keeps numbers as json.Number, which the
	// validator requires.
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBlob, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBlob, err)
	}
	var out []Task
	if err := json.Unmarshal([]byte(blob), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBlob, err)
	}
	if out == nil {
		out = []Task{}
	}
	return out, nil
}
