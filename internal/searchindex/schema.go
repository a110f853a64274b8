package searchindex

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const schemaURL = "https://docsearch.krakend.io/schema/search-index.json"

//go:embed payload.schema.json
var schemaJSON []byte

var printer = message.NewPrinter(language.English)

// payloadSchema compiles the embedded schema once per process.
var payloadSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse payload schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add payload schema: %w", err)
	}

	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile payload schema: %w", err)
	}
	return schema, nil
})

// validate checks a decoded payload against the schema and converts the
// first violation into a MalformedIndexError or MalformedRecordError.
func validate(instance any) error {
	schema, err := payloadSchema()
	if err != nil {
		return err
	}

	err = schema.Validate(instance)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &MalformedIndexError{Reason: "validation failed", Err: err}
	}
	return translateValidationError(verr)
}

// translateValidationError walks the error tree down to its leaves. Any leaf
// outside a record is a top-level violation and wins; otherwise the leaf with
// the lowest record index is reported.
func translateValidationError(verr *jsonschema.ValidationError) error {
	var record *MalformedRecordError

	for _, leaf := range leafErrors(verr, nil) {
		reason := leaf.ErrorKind.LocalizedString(printer)

		idx, ok := recordIndex(leaf.InstanceLocation)
		if !ok {
			return &MalformedIndexError{Reason: describeLocation(leaf.InstanceLocation, reason)}
		}

		candidate := &MalformedRecordError{
			Index:  idx,
			Field:  recordField(leaf),
			Reason: reason,
		}
		if record == nil || lessRecordError(candidate, record) {
			record = candidate
		}
	}

	if record == nil {
		return &MalformedIndexError{Reason: verr.Error()}
	}
	return record
}

func leafErrors(verr *jsonschema.ValidationError, acc []*jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(verr.Causes) == 0 {
		return append(acc, verr)
	}
	for _, cause := range verr.Causes {
		acc = leafErrors(cause, acc)
	}
	return acc
}

// recordIndex extracts i from an instance location of the form docs/i/...
func recordIndex(location []string) (int, bool) {
	if len(location) < 2 || location[0] != "docs" {
		return 0, false
	}
	idx, err := strconv.Atoi(location[1])
	if err != nil {
		return 0, false
	}
	return idx, true
}

func recordField(leaf *jsonschema.ValidationError) string {
	if len(leaf.InstanceLocation) > 2 {
		return leaf.InstanceLocation[2]
	}
	if required, ok := leaf.ErrorKind.(*kind.Required); ok && len(required.Missing) > 0 {
		return required.Missing[0]
	}
	return ""
}

func lessRecordError(a, b *MalformedRecordError) bool {
	if a.Index != b.Index {
		return a.Index < b.Index
	}
	if a.Field != b.Field {
		return a.Field < b.Field
	}
	return a.Reason < b.Reason
}

func describeLocation(location []string, reason string) string {
	if len(location) == 0 {
		return reason
	}
	path := ""
	for _, part := range location {
		path += "/" + part
	}
	return path + ": " + reason
}
