package searchindex

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// DocumenterVariable is the global Documenter.jl assigns the payload to.
const DocumenterVariable = "documenterSearchIndex"

// assignmentRegex matches a leading "var name =" JavaScript assignment.
var (
	assignmentRegex = regexp.MustCompile(`^\s*(?:var|let|const)\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*=\s*`)
	identifierRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

type payload struct {
	Docs []DocFragment `json:"docs"`
}

// Load parses a search index payload. The payload is either the bare JSON
// object or a single JavaScript variable assignment of it.
//
// Load is all or nothing: a shape violation yields a *MalformedIndexError and
// an invalid fragment yields a *MalformedRecordError carrying its position.
func Load(raw []byte) (*Index, error) {
	body, variable := stripAssignment(raw)
	if len(body) == 0 {
		return nil, &MalformedIndexError{Reason: "empty payload"}
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, &MalformedIndexError{Reason: "invalid JSON", Err: err}
	}

	if err := validate(instance); err != nil {
		return nil, err
	}

	fragments, err := fragmentsFromInstance(instance)
	if err != nil {
		return nil, err
	}

	ix := newIndex(fragments)
	ix.variable = variable
	return ix, nil
}

// fragmentsFromInstance reads the fragments out of a validated instance.
// Keys are matched exactly, as the schema matches them; any other key is
// ignored.
func fragmentsFromInstance(instance any) ([]DocFragment, error) {
	root, ok := instance.(map[string]any)
	if !ok {
		return nil, &MalformedIndexError{Reason: "payload is not an object"}
	}
	docs, ok := root["docs"].([]any)
	if !ok {
		return nil, &MalformedIndexError{Reason: "docs is not an array"}
	}

	fragments := make([]DocFragment, 0, len(docs))
	for i, doc := range docs {
		rec, ok := doc.(map[string]any)
		if !ok {
			return nil, &MalformedRecordError{Index: i, Reason: "record is not an object"}
		}
		fragments = append(fragments, DocFragment{
			Location: stringField(rec, "location"),
			Page:     stringField(rec, "page"),
			Title:    stringField(rec, "title"),
			Text:     stringField(rec, "text"),
			Category: Category(stringField(rec, "category")),
		})
	}
	return fragments, nil
}

func stringField(rec map[string]any, key string) string {
	s, _ := rec[key].(string)
	return s
}

// LoadReader reads r to the end and parses it with Load.
func LoadReader(r io.Reader) (*Index, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read search index: %w", err)
	}
	return Load(raw)
}

// LoadFile reads and parses the payload stored at path.
func LoadFile(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read search index: %w", err)
	}
	ix, err := Load(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ix, nil
}

// stripAssignment removes a JavaScript assignment wrapper and a trailing
// semicolon, returning the JSON body and the variable name.
func stripAssignment(raw []byte) ([]byte, string) {
	body := bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	body = bytes.TrimSpace(body)

	var variable string
	if m := assignmentRegex.FindSubmatchIndex(body); m != nil {
		variable = string(body[m[2]:m[3]])
		body = body[m[1]:]
		body = bytes.TrimSpace(body)
		body = bytes.TrimSuffix(body, []byte(";"))
		body = bytes.TrimSpace(body)
	}
	return body, variable
}
