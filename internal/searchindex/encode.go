package searchindex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// MarshalJSON encodes the index in the {"docs": [...]} payload format.
func (ix *Index) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := ix.Encode(&buf); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON replaces the receiver with the result of Load.
func (ix *Index) UnmarshalJSON(data []byte) error {
	loaded, err := Load(data)
	if err != nil {
		return err
	}
	*ix = *loaded
	return nil
}

// Encode writes the index as a bare JSON payload followed by a newline.
// An empty or nil index encodes as {"docs":[]}.
func (ix *Index) Encode(w io.Writer) error {
	docs := ix.all()
	if docs == nil {
		docs = []DocFragment{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload{Docs: docs}); err != nil {
		return fmt.Errorf("failed to encode search index: %w", err)
	}
	return nil
}

// EncodeJS writes the index as a JavaScript assignment to variable, the form
// Documenter.jl publishes. An empty variable uses DocumenterVariable.
func (ix *Index) EncodeJS(w io.Writer, variable string) error {
	if variable == "" {
		variable = DocumenterVariable
	}
	if !identifierRegex.MatchString(variable) {
		return fmt.Errorf("invalid JavaScript identifier %q", variable)
	}
	if _, err := fmt.Fprintf(w, "var %s = ", variable); err != nil {
		return fmt.Errorf("failed to encode search index: %w", err)
	}
	return ix.Encode(w)
}
