// Package modelio reads and writes probability models in their
// serialization formats.
//
// JSON is the canonical interchange format used by the API, the cache and
// the model store. TOML is supported for hand-written model definitions:
//
//	top = "model"
//
//	[[nodes]]
//	id = "model"
//	kind = "density"
//	self_normalized = true
//
//	[[nodes]]
//	id = "x"
//	kind = "variable"
//
//	[[edges]]
//	from = "model"
//	to = "x"
package modelio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Marshal converts a model to indented JSON bytes.
func Marshal(m Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(m, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal deserializes JSON bytes to a model.
func Unmarshal(data []byte) (Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return Model{}, fmt.Errorf("decode model: %w", err)
	}
	return m, nil
}

// Write encodes a model as indented JSON to w.
func Write(m Model, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return nil
}

// Read decodes a JSON model from r.
func Read(r io.Reader) (Model, error) {
	var m Model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return Model{}, fmt.Errorf("decode model: %w", err)
	}
	return m, nil
}

// WriteFile writes a model to a JSON file with 0644 permissions.
func WriteFile(m Model, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(m, f)
}

// ReadFile reads a model file, dispatching on the file extension:
// .toml files are parsed as TOML model definitions, everything else as JSON.
func ReadFile(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Model{}, fmt.Errorf("open %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return UnmarshalTOML(data)
	}
	return Unmarshal(data)
}

// UnmarshalTOML parses a TOML model definition.
func UnmarshalTOML(data []byte) (Model, error) {
	var m Model
	if err := toml.Unmarshal(data, &m); err != nil {
		return Model{}, fmt.Errorf("decode TOML model: %w", err)
	}
	return m, nil
}
