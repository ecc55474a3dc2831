// Package persistence provides functionality for persisting small pieces of
// agent state to disk, with pluggable serialization and writing.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Options struct {
	Overwrite bool
	Prefix    string
	Indent    string
}

func DefaultOptions() Options {
	return Options{Overwrite: true, Prefix: "", Indent: "    "}
}

type Serializer interface {
	Marshal(data any) ([]byte, error)
}

type Writer interface {
	Write(filename string, data []byte) error
}

type JSONSerializer struct {
	Prefix, Indent string
}

func (s JSONSerializer) Marshal(data any) ([]byte, error) {
	return json.MarshalIndent(data, s.Prefix, s.Indent)
}

// FileWriter writes files readable only by the owner; agent state
// may identify the host.
type FileWriter struct {
	Overwrite bool
}

func (w FileWriter) Write(filename string, data []byte) error {
	if filename == "" {
		return os.ErrInvalid
	}
	if _, err := os.Stat(filename); !os.IsNotExist(err) && !w.Overwrite {
		return os.ErrExist
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0600)
}

// WriteJSONToFile persists data to filename using the provided Serializer and Writer.
func WriteJSONToFile(data any, filename string, serializer Serializer, writer Writer) error {
	if filename == "" {
		return fmt.Errorf("failed to write data: %w", os.ErrInvalid)
	}

	bytes, err := serializer.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize data: %w", err)
	}

	if err := writer.Write(filename, bytes); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	return nil
}

// WriteJSON is WriteJSONToFile with indented JSON and an overwriting FileWriter,
// or with the given options.
func WriteJSON(data any, filename string, opts ...Options) error {
	opt := DefaultOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	return WriteJSONToFile(data, filename,
		JSONSerializer{Prefix: opt.Prefix, Indent: opt.Indent},
		FileWriter{Overwrite: opt.Overwrite})
}

// ReadJSON decodes filename into out.
func ReadJSON(filename string, out any) error {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(bytes, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	return nil
}
