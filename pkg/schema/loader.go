package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// SchemaFileName is the option schema document expected at a blueprint root.
const SchemaFileName = "template.json"

// Load reads and validates an option schema document from disk.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read option schema: %w", err)
	}
	return Parse(data)
}

// Parse decodes an option schema document, preserving declaration order.
// The document must be a single JSON object whose values are scalars
// (string, number, bool) or non-empty lists of strings.
func Parse(data []byte) (*Schema, error) {
	if err := validateShape(data); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to decode option schema: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("option schema must be a JSON object, got %v", tok)
	}

	s := &Schema{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to decode option schema: %w", err)
		}
		name := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode option %q: %w", name, err)
		}

		opt, err := decodeOption(name, raw)
		if err != nil {
			return nil, err
		}
		s.Options = append(s.Options, opt)
	}

	return s, nil
}

// decodeOption interprets a single schema value as a constant or an axis.
func decodeOption(name string, raw json.RawMessage) (Option, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var choices []string
		if err := json.Unmarshal(raw, &choices); err != nil {
			return Option{}, fmt.Errorf("option %q: choice list must contain only strings: %w", name, err)
		}
		if len(choices) == 0 {
			return Option{}, fmt.Errorf("option %q: choice list must not be empty", name)
		}
		return Option{Name: name, Choices: choices}, nil
	}

	value, err := decodeScalar(raw)
	if err != nil {
		return Option{}, fmt.Errorf("option %q: %w", name, err)
	}
	return Option{Name: name, Default: value}, nil
}

// decodeScalar renders a scalar JSON value as its string form, matching how
// templated documents consume option values.
func decodeScalar(raw json.RawMessage) (string, error) {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("invalid scalar value: %w", err)
	}

	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
