package openapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SerializationError wraps an encoding failure. Given a well-formed Document
// this should be unreachable, but it is surfaced rather than swallowed.
type SerializationError struct {
	Format string
	Cause  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("openapi: cannot serialize document to %s: %v", e.Format, e.Cause)
}

func (e *SerializationError) Unwrap() error { return e.Cause }

// EncodeJSON serializes the document as indented JSON. Map keys (paths,
// methods via struct order, response statuses, component names) are emitted
// in lexicographic order, so an unchanged document always yields identical
// bytes.
func EncodeJSON(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, &SerializationError{Format: "json", Cause: err}
	}
	return append(data, '\n'), nil
}

// EncodeYAML serializes the document as YAML that is structurally identical
// to the JSON form, key order included. The document is rendered to JSON
// first so that all custom encodings (untagged references, ordered
// properties, omitted optionals) apply, then the JSON token stream is
// re-expressed as a yaml.Node tree; decoding into plain maps instead would
// reshuffle ordered properties alphabetically.
func EncodeYAML(doc *Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, &SerializationError{Format: "yaml", Cause: err}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	node, err := yamlNodeFromJSON(dec)
	if err != nil {
		return nil, &SerializationError{Format: "yaml", Cause: err}
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return nil, &SerializationError{Format: "yaml", Cause: err}
	}
	return out, nil
}

func yamlNodeFromJSON(dec *json.Decoder) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return yamlNodeFromToken(dec, tok)
}

func yamlNodeFromToken(dec *json.Decoder, tok json.Token) (*yaml.Node, error) {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key token %v", keyTok)
				}
				value, err := yamlNodeFromJSON(dec)
				if err != nil {
					return nil, err
				}
				node.Content = append(node.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
			}
			if _, err := dec.Token(); err != nil { // closing brace
				return nil, err
			}
			return node, nil
		case '[':
			node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for dec.More() {
				value, err := yamlNodeFromJSON(dec)
				if err != nil {
					return nil, err
				}
				node.Content = append(node.Content, value)
			}
			if _, err := dec.Token(); err != nil { // closing bracket
				return nil, err
			}
			return node, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", v)
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}, nil
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(v.String(), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.String()}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// DecodeJSON parses a serialized document back into the model.
func DecodeJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("openapi: cannot decode document: %w", err)
	}
	return &doc, nil
}
