package openapi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RefKey is the reserved key that marks a serialized reference object.
const RefKey = "$ref"

// ComponentSchemaPrefix is the path prefix for references into the shared
// component schema table.
const ComponentSchemaPrefix = "#/components/schemas/"

// ReferenceOr holds either a reference into the component table or an inline
// value of type T. The in-memory representation is tagged; the wire encoding
// is not: a reference serializes as a single-key {"$ref": "..."} object and an
// inline item serializes as T itself.
type ReferenceOr[T any] struct {
	Ref  string
	Item *T
}

// Ref builds a reference variant from a full reference path.
func Ref[T any](path string) *ReferenceOr[T] {
	return &ReferenceOr[T]{Ref: path}
}

// Item builds an inline variant.
func Item[T any](v T) *ReferenceOr[T] {
	return &ReferenceOr[T]{Item: &v}
}

// SchemaOrRef is the schema-bearing instantiation used throughout the model.
type SchemaOrRef = ReferenceOr[Schema]

// SchemaRef builds a reference to a named entry in components.schemas.
func SchemaRef(name string) *SchemaOrRef {
	return &SchemaOrRef{Ref: ComponentSchemaPrefix + name}
}

// IsRef reports whether this value is a reference.
func (r *ReferenceOr[T]) IsRef() bool { return r.Ref != "" }

// TargetName returns the last path segment of the reference string, which for
// component references is the component name. Empty for inline items.
func (r *ReferenceOr[T]) TargetName() string {
	if r.Ref == "" {
		return ""
	}
	if i := strings.LastIndex(r.Ref, "/"); i >= 0 {
		return r.Ref[i+1:]
	}
	return r.Ref
}

func (r ReferenceOr[T]) MarshalJSON() ([]byte, error) {
	if r.Ref != "" {
		return json.Marshal(map[string]string{RefKey: r.Ref})
	}
	if r.Item == nil {
		return nil, fmt.Errorf("openapi: ReferenceOr has neither reference nor item")
	}
	return json.Marshal(r.Item)
}

// UnmarshalJSON inspects the reserved key before attempting an item decode.
// The order matters: an item's own shape may coincidentally be a single-key
// object, so the reference probe must run first.
func (r *ReferenceOr[T]) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil {
		if raw, ok := probe[RefKey]; ok {
			var ref string
			if err := json.Unmarshal(raw, &ref); err != nil {
				return fmt.Errorf("openapi: malformed %s value: %w", RefKey, err)
			}
			r.Ref = ref
			r.Item = nil
			return nil
		}
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	r.Ref = ""
	r.Item = &item
	return nil
}
