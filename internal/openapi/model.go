package openapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is the root of an OpenAPI 3.0 description. Paths and component
// schemas are plain maps; encoding/json emits map keys in lexicographic order,
// which is what makes repeated serialization byte-identical.
type Document struct {
	OpenAPI    string               `json:"openapi"`
	Info       Info                 `json:"info"`
	Tags       []Tag                `json:"tags,omitempty"`
	Paths      map[string]*PathItem `json:"paths"`
	Components *Components          `json:"components,omitempty"`
}

// NewDocument returns a 3.0.0 document with empty paths.
func NewDocument(title, version string) *Document {
	return &Document{
		OpenAPI: "3.0.0",
		Info:    Info{Title: title, Version: version},
		Paths:   make(map[string]*PathItem),
	}
}

type Info struct {
	Title          string   `json:"title"`
	Version        string   `json:"version"`
	Description    string   `json:"description,omitempty"`
	TermsOfService string   `json:"termsOfService,omitempty"`
	Contact        *Contact `json:"contact,omitempty"`
	License        *License `json:"license,omitempty"`
}

type Contact struct {
	Name  string `json:"name,omitempty"`
	URL   string `json:"url,omitempty"`
	Email string `json:"email,omitempty"`
}

type License struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type Tag struct {
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	ExternalDocs *ExternalDocs `json:"externalDocs,omitempty"`
}

type ExternalDocs struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PathItem holds at most one operation per supported HTTP method. Method keys
// in the serialized form are lowercase.
type PathItem struct {
	Get    *Operation `json:"get,omitempty"`
	Post   *Operation `json:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"`
	Delete *Operation `json:"delete,omitempty"`
	Patch  *Operation `json:"patch,omitempty"`
}

// Operation returns the operation registered under the given lowercase method
// key, or nil.
func (p *PathItem) Operation(method string) *Operation {
	switch method {
	case "get":
		return p.Get
	case "post":
		return p.Post
	case "put":
		return p.Put
	case "delete":
		return p.Delete
	case "patch":
		return p.Patch
	}
	return nil
}

// SetOperation places op under the given lowercase method key. It reports
// false for unsupported methods.
func (p *PathItem) SetOperation(method string, op *Operation) bool {
	switch method {
	case "get":
		p.Get = op
	case "post":
		p.Post = op
	case "put":
		p.Put = op
	case "delete":
		p.Delete = op
	case "patch":
		p.Patch = op
	default:
		return false
	}
	return true
}

// Methods returns the method keys present on this path item, in the fixed
// get/post/put/delete/patch order.
func (p *PathItem) Methods() []string {
	var out []string
	for _, m := range []struct {
		key string
		op  *Operation
	}{
		{"get", p.Get}, {"post", p.Post}, {"put", p.Put}, {"delete", p.Delete}, {"patch", p.Patch},
	} {
		if m.op != nil {
			out = append(out, m.key)
		}
	}
	return out
}

type Operation struct {
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
	// HandlerFunction records the source handler identifier as a vendor
	// extension, useful when tracing a spec entry back to code.
	HandlerFunction string               `json:"x-handler-function,omitempty"`
	Tags            []string             `json:"tags,omitempty"`
	Parameters      []Parameter          `json:"parameters,omitempty"`
	RequestBody     *RequestBody         `json:"requestBody,omitempty"`
	Responses       map[string]*Response `json:"responses"`
}

type Parameter struct {
	Name        string       `json:"name"`
	In          string       `json:"in"`
	Description string       `json:"description,omitempty"`
	Required    bool         `json:"required"`
	Schema      *SchemaOrRef `json:"schema,omitempty"`
}

type RequestBody struct {
	Description string                `json:"description,omitempty"`
	Content     map[string]*MediaType `json:"content"`
	Required    bool                  `json:"required"`
}

type Response struct {
	Description string                `json:"description"`
	Content     map[string]*MediaType `json:"content,omitempty"`
}

type MediaType struct {
	Schema *SchemaOrRef `json:"schema,omitempty"`
}

// Components is the shared pool of reusable definitions.
type Components struct {
	Schemas map[string]*SchemaOrRef `json:"schemas,omitempty"`
}

// Schema describes a named or inline type. Properties keep their declaration
// order through serialization; see the Properties type.
//
// Items and Property.Schema spell out ReferenceOr[Schema] instead of the
// SchemaOrRef alias: an alias of a generic instantiation may not appear
// inside the recursive type it abbreviates (go.dev/issue/50729).
type Schema struct {
	Type        string               `json:"type,omitempty"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	Format      string               `json:"format,omitempty"`
	Properties  Properties           `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
	Items       *ReferenceOr[Schema] `json:"items,omitempty"`
}

// Property is one named entry of an object schema.
type Property struct {
	Name   string
	Schema *ReferenceOr[Schema]
}

// Properties is an ordered object: it serializes as a JSON object whose keys
// appear in declaration order rather than the sorted order a map would give.
type Properties []Property

// Get returns the schema for a property name, or nil.
func (p Properties) Get(name string) *SchemaOrRef {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Schema
		}
	}
	return nil
}

func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(prop.Schema)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON walks the object token stream so key order survives decode.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("openapi: properties must be a JSON object")
	}
	var out Properties
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("openapi: unexpected properties key %v", tok)
		}
		var schema SchemaOrRef
		if err := dec.Decode(&schema); err != nil {
			return fmt.Errorf("openapi: property %q: %w", name, err)
		}
		out = append(out, Property{Name: name, Schema: &schema})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}
