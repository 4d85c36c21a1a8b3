// Package assemble merges registered documentation with a route table into a
// single OpenAPI document. It is the only component that knows document-wide
// invariants: (path, method) uniqueness, schema conflict detection, reference
// resolution, pruning of unused definitions, and deterministic output.
package assemble

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/docspec/docspec/internal/docparse"
	"github.com/docspec/docspec/internal/openapi"
	"github.com/docspec/docspec/internal/registry"
)

// Route binds one path template and HTTP method to a handler identifier.
// Path parameters may use either {name} or :name syntax; the latter is
// normalized away.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// Meta is the document-level metadata supplied by the caller.
type Meta struct {
	Title          string `validate:"required"`
	Version        string `validate:"required"`
	Description    string
	TermsOfService string `validate:"omitempty,url"`
	Contact        *Contact
	License        *License
	Tags           []Tag `validate:"dive"`
}

type Contact struct {
	Name  string
	URL   string `validate:"omitempty,url"`
	Email string `validate:"omitempty,email"`
}

type License struct {
	Name string `validate:"required"`
	URL  string `validate:"omitempty,url"`
}

type Tag struct {
	Name        string `validate:"required"`
	Description string
	DocsURL     string `validate:"omitempty,url"`
}

// Result is a successful generation pass: the document plus any non-fatal
// warnings (unused schemas, parameter location mismatches).
type Result struct {
	Document *openapi.Document
	Warnings []Warning
}

var (
	metaValidator = validator.New()
	templateParam = regexp.MustCompile(`\{([^{}]+)\}`)
)

var supportedMethods = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true, "patch": true,
}

// Assemble runs one generation pass over a frozen registry and route table.
// It either returns a complete document or the first fatal error; it never
// emits a partially built document.
func Assemble(reg *registry.Registry, routes []Route, meta Meta) (*Result, error) {
	if err := metaValidator.Struct(meta); err != nil {
		return nil, fmt.Errorf("assemble: invalid document metadata: %w", err)
	}

	a := &assembler{
		reg:    reg,
		parsed: make(map[string]*docparse.HandlerDoc),
		doc:    openapi.NewDocument(meta.Title, meta.Version),
	}
	a.applyMeta(meta)

	if err := a.buildPaths(routes); err != nil {
		return nil, err
	}
	if err := a.resolveComponents(); err != nil {
		return nil, err
	}
	a.warnUnused()

	return &Result{Document: a.doc, Warnings: a.warnings}, nil
}

type assembler struct {
	reg      *registry.Registry
	parsed   map[string]*docparse.HandlerDoc
	doc      *openapi.Document
	used     map[string]bool
	warnings []Warning
}

func (a *assembler) applyMeta(meta Meta) {
	a.doc.Info.Description = meta.Description
	a.doc.Info.TermsOfService = meta.TermsOfService
	if meta.Contact != nil {
		a.doc.Info.Contact = &openapi.Contact{Name: meta.Contact.Name, URL: meta.Contact.URL, Email: meta.Contact.Email}
	}
	if meta.License != nil {
		a.doc.Info.License = &openapi.License{Name: meta.License.Name, URL: meta.License.URL}
	}
	for _, t := range meta.Tags {
		tag := openapi.Tag{Name: t.Name, Description: t.Description}
		if t.DocsURL != "" {
			tag.ExternalDocs = &openapi.ExternalDocs{URL: t.DocsURL}
		}
		a.doc.Tags = append(a.doc.Tags, tag)
	}
}

func (a *assembler) buildPaths(routes []Route) error {
	slotHandler := make(map[string]string) // "method path" -> handler id

	for _, route := range routes {
		method := strings.ToLower(strings.TrimSpace(route.Method))
		if !supportedMethods[method] {
			return fmt.Errorf("assemble: unsupported HTTP method %q for path %s", route.Method, route.Path)
		}
		path := normalizePath(route.Path)

		slot := method + " " + path
		if first, taken := slotHandler[slot]; taken {
			return &RouteConflictError{Method: method, Path: path, First: first, Second: route.Handler}
		}
		slotHandler[slot] = route.Handler

		doc, err := a.handlerDoc(route.Handler)
		if err != nil {
			return err
		}

		item := a.doc.Paths[path]
		if item == nil {
			item = &openapi.PathItem{}
			a.doc.Paths[path] = item
		}
		item.SetOperation(method, a.buildOperation(method, path, route.Handler, doc))
	}
	return nil
}

// handlerDoc parses a handler's registered documentation exactly once per
// pass. A handler bound to several routes shares one descriptor. Handlers
// with no registration at all yield nil; the operation is then built from the
// route alone.
func (a *assembler) handlerDoc(id string) (*docparse.HandlerDoc, error) {
	if doc, ok := a.parsed[id]; ok {
		return doc, nil
	}
	reg, ok := a.reg.Handler(id)
	if !ok {
		a.parsed[id] = nil
		return nil, nil
	}
	doc, err := docparse.Parse(id, reg.Doc, docparse.Hint{
		Success: reg.Success,
		Error:   reg.Error,
		Request: reg.Request,
	})
	if err != nil {
		return nil, err
	}
	a.parsed[id] = doc
	return doc, nil
}

func (a *assembler) buildOperation(method, path, handler string, doc *docparse.HandlerDoc) *openapi.Operation {
	op := &openapi.Operation{
		HandlerFunction: handler,
		Responses:       make(map[string]*openapi.Response),
	}
	if doc == nil {
		op.Summary = strings.ToUpper(method) + " " + path
		op.Description = "No description available"
		op.Responses["200"] = &openapi.Response{Description: "Successful response"}
		return op
	}

	op.Summary = doc.Summary
	op.Description = doc.Description
	op.Tags = append(op.Tags, doc.Tags...)

	pathParams := templateParams(path)
	for _, p := range doc.Parameters {
		a.checkLocation(handler, path, p, pathParams)
		op.Parameters = append(op.Parameters, openapi.Parameter{
			Name:        p.Name,
			In:          p.In,
			Description: p.Description,
			Required:    p.Required,
			Schema:      openapi.Item(openapi.Schema{Type: "string"}),
		})
	}

	if rb := doc.RequestBody; rb != nil {
		media := &openapi.MediaType{}
		if rb.Schema != "" {
			media.Schema = openapi.SchemaRef(rb.Schema)
		} else {
			media.Schema = openapi.Item(openapi.Schema{Type: "object"})
		}
		op.RequestBody = &openapi.RequestBody{
			Description: rb.Description,
			Required:    rb.Required,
			Content:     map[string]*openapi.MediaType{rb.MediaType: media},
		}
	}

	for _, r := range doc.Responses {
		resp := &openapi.Response{Description: r.Description}
		if r.Schema != "" {
			resp.Content = map[string]*openapi.MediaType{
				r.MediaType: {Schema: openapi.SchemaRef(r.Schema)},
			}
		}
		op.Responses[r.Status] = resp
	}
	return op
}

// checkLocation flags declared parameter locations that contradict the path
// template. This stays a warning: templates and declarations come from
// different authors and the right resolution is not yet settled.
func (a *assembler) checkLocation(handler, path string, p docparse.Parameter, pathParams map[string]bool) {
	switch {
	case p.In == "path" && !pathParams[p.Name]:
		a.warnf(WarnLocationMismatch, "handler %q declares path parameter %q but %s has no {%s} segment",
			handler, p.Name, path, p.Name)
	case p.In != "path" && pathParams[p.Name]:
		a.warnf(WarnLocationMismatch, "handler %q declares parameter %q as %s but it appears in the path template %s",
			handler, p.Name, p.In, path)
	}
}

func (a *assembler) warnf(kind WarningKind, format string, args ...any) {
	a.warnings = append(a.warnings, Warning{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// resolveComponents gathers every schema name the document references,
// resolves each against the registry (transitively), detects conflicting
// registrations, and emits only the used subset into components.schemas.
func (a *assembler) resolveComponents() error {
	byName := make(map[string][]registry.SchemaRegistration)
	for _, reg := range a.reg.Schemas() {
		byName[reg.Name] = append(byName[reg.Name], reg)
	}

	a.used = make(map[string]bool)
	queue := a.referencedNames()
	resolved := make(map[string]*openapi.Schema)

	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if a.used[ref.name] {
			continue
		}
		a.used[ref.name] = true

		regs := byName[ref.name]
		if len(regs) == 0 {
			return &MissingSchemaError{Name: ref.name, ReferencedBy: ref.source}
		}
		schema, err := decodeRegistrations(ref.name, regs)
		if err != nil {
			return err
		}
		resolved[ref.name] = schema

		for _, dep := range schemaRefs(schema) {
			if !a.used[dep] {
				queue = append(queue, nameRef{name: dep, source: "schema " + ref.name})
			}
		}
	}

	if len(resolved) == 0 {
		return nil
	}
	schemas := make(map[string]*openapi.SchemaOrRef, len(resolved))
	for name, schema := range resolved {
		schemas[name] = &openapi.SchemaOrRef{Item: schema}
	}
	a.doc.Components = &openapi.Components{Schemas: schemas}
	return nil
}

type nameRef struct {
	name   string
	source string
}

// referencedNames walks every operation's request body and responses and
// collects the component names they reference, in deterministic order.
func (a *assembler) referencedNames() []nameRef {
	paths := make([]string, 0, len(a.doc.Paths))
	for p := range a.doc.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []nameRef
	for _, p := range paths {
		item := a.doc.Paths[p]
		for _, method := range item.Methods() {
			op := item.Operation(method)
			source := "handler " + op.HandlerFunction
			if op.RequestBody != nil {
				out = append(out, contentRefs(op.RequestBody.Content, source)...)
			}
			statuses := make([]string, 0, len(op.Responses))
			for s := range op.Responses {
				statuses = append(statuses, s)
			}
			sort.Strings(statuses)
			for _, s := range statuses {
				out = append(out, contentRefs(op.Responses[s].Content, source)...)
			}
		}
	}
	return out
}

func contentRefs(content map[string]*openapi.MediaType, source string) []nameRef {
	types := make([]string, 0, len(content))
	for mt := range content {
		types = append(types, mt)
	}
	sort.Strings(types)

	var out []nameRef
	for _, mt := range types {
		media := content[mt]
		if media.Schema != nil && media.Schema.IsRef() {
			out = append(out, nameRef{name: media.Schema.TargetName(), source: source})
		}
	}
	return out
}

// schemaRefs returns the component names a schema's own definition points at,
// through properties (including nested inline schemas) and array items.
func schemaRefs(schema *openapi.Schema) []string {
	var out []string
	walkInline(schema, &out)
	return out
}

func walkInline(s *openapi.Schema, out *[]string) {
	for _, prop := range s.Properties {
		if prop.Schema == nil {
			continue
		}
		if prop.Schema.IsRef() {
			*out = append(*out, prop.Schema.TargetName())
		} else if prop.Schema.Item != nil {
			walkInline(prop.Schema.Item, out)
		}
	}
	if s.Items != nil {
		if s.Items.IsRef() {
			*out = append(*out, s.Items.TargetName())
		} else if s.Items.Item != nil {
			walkInline(s.Items.Item, out)
		}
	}
}

// decodeRegistrations decodes every registration of one name and verifies
// they are structurally identical. Property declaration order is part of the
// structure, so two definitions listing the same properties in a different
// order count as a conflict.
func decodeRegistrations(name string, regs []registry.SchemaRegistration) (*openapi.Schema, error) {
	var canonical []byte
	var first *openapi.Schema
	for _, reg := range regs {
		var schema openapi.Schema
		if err := json.Unmarshal(reg.JSON, &schema); err != nil {
			return nil, fmt.Errorf("assemble: schema %q has a malformed registration: %w", name, err)
		}
		enc, err := json.Marshal(&schema)
		if err != nil {
			return nil, fmt.Errorf("assemble: schema %q cannot be re-encoded: %w", name, err)
		}
		if canonical == nil {
			canonical = enc
			first = &schema
			continue
		}
		if !bytes.Equal(canonical, enc) {
			return nil, &ConflictingSchemaError{Name: name, Definitions: []string{string(canonical), string(enc)}}
		}
	}
	return first, nil
}

// warnUnused reports registered names the document never referenced, sorted
// so warning output is stable across runs.
func (a *assembler) warnUnused() {
	seen := make(map[string]bool)
	var names []string
	for _, reg := range a.reg.Schemas() {
		if !seen[reg.Name] {
			seen[reg.Name] = true
			names = append(names, reg.Name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if !a.used[name] {
			a.warnf(WarnUnusedSchema, "schema %q is registered but never referenced", name)
		}
	}
}

// normalizePath rewrites :param segments to the {param} template form.
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if name, ok := strings.CutPrefix(seg, ":"); ok && name != "" {
			segments[i] = "{" + name + "}"
		}
	}
	return strings.Join(segments, "/")
}

func templateParams(path string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range templateParam.FindAllStringSubmatch(path, -1) {
		out[m[1]] = true
	}
	return out
}
