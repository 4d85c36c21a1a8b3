// Package manifest loads a YAML description of one API — document metadata,
// schema definitions, raw handler documentation, and the route table — and
// turns it into the inputs the assembler expects. It exists for the CLI:
// in-process callers register against a Registry directly, while build
// tooling that has already extracted documentation text ships it as a
// manifest file.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/docspec/docspec/internal/assemble"
	"github.com/docspec/docspec/internal/registry"
)

// Manifest mirrors the YAML document. Schema definitions stay raw yaml.Node
// trees: decoding them into maps would lose property declaration order, which
// the document model preserves and the assembler treats as structural.
type Manifest struct {
	Info     Info                 `yaml:"info"`
	Tags     []Tag                `yaml:"tags"`
	Schemas  map[string]yaml.Node `yaml:"schemas"`
	Handlers map[string]Handler   `yaml:"handlers"`
	Routes   []Route              `yaml:"routes"`
}

type Info struct {
	Title          string   `yaml:"title"`
	Version        string   `yaml:"version"`
	Description    string   `yaml:"description"`
	TermsOfService string   `yaml:"termsOfService"`
	Contact        *Contact `yaml:"contact"`
	License        *License `yaml:"license"`
}

type Contact struct {
	Name  string `yaml:"name"`
	URL   string `yaml:"url"`
	Email string `yaml:"email"`
}

type License struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type Tag struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	DocsURL     string `yaml:"docsUrl"`
}

// Handler carries one handler's raw documentation text plus the schema names
// its signature declares.
type Handler struct {
	Doc     string `yaml:"doc"`
	Success string `yaml:"success"`
	Error   string `yaml:"error"`
	Request string `yaml:"request"`
}

type Route struct {
	Method  string `yaml:"method"`
	Path    string `yaml:"path"`
	Handler string `yaml:"handler"`
}

// Load reads and decodes a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: cannot parse %s: %w", path, err)
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) check() error {
	if len(m.Routes) == 0 {
		return fmt.Errorf("manifest: no routes declared")
	}
	for i, r := range m.Routes {
		if strings.TrimSpace(r.Path) == "" || strings.TrimSpace(r.Method) == "" || strings.TrimSpace(r.Handler) == "" {
			return fmt.Errorf("manifest: route %d must declare method, path and handler", i+1)
		}
	}
	return nil
}

// Build populates a fresh registry from the manifest and returns it together
// with the route table and document metadata.
func (m *Manifest) Build() (*registry.Registry, []assemble.Route, assemble.Meta, error) {
	reg := registry.New()

	for name, def := range m.Schemas {
		var buf bytes.Buffer
		if err := jsonFromYAMLNode(&buf, &def); err != nil {
			return nil, nil, assemble.Meta{}, fmt.Errorf("manifest: schema %q: %w", name, err)
		}
		reg.RegisterSchema(name, buf.Bytes())
	}

	for id, h := range m.Handlers {
		reg.RegisterHandler(id, registry.HandlerRegistration{
			Doc:     h.Doc,
			Success: h.Success,
			Error:   h.Error,
			Request: h.Request,
		})
	}

	routes := make([]assemble.Route, 0, len(m.Routes))
	for _, r := range m.Routes {
		routes = append(routes, assemble.Route{Method: r.Method, Path: r.Path, Handler: r.Handler})
	}

	meta := assemble.Meta{
		Title:          m.Info.Title,
		Version:        m.Info.Version,
		Description:    m.Info.Description,
		TermsOfService: m.Info.TermsOfService,
	}
	if m.Info.Contact != nil {
		meta.Contact = &assemble.Contact{Name: m.Info.Contact.Name, URL: m.Info.Contact.URL, Email: m.Info.Contact.Email}
	}
	if m.Info.License != nil {
		meta.License = &assemble.License{Name: m.Info.License.Name, URL: m.Info.License.URL}
	}
	for _, t := range m.Tags {
		meta.Tags = append(meta.Tags, assemble.Tag{Name: t.Name, Description: t.Description, DocsURL: t.DocsURL})
	}
	return reg, routes, meta, nil
}

// jsonFromYAMLNode renders a YAML node as JSON, walking mapping entries in
// document order rather than decoding through Go maps.
func jsonFromYAMLNode(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return jsonFromYAMLNode(buf, n.Content[0])
	case yaml.AliasNode:
		return jsonFromYAMLNode(buf, n.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := jsonFromYAMLNode(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := jsonFromYAMLNode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(data)
	default:
		return fmt.Errorf("unsupported YAML node kind %d", n.Kind)
	}
	return nil
}
