// Package registry collects documentation fragments submitted from arbitrary
// call sites before a generation pass begins. It is deliberately dumb: writes
// are additive and unvalidated, duplicate schema names are allowed (the
// assembler is the one with enough context to call a duplicate a conflict),
// and reads return copies of everything accumulated so far.
package registry

import (
	"encoding/json"
	"sync"

	"github.com/docspec/docspec/internal/openapi"
)

// HandlerRegistration is the raw, unparsed documentation for one handler,
// plus the schema names its signature declares. The doc text is parsed later,
// during assembly.
type HandlerRegistration struct {
	Doc     string
	Success string
	Error   string
	Request string
}

// SchemaRegistration is one submission of a named schema definition. The same
// name may be registered any number of times by independent call sites.
type SchemaRegistration struct {
	Name string
	JSON []byte
}

// Registry is safe for concurrent registration. Once generation starts it is
// treated as frozen; nothing enforces that, but nothing mutates entries
// either, so concurrent reads after the quiescent point are safe too.
type Registry struct {
	mu       sync.Mutex
	handlers map[string]HandlerRegistration
	schemas  []SchemaRegistration
}

func New() *Registry {
	return &Registry{handlers: make(map[string]HandlerRegistration)}
}

// RegisterHandler stores the raw documentation for a handler identifier.
// Registering the same identifier again replaces the earlier entry.
func (r *Registry) RegisterHandler(id string, reg HandlerRegistration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = reg
}

// RegisterSchema stores one schema definition under a name. The definition is
// not inspected or validated here; malformed JSON surfaces during assembly.
func (r *Registry) RegisterSchema(name string, schemaJSON []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas = append(r.schemas, SchemaRegistration{Name: name, JSON: append([]byte(nil), schemaJSON...)})
}

// RegisterSchemaValue marshals a model schema and registers it, for call
// sites that build definitions in code rather than carrying serialized text.
func (r *Registry) RegisterSchemaValue(name string, schema *openapi.Schema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	r.RegisterSchema(name, data)
	return nil
}

// Handler returns the registration for one identifier.
func (r *Registry) Handler(id string) (HandlerRegistration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.handlers[id]
	return reg, ok
}

// Handlers returns a copy of all handler registrations. No ordering is
// guaranteed; callers needing determinism sort by identifier.
func (r *Registry) Handlers() map[string]HandlerRegistration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]HandlerRegistration, len(r.handlers))
	for id, reg := range r.handlers {
		out[id] = reg
	}
	return out
}

// Schemas returns a copy of every schema registration, duplicates included,
// in registration order.
func (r *Registry) Schemas() []SchemaRegistration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SchemaRegistration(nil), r.schemas...)
}
