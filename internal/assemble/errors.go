package assemble

import (
	"fmt"
	"strings"
)

// RouteConflictError reports two routes bound to the same (path, method)
// slot. Generation aborts rather than silently merging or overwriting.
type RouteConflictError struct {
	Method string
	Path   string
	First  string // handler identifier already holding the slot
	Second string // handler identifier that collided
}

func (e *RouteConflictError) Error() string {
	return fmt.Sprintf("assemble: duplicate route %s %s: bound to both %q and %q",
		strings.ToUpper(e.Method), e.Path, e.First, e.Second)
}

// MissingSchemaError reports a reference to a name that was never registered.
type MissingSchemaError struct {
	Name         string
	ReferencedBy string // handler identifier or parent schema name
}

func (e *MissingSchemaError) Error() string {
	return fmt.Sprintf("assemble: schema %q referenced by %s is not registered", e.Name, e.ReferencedBy)
}

// ConflictingSchemaError reports a name registered with structurally
// different definitions. Both definitions are included so the caller can see
// what disagrees; the assembler never picks one.
type ConflictingSchemaError struct {
	Name        string
	Definitions []string
}

func (e *ConflictingSchemaError) Error() string {
	return fmt.Sprintf("assemble: schema %q has conflicting registrations: %s",
		e.Name, strings.Join(e.Definitions, " vs "))
}

// WarningKind classifies non-fatal findings.
type WarningKind string

const (
	// WarnUnusedSchema marks a registered schema no operation references.
	WarnUnusedSchema WarningKind = "unused-schema"
	// WarnLocationMismatch marks a declared parameter location that
	// contradicts the route's path template.
	WarnLocationMismatch WarningKind = "location-mismatch"
)

// Warning is a non-fatal finding reported alongside a successful document.
type Warning struct {
	Kind    WarningKind
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
