// Package docparse turns the semi-structured documentation text attached to a
// request handler into a typed descriptor. The grammar is line-oriented:
//
//	First line            summary
//	...free text...       description (blank lines are paragraph breaks)
//	# Parameters          - <name> (<location>): <description>
//	# Request Body        Content-Type: <media-type>, then description lines
//	# Responses           - <status>: <description>           (terse)
//	                      - <status>:                         (elaborate)
//	                        description: <text>
//	                        content:
//	                        <media-type>:
//	                        schema: <SchemaName>
//	# Tags                - <tag>
//
// Parsing is pure: the only context beside the text itself is a Hint carrying
// the handler's declared request/success/error schema names, which drives
// default response synthesis.
package docparse

import (
	"fmt"
	"strings"
)

// Locations the grammar accepts for parameters.
var validLocations = map[string]bool{
	"path":   true,
	"query":  true,
	"header": true,
	"cookie": true,
}

// Hint carries the schema names declared by a handler's signature. The parser
// never inspects code; the caller passes these explicitly.
type Hint struct {
	// Success is the schema name of the 2xx payload, used to synthesize a
	// default 200 response when none is documented.
	Success string
	// Error is the schema name of the error payload, used to synthesize
	// default 400/500 responses and to fill terse error responses that have
	// no explicit schema.
	Error string
	// Request is the schema name of the request body payload, if any.
	Request string
}

// HandlerDoc is the parsed, immutable descriptor for one handler.
type HandlerDoc struct {
	Handler     string
	Summary     string
	Description string
	Tags        []string
	Parameters  []Parameter
	RequestBody *RequestBody
	Responses   []Response
}

// Parameter describes one operation parameter.
type Parameter struct {
	Name        string
	In          string // path, query, header or cookie
	Description string
	Required    bool
}

// RequestBody describes the request payload.
type RequestBody struct {
	MediaType   string
	Description string
	Required    bool
	Schema      string // component schema name; empty means inline object
}

// Response describes one status code entry. Schema is a component schema
// name; when empty the response carries no content.
type Response struct {
	Status      string
	Description string
	MediaType   string
	Schema      string
}

// ParseError reports malformed documentation text. It always names the
// handler and, when known, the offending line.
type ParseError struct {
	Handler string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("docparse: handler %q: line %d: %s", e.Handler, e.Line, e.Message)
	}
	return fmt.Sprintf("docparse: handler %q: %s", e.Handler, e.Message)
}

type section int

const (
	secNone section = iota
	secParams
	secBody
	secResponses
	secTags
	secOther
)

// sectionFor recognizes section headers. Headers are case-sensitive; both
// "# X" and "## X" forms are accepted.
func sectionFor(line string) (section, bool) {
	switch {
	case strings.HasPrefix(line, "# Parameters"), strings.HasPrefix(line, "## Parameters"):
		return secParams, true
	case strings.HasPrefix(line, "# Request Body"), strings.HasPrefix(line, "## Request Body"):
		return secBody, true
	case strings.HasPrefix(line, "# Responses"), strings.HasPrefix(line, "## Responses"):
		return secResponses, true
	case strings.HasPrefix(line, "# Tags"), strings.HasPrefix(line, "## Tags"):
		return secTags, true
	case strings.HasPrefix(line, "#"):
		return secOther, true
	}
	return secNone, false
}

type parser struct {
	handler string
	doc     *HandlerDoc

	section      section
	sectionLine  int
	sectionItems int

	summaryDone bool
	descLines   []string

	bodyTyped     bool // Content-Type line seen
	bodyDescLines []string

	seenStatus map[string]int // status -> first line
	pending    *Response      // open elaborate block
	pendingAt  int
}

// Parse converts one handler's raw documentation text into a HandlerDoc, or
// returns a *ParseError. hint supplies declared schema names for response and
// request-body defaulting; a zero Hint disables synthesis.
func Parse(handler, text string, hint Hint) (*HandlerDoc, error) {
	p := &parser{
		handler:    handler,
		doc:        &HandlerDoc{Handler: handler},
		seenStatus: make(map[string]int),
	}

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		lineNo := i + 1

		if sec, ok := sectionFor(line); ok {
			if err := p.closeSection(lineNo); err != nil {
				return nil, err
			}
			p.section = sec
			p.sectionLine = lineNo
			p.sectionItems = 0
			continue
		}

		if err := p.consume(line, lineNo); err != nil {
			return nil, err
		}
	}
	if err := p.closeSection(0); err != nil {
		return nil, err
	}

	p.finishDescription()
	p.finishBody(hint)
	p.applyResponseDefaults(hint)
	return p.doc, nil
}

func (p *parser) errf(line int, format string, args ...any) error {
	return &ParseError{Handler: p.handler, Line: line, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) consume(line string, lineNo int) error {
	switch p.section {
	case secNone:
		if line == "" {
			if p.summaryDone {
				p.descLines = append(p.descLines, "")
			}
			return nil
		}
		if !p.summaryDone {
			p.doc.Summary = line
			p.summaryDone = true
			return nil
		}
		p.descLines = append(p.descLines, line)
	case secParams:
		if line == "" {
			return nil
		}
		if item, ok := itemText(line); ok {
			p.sectionItems++
			return p.parseParameter(item, lineNo)
		}
		// Prose between items is tolerated, matching how handler authors
		// annotate lists.
	case secBody:
		if line == "" {
			return nil
		}
		p.sectionItems++
		if rest, ok := strings.CutPrefix(line, "Content-Type:"); ok {
			p.doc.RequestBody = &RequestBody{MediaType: strings.TrimSpace(rest), Required: true}
			p.bodyTyped = true
			return nil
		}
		if !p.bodyTyped {
			return p.errf(lineNo, "request body section must start with a Content-Type line")
		}
		p.bodyDescLines = append(p.bodyDescLines, line)
	case secResponses:
		if line == "" {
			return nil
		}
		if item, ok := itemText(line); ok {
			if err := p.closePending(); err != nil {
				return err
			}
			p.sectionItems++
			return p.parseResponseItem(item, lineNo)
		}
		return p.parseResponseDetail(line, lineNo)
	case secTags:
		if line == "" {
			return nil
		}
		if item, ok := itemText(line); ok {
			p.sectionItems++
			p.doc.Tags = append(p.doc.Tags, strings.TrimSpace(item))
		}
	case secOther:
		// Unrecognized sections are skipped wholesale.
	}
	return nil
}

// itemText strips the "- " or "* " list marker.
func itemText(line string) (string, bool) {
	if rest, ok := strings.CutPrefix(line, "- "); ok {
		return rest, true
	}
	if rest, ok := strings.CutPrefix(line, "* "); ok {
		return rest, true
	}
	return "", false
}

func (p *parser) parseParameter(item string, lineNo int) error {
	open := strings.Index(item, "(")
	end := strings.Index(item, ")")
	if open < 0 || end < open {
		return p.errf(lineNo, "malformed parameter entry %q, want \"name (location): description\"", item)
	}
	colon := strings.Index(item[end:], ":")
	if colon < 0 {
		return p.errf(lineNo, "malformed parameter entry %q, missing description separator", item)
	}
	name := strings.TrimSpace(item[:open])
	location := strings.TrimSpace(item[open+1 : end])
	description := strings.TrimSpace(item[end+colon+1:])

	if name == "" {
		return p.errf(lineNo, "parameter entry has an empty name")
	}
	if !validLocations[location] {
		return p.errf(lineNo, "unknown parameter location %q for %q, want path, query, header or cookie", location, name)
	}
	p.doc.Parameters = append(p.doc.Parameters, Parameter{
		Name:        name,
		In:          location,
		Description: description,
		Required:    location == "path",
	})
	return nil
}

func (p *parser) parseResponseItem(item string, lineNo int) error {
	colon := strings.Index(item, ":")
	if colon < 0 {
		return p.errf(lineNo, "malformed response entry %q, want \"<status>: <description>\"", item)
	}
	status := strings.TrimSpace(item[:colon])
	description := strings.TrimSpace(item[colon+1:])

	if !isStatusCode(status) {
		return p.errf(lineNo, "invalid response status %q, want a 3-digit code", status)
	}
	if first, dup := p.seenStatus[status]; dup {
		return p.errf(lineNo, "duplicate response status %s, first documented on line %d", status, first)
	}
	p.seenStatus[status] = lineNo

	if description == "" {
		// Elaborate form: details follow on indented lines.
		p.pending = &Response{Status: status}
		p.pendingAt = lineNo
		return nil
	}
	p.doc.Responses = append(p.doc.Responses, Response{Status: status, Description: description})
	return nil
}

func (p *parser) parseResponseDetail(line string, lineNo int) error {
	if p.pending == nil {
		return p.errf(lineNo, "response detail %q outside an elaborate response block", line)
	}
	switch {
	case strings.HasPrefix(line, "description:"):
		p.pending.Description = strings.TrimSpace(strings.TrimPrefix(line, "description:"))
	case line == "content:":
		// Marker line; the media type follows.
	case strings.HasPrefix(line, "schema:"):
		name := strings.TrimSpace(strings.TrimPrefix(line, "schema:"))
		if name == "" {
			return p.errf(lineNo, "elaborate response %s has an empty schema name", p.pending.Status)
		}
		p.pending.Schema = name
	case strings.HasSuffix(line, ":") && strings.Contains(line, "/"):
		p.pending.MediaType = strings.TrimSuffix(line, ":")
	default:
		return p.errf(lineNo, "unrecognized response detail %q", line)
	}
	return nil
}

func (p *parser) closePending() error {
	if p.pending == nil {
		return nil
	}
	if p.pending.Schema == "" {
		return p.errf(p.pendingAt, "elaborate response %s is missing a schema line", p.pending.Status)
	}
	if p.pending.MediaType == "" {
		p.pending.MediaType = "application/json"
	}
	p.doc.Responses = append(p.doc.Responses, *p.pending)
	p.pending = nil
	return nil
}

// closeSection runs when a new header opens or the text ends. A recognized
// section that accumulated no entries is an unterminated section.
func (p *parser) closeSection(lineNo int) error {
	if err := p.closePending(); err != nil {
		return err
	}
	switch p.section {
	case secParams, secBody, secResponses, secTags:
		if p.sectionItems == 0 {
			return p.errf(p.sectionLine, "unterminated section: no entries before %s", endOfSection(lineNo))
		}
	}
	return nil
}

func endOfSection(lineNo int) string {
	if lineNo == 0 {
		return "end of documentation"
	}
	return fmt.Sprintf("line %d", lineNo)
}

func (p *parser) finishDescription() {
	lines := p.descLines
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	p.doc.Description = strings.Join(lines, "\n")
}

func (p *parser) finishBody(hint Hint) {
	if p.doc.RequestBody != nil {
		p.doc.RequestBody.Description = strings.Join(p.bodyDescLines, "\n")
		if p.doc.RequestBody.Schema == "" {
			p.doc.RequestBody.Schema = hint.Request
		}
		return
	}
	if hint.Request != "" {
		// The handler takes a typed body even though none is documented.
		p.doc.RequestBody = &RequestBody{
			MediaType:   "application/json",
			Description: "Request body",
			Required:    true,
			Schema:      hint.Request,
		}
	}
}

// applyResponseDefaults implements the automatic-documentation behavior:
// when the handler's return shape is known, a 200 response with the success
// schema plus 400/500 responses with the error schema are synthesized for any
// status not explicitly documented. Explicitly documented statuses always win
// for their own slot. Terse error entries that carry no schema inherit the
// declared error schema.
func (p *parser) applyResponseDefaults(hint Hint) {
	if hint.Error != "" {
		for i := range p.doc.Responses {
			r := &p.doc.Responses[i]
			if r.Schema == "" && r.Status[0] != '2' && r.Status[0] != '3' {
				r.Schema = hint.Error
				r.MediaType = "application/json"
			}
		}
	}

	if hint.Success != "" && !p.hasStatus("200") {
		p.doc.Responses = append(p.doc.Responses, Response{
			Status:      "200",
			Description: "Successful response",
			MediaType:   "application/json",
			Schema:      hint.Success,
		})
	}
	if hint.Error != "" {
		if !p.hasStatus("400") {
			p.doc.Responses = append(p.doc.Responses, Response{
				Status:      "400",
				Description: "Bad request",
				MediaType:   "application/json",
				Schema:      hint.Error,
			})
		}
		if !p.hasStatus("500") {
			p.doc.Responses = append(p.doc.Responses, Response{
				Status:      "500",
				Description: "Internal server error",
				MediaType:   "application/json",
				Schema:      hint.Error,
			})
		}
	}

	if len(p.doc.Responses) == 0 {
		p.doc.Responses = append(p.doc.Responses, Response{Status: "200", Description: "Successful response"})
	}
}

func (p *parser) hasStatus(status string) bool {
	for _, r := range p.doc.Responses {
		if r.Status == status {
			return true
		}
	}
	return false
}

func isStatusCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
