package docparse

import (
	"fmt"
	"strings"
)

// Render writes a HandlerDoc back out as canonical documentation text.
// Rendering is the inverse of Parse up to normalization: parsing the rendered
// text (with the same hint) yields an identical descriptor. Responses that
// carry a schema are rendered in the elaborate form so no information is
// lost; schema-free responses render tersely.
func Render(doc *HandlerDoc) string {
	var b strings.Builder

	b.WriteString(doc.Summary)
	b.WriteString("\n")
	if doc.Description != "" {
		b.WriteString("\n")
		b.WriteString(doc.Description)
		b.WriteString("\n")
	}

	if len(doc.Parameters) > 0 {
		b.WriteString("\n# Parameters\n")
		for _, p := range doc.Parameters {
			fmt.Fprintf(&b, "- %s (%s): %s\n", p.Name, p.In, p.Description)
		}
	}

	if doc.RequestBody != nil {
		b.WriteString("\n# Request Body\n")
		fmt.Fprintf(&b, "Content-Type: %s\n", doc.RequestBody.MediaType)
		if doc.RequestBody.Description != "" {
			b.WriteString(doc.RequestBody.Description)
			b.WriteString("\n")
		}
	}

	if len(doc.Responses) > 0 {
		b.WriteString("\n# Responses\n")
		for _, r := range doc.Responses {
			if r.Schema == "" {
				fmt.Fprintf(&b, "- %s: %s\n", r.Status, r.Description)
				continue
			}
			fmt.Fprintf(&b, "- %s:\n", r.Status)
			if r.Description != "" {
				fmt.Fprintf(&b, "  description: %s\n", r.Description)
			}
			b.WriteString("  content:\n")
			fmt.Fprintf(&b, "  %s:\n", r.MediaType)
			fmt.Fprintf(&b, "  schema: %s\n", r.Schema)
		}
	}

	if len(doc.Tags) > 0 {
		b.WriteString("\n# Tags\n")
		for _, t := range doc.Tags {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}

	return b.String()
}
