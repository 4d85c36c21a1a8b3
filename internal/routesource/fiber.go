// Package routesource adapts third-party routers into the assembler's route
// table. The assembler itself never touches a router; it only consumes
// (path, method, handler identifier) triples.
package routesource

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/docspec/docspec/internal/assemble"
)

var documentedMethods = map[string]bool{
	fiber.MethodGet:    true,
	fiber.MethodPost:   true,
	fiber.MethodPut:    true,
	fiber.MethodDelete: true,
	fiber.MethodPatch:  true,
}

// FromFiber extracts a route table from a fiber application. The handler
// identifier is the route name, so handlers must be registered with
// .Name(...); unnamed routes (including fiber's implicit HEAD mounts and
// middleware) are skipped. Fiber's :param segments are rewritten to the
// {param} template form.
func FromFiber(app *fiber.App) []assemble.Route {
	seen := make(map[string]bool)
	var out []assemble.Route

	for _, r := range app.GetRoutes(true) {
		if !documentedMethods[r.Method] || r.Name == "" {
			continue
		}
		path := templatePath(r.Path)
		key := r.Method + " " + path
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, assemble.Route{
			Method:  strings.ToLower(r.Method),
			Path:    path,
			Handler: r.Name,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func templatePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if name, ok := strings.CutPrefix(seg, ":"); ok && name != "" {
			segments[i] = "{" + strings.TrimSuffix(name, "?") + "}"
		}
	}
	return strings.Join(segments, "/")
}
