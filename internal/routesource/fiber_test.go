package routesource

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docspec/docspec/internal/assemble"
	"github.com/docspec/docspec/internal/registry"
)

func noop(c *fiber.Ctx) error { return nil }

func TestFromFiber(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/users/:id", noop).Name("get_user")
	app.Post("/users", noop).Name("create_user")
	app.Delete("/users/:id", noop).Name("delete_user")
	app.Get("/health", noop) // unnamed, must be skipped
	app.Head("/users/:id", noop).Name("head_user")

	routes := FromFiber(app)
	// The unnamed /health route and the HEAD mount are both absent; routes
	// come back sorted by path, then method.
	assert.Equal(t, []assemble.Route{
		{Method: "post", Path: "/users", Handler: "create_user"},
		{Method: "delete", Path: "/users/{id}", Handler: "delete_user"},
		{Method: "get", Path: "/users/{id}", Handler: "get_user"},
	}, routes)
}

func TestFromFiberSortedAndDeduplicated(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/b", noop).Name("b_handler")
	app.Get("/a", noop).Name("a_handler")
	app.Post("/a", noop).Name("a_create")

	routes := FromFiber(app)
	require.Len(t, routes, 3)
	assert.Equal(t, "/a", routes[0].Path)
	assert.Equal(t, "get", routes[0].Method)
	assert.Equal(t, "/a", routes[1].Path)
	assert.Equal(t, "post", routes[1].Method)
	assert.Equal(t, "/b", routes[2].Path)
}

func TestTemplatePath(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"/users/:id":          "/users/{id}",
		"/users/:id/pets":     "/users/{id}/pets",
		"/files/:name?":       "/files/{name}",
		"/plain":              "/plain",
		"/multi/:a/:b":        "/multi/{a}/{b}",
		"/users/{id}/already": "/users/{id}/already",
	}
	for in, want := range cases {
		assert.Equal(t, want, templatePath(in), "input %q", in)
	}
}

func TestFromFiberFeedsAssembler(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/ping", noop).Name("ping")

	routes := FromFiber(app)
	res, err := assemble.Assemble(registry.New(), routes, assemble.Meta{Title: "Svc", Version: "0.1.0"})
	require.NoError(t, err)
	assert.Contains(t, res.Document.Paths, "/ping")
	assert.NotNil(t, res.Document.Paths["/ping"].Get)
}
