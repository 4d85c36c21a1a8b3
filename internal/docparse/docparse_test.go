package docparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const getUserDoc = `Get a user by ID

Looks the user up in the primary store.
Falls back to the archive for deleted accounts.

# Parameters
- id (path): The unique user identifier
- expand (query): Comma-separated list of relations to expand

# Responses
- 200:
  description: The requested user
  content:
  application/json:
  schema: User
- 404: User not found

# Tags
- users
`

func TestParseFullDocument(t *testing.T) {
	t.Parallel()

	doc, err := Parse("get_user", getUserDoc, Hint{})
	require.NoError(t, err)

	assert.Equal(t, "Get a user by ID", doc.Summary)
	assert.Equal(t, "Looks the user up in the primary store.\nFalls back to the archive for deleted accounts.", doc.Description)
	assert.Equal(t, []string{"users"}, doc.Tags)

	require.Len(t, doc.Parameters, 2)
	assert.Equal(t, Parameter{Name: "id", In: "path", Description: "The unique user identifier", Required: true}, doc.Parameters[0])
	assert.Equal(t, Parameter{Name: "expand", In: "query", Description: "Comma-separated list of relations to expand", Required: false}, doc.Parameters[1])

	require.Len(t, doc.Responses, 2)
	assert.Equal(t, Response{Status: "200", Description: "The requested user", MediaType: "application/json", Schema: "User"}, doc.Responses[0])
	assert.Equal(t, Response{Status: "404", Description: "User not found"}, doc.Responses[1])
}

func TestParseDescriptionParagraphs(t *testing.T) {
	t.Parallel()

	text := "Summary line\n\nFirst paragraph.\n\nSecond paragraph.\n"
	doc, err := Parse("h", text, Hint{})
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", doc.Description)
}

func TestParseRequestBody(t *testing.T) {
	t.Parallel()

	t.Run("documented body", func(t *testing.T) {
		text := "Create a user\n\n# Request Body\nContent-Type: application/json\nThe user to create.\n\n# Responses\n- 201: Created\n"
		doc, err := Parse("create_user", text, Hint{})
		require.NoError(t, err)
		require.NotNil(t, doc.RequestBody)
		assert.Equal(t, "application/json", doc.RequestBody.MediaType)
		assert.Equal(t, "The user to create.", doc.RequestBody.Description)
		assert.True(t, doc.RequestBody.Required)
		assert.Empty(t, doc.RequestBody.Schema)
	})

	t.Run("declared request type fills the schema", func(t *testing.T) {
		text := "Create a user\n\n# Request Body\nContent-Type: application/json\nThe user to create.\n\n# Responses\n- 201: Created\n"
		doc, err := Parse("create_user", text, Hint{Request: "CreateUserRequest"})
		require.NoError(t, err)
		assert.Equal(t, "CreateUserRequest", doc.RequestBody.Schema)
	})

	t.Run("undocumented body synthesized from hint", func(t *testing.T) {
		doc, err := Parse("create_user", "Create a user\n", Hint{Request: "CreateUserRequest"})
		require.NoError(t, err)
		require.NotNil(t, doc.RequestBody)
		assert.Equal(t, "CreateUserRequest", doc.RequestBody.Schema)
		assert.Equal(t, "application/json", doc.RequestBody.MediaType)
		assert.True(t, doc.RequestBody.Required)
	})

	t.Run("missing content type", func(t *testing.T) {
		text := "Create a user\n\n# Request Body\nJust some prose.\n"
		_, err := Parse("create_user", text, Hint{})
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr.Message, "Content-Type")
	})
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want string
		line int
	}{
		{
			name: "bad location token",
			text: "Sum\n\n# Parameters\n- id (body): nope\n",
			want: "unknown parameter location",
			line: 4,
		},
		{
			name: "malformed parameter entry",
			text: "Sum\n\n# Parameters\n- id the user id\n",
			want: "malformed parameter entry",
			line: 4,
		},
		{
			name: "duplicate status across forms",
			text: "Sum\n\n# Responses\n- 200: OK\n- 200:\n  description: Again\n  schema: User\n",
			want: "duplicate response status 200",
			line: 5,
		},
		{
			name: "elaborate block missing schema",
			text: "Sum\n\n# Responses\n- 404:\n  description: Not found\n",
			want: "missing a schema line",
			line: 4,
		},
		{
			name: "invalid status code",
			text: "Sum\n\n# Responses\n- 20x: weird\n",
			want: "invalid response status",
			line: 4,
		},
		{
			name: "unterminated section",
			text: "Sum\n\n# Responses\n",
			want: "unterminated section",
			line: 3,
		},
		{
			name: "detail outside elaborate block",
			text: "Sum\n\n# Responses\n- 200: OK\nschema: User\n",
			want: "outside an elaborate response block",
			line: 5,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("handler_under_test", tc.text, Hint{})
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "handler_under_test", perr.Handler)
			assert.Equal(t, tc.line, perr.Line)
			assert.Contains(t, perr.Message, tc.want)
			assert.Contains(t, perr.Error(), "handler_under_test")
		})
	}
}

func TestResponseSynthesis(t *testing.T) {
	t.Parallel()

	t.Run("no responses section yields exactly 200 400 500", func(t *testing.T) {
		doc, err := Parse("get_user", "Get a user\n", Hint{Success: "User", Error: "ApiError"})
		require.NoError(t, err)
		require.Len(t, doc.Responses, 3)

		byStatus := map[string]Response{}
		for _, r := range doc.Responses {
			byStatus[r.Status] = r
		}
		assert.Equal(t, "User", byStatus["200"].Schema)
		assert.Equal(t, "ApiError", byStatus["400"].Schema)
		assert.Equal(t, "ApiError", byStatus["500"].Schema)
	})

	t.Run("explicit 404 adds a slot without touching 200", func(t *testing.T) {
		text := "Get a user\n\n# Responses\n- 404: User not found\n"
		doc, err := Parse("get_user", text, Hint{Success: "User", Error: "ApiError"})
		require.NoError(t, err)
		require.Len(t, doc.Responses, 4)

		byStatus := map[string]Response{}
		for _, r := range doc.Responses {
			byStatus[r.Status] = r
		}
		assert.Equal(t, "User", byStatus["200"].Schema)
		assert.Equal(t, "Successful response", byStatus["200"].Description)
		// The terse 404 inherits the declared error schema.
		assert.Equal(t, "ApiError", byStatus["404"].Schema)
		assert.Equal(t, "User not found", byStatus["404"].Description)
	})

	t.Run("explicit 200 overrides only its own slot", func(t *testing.T) {
		text := "Get a user\n\n# Responses\n- 200:\n  description: A fresh user\n  content:\n  application/json:\n  schema: UserV2\n"
		doc, err := Parse("get_user", text, Hint{Success: "User", Error: "ApiError"})
		require.NoError(t, err)

		byStatus := map[string]Response{}
		for _, r := range doc.Responses {
			byStatus[r.Status] = r
		}
		assert.Equal(t, "UserV2", byStatus["200"].Schema)
		assert.Equal(t, "ApiError", byStatus["400"].Schema)
		assert.Equal(t, "ApiError", byStatus["500"].Schema)
	})

	t.Run("no hint and no section yields bare 200", func(t *testing.T) {
		doc, err := Parse("ping", "Ping\n", Hint{})
		require.NoError(t, err)
		require.Len(t, doc.Responses, 1)
		assert.Equal(t, Response{Status: "200", Description: "Successful response"}, doc.Responses[0])
	})

	t.Run("terse success responses stay schema-free", func(t *testing.T) {
		text := "Delete a user\n\n# Responses\n- 204: Deleted\n"
		doc, err := Parse("delete_user", text, Hint{Error: "ApiError"})
		require.NoError(t, err)

		byStatus := map[string]Response{}
		for _, r := range doc.Responses {
			byStatus[r.Status] = r
		}
		assert.Empty(t, byStatus["204"].Schema)
		assert.Equal(t, "ApiError", byStatus["400"].Schema)
	})
}

func TestRenderParseIdempotent(t *testing.T) {
	t.Parallel()

	texts := map[string]struct {
		text string
		hint Hint
	}{
		"full document":  {getUserDoc, Hint{}},
		"with synthesis": {"Get a user\n\n# Responses\n- 404: Gone\n", Hint{Success: "User", Error: "ApiError"}},
		"request body":   {"Create\n\n# Request Body\nContent-Type: application/json\nPayload.\n", Hint{Request: "CreateUserRequest"}},
		"bare summary":   {"Ping\n", Hint{}},
	}

	for name, tc := range texts {
		t.Run(name, func(t *testing.T) {
			first, err := Parse("h", tc.text, tc.hint)
			require.NoError(t, err)

			rendered := Render(first)
			second, err := Parse("h", rendered, tc.hint)
			require.NoError(t, err, "canonical text must re-parse:\n%s", rendered)
			assert.Equal(t, first, second)
		})
	}
}

func TestRenderShape(t *testing.T) {
	t.Parallel()

	doc, err := Parse("get_user", getUserDoc, Hint{})
	require.NoError(t, err)
	rendered := Render(doc)

	assert.True(t, strings.HasPrefix(rendered, "Get a user by ID\n"))
	assert.Contains(t, rendered, "# Parameters\n- id (path): The unique user identifier")
	assert.Contains(t, rendered, "- 404: User not found")
	assert.Contains(t, rendered, "schema: User")
}
