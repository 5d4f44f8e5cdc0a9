package routes_test

import (
	"strings"
	"testing"

	"github.com/fivetwenty-io/octokit/pkg/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSpec = `
repos:
  - id: get
    name: Get
    method: GET
    url: /repos/{owner}/{repo}
    description: Get a repository.
    documentation_url: https://developer.github.com/v3/repos/#get
    parameters:
      - name: owner
        in: path
        required: true
        schema:
          type: string
      - name: repo
        in: path
        required: true
        schema:
          type: string
  - id: listForOrg
    name: List organization repositories
    method: GET
    url: /orgs/{org}/repos
    aliases: [list_org_repos]
    parameters:
      - name: org
        in: path
        required: true
      - name: type
        in: query
        type: string
        enum: [all, public]
        default: all
issues:
  - id: create
    name: Create an issue
    method: POST
    url: /repos/{owner}/{repo}/issues
    parameters:
      - name: owner
        in: path
        required: true
    requestBody:
      content:
        application/json:
          schema:
            type: object
            required: [title]
            properties:
              title:
                type: string
              locked:
                type: boolean
                default: "false"
`

func TestLoad(t *testing.T) {
	t.Parallel()

	spec, err := routes.Load(strings.NewReader(sampleSpec))
	require.NoError(t, err)

	assert.Equal(t, []string{"issues", "repos"}, spec.Groups())
	require.Len(t, spec["repos"], 2)
	assert.Equal(t, "GET", spec["repos"][0].Method)
	assert.Equal(t, "Get a repository.\n\nhttps://developer.github.com/v3/repos/#get", spec["repos"][0].Doc())
}

func TestLoad_InvalidDocument(t *testing.T) {
	t.Parallel()

	_, err := routes.Load(strings.NewReader("repos: [: bad"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode route specification")
}

func TestSpecification_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    routes.Specification
		wantErr error
	}{
		{
			name:    "empty",
			spec:    routes.Specification{},
			wantErr: routes.ErrEmptySpecification,
		},
		{
			name: "duplicate id",
			spec: routes.Specification{"repos": {
				{ID: "get", Method: "GET", URL: "/a"},
				{ID: "get", Method: "GET", URL: "/b"},
			}},
			wantErr: routes.ErrDuplicateOperation,
		},
		{
			name:    "missing method",
			spec:    routes.Specification{"repos": {{ID: "get", URL: "/a"}}},
			wantErr: routes.ErrMissingMethod,
		},
		{
			name:    "missing url",
			spec:    routes.Specification{"repos": {{ID: "get", Method: "GET"}}},
			wantErr: routes.ErrMissingURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.spec.Validate()
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOperation_ParameterMap(t *testing.T) {
	t.Parallel()

	spec, err := routes.Load(strings.NewReader(sampleSpec))
	require.NoError(t, err)

	op, ok := spec.Find("issues", "create")
	require.True(t, ok)

	params := op.ParameterMap()
	require.Contains(t, params, "owner")
	require.Contains(t, params, "title")
	require.Contains(t, params, "locked")

	assert.Equal(t, routes.InPath, params["owner"].In)
	assert.Equal(t, routes.InBody, params["title"].In)
	assert.True(t, params["title"].Required)
	assert.False(t, params["locked"].Required)
	assert.Equal(t, "boolean", params["locked"].SchemaType())
	assert.Equal(t, "false", params["locked"].DefaultValue())
}

func TestOperation_PathParameters(t *testing.T) {
	t.Parallel()

	op := &routes.Operation{URL: "/repos/{owner}/{repo}/issues/{issue_number}"}
	assert.Equal(t, []string{"owner", "repo", "issue_number"}, op.PathParameters())
}

func TestParameter_Accessors(t *testing.T) {
	t.Parallel()

	top := &routes.Parameter{Type: "string", Enum: []any{"a"}, Default: "a"}
	assert.Equal(t, "string", top.SchemaType())
	assert.Equal(t, []any{"a"}, top.EnumValues())
	assert.Equal(t, "a", top.DefaultValue())

	nested := &routes.Parameter{
		Type:   "string",
		Schema: &routes.Schema{Type: "integer", Enum: []any{1, 2}, Default: 1},
	}
	assert.Equal(t, "integer", nested.SchemaType())
	assert.Equal(t, []any{1, 2}, nested.EnumValues())
	assert.Equal(t, 1, nested.DefaultValue())
}

func TestSpecification_Find(t *testing.T) {
	t.Parallel()

	spec, err := routes.Load(strings.NewReader(sampleSpec))
	require.NoError(t, err)

	for _, key := range []string{"listForOrg", "list_for_org", "list_organization_repositories", "list_org_repos"} {
		op, ok := spec.Find("repos", key)
		require.True(t, ok, key)
		assert.Equal(t, "listForOrg", op.ID)
	}

	_, ok := spec.Find("repos", "missing")
	assert.False(t, ok)
}

func TestSpecification_Index(t *testing.T) {
	t.Parallel()

	spec, err := routes.Load(strings.NewReader(sampleSpec))
	require.NoError(t, err)

	index := spec.Index()

	for _, key := range []string{"listForOrg", "list_for_org", "list_organization_repositories", "list_org_repos"} {
		op, ok := index.Find("repos", key)
		require.True(t, ok, key)

		want, _ := spec.Find("repos", key)
		assert.Same(t, want, op)
	}

	_, ok := index.Find("repos", "missing")
	assert.False(t, ok)

	_, ok = index.Find("missing", "list_for_org")
	assert.False(t, ok)
}

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()

	catalog, err := routes.DefaultCatalog()
	require.NoError(t, err)
	assert.Equal(t, []string{"api.github.com", "ghe-2.18"}, catalog.IDs())

	public, err := catalog.Lookup("api.github.com")
	require.NoError(t, err)

	create, ok := public.Find("issues", "create")
	require.True(t, ok)
	assert.Contains(t, create.Doc(), "/developer.github.com")

	enterprise, err := catalog.Lookup("ghe-2.18")
	require.NoError(t, err)

	create, ok = enterprise.Find("issues", "create")
	require.True(t, ok)
	assert.Contains(t, create.Doc(), "/enterprise/2.18")

	_, err = catalog.Lookup("ghe-1.0")
	require.ErrorIs(t, err, routes.ErrUnknownRouteSet)
}

func TestLoadCatalog(t *testing.T) {
	t.Parallel()

	doc := `{"custom": {"meta": [{"id": "get", "name": "Meta", "method": "GET", "url": "/meta"}]}}`

	catalog, err := routes.LoadCatalog(strings.NewReader(doc))
	require.NoError(t, err)

	spec, err := catalog.Lookup("custom")
	require.NoError(t, err)
	assert.Len(t, spec["meta"], 1)
}

func TestSnakeCase(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"listForRepo":                         "list_for_repo",
		"List for repo":                       "list_for_repo",
		"Create a check run":                  "create_a_check_run",
		"getByID":                             "get_by_id",
		"get-by-username":                     "get_by_username",
		"Merge a pull request (Merge Button)": "merge_a_pull_request_merge_button",
		"create":                              "create",
		"HTMLURL":                             "htmlurl",
		"":                                    "",
	}

	for in, want := range tests {
		assert.Equal(t, want, routes.SnakeCase(in), in)
	}
}
