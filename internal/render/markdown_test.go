package render

import (
	"strings"
	"testing"

	genspec "github.com/devextools/apidocgen/internal/spec"
)

func sampleModel() *genspec.DocModel {
	return &genspec.DocModel{
		Title:       "Petstore",
		Version:     "1.0.0",
		Description: "Demo store",
		Servers:     []genspec.Server{{URL: "https://api.example.com/v1"}},
		Tags:        []string{"pets"},
		Endpoints: []genspec.Endpoint{
			{
				ID:      "get /pets/{petId}",
				Method:  genspec.GET,
				Path:    "/pets/{petId}",
				Summary: "Fetch one pet",
				Tags:    []string{"pets"},
				Parameters: []genspec.Parameter{
					{Name: "petId", In: "path", Required: true, TypeLabel: "integer", Example: 7},
					{Name: "verbose", In: "query", Required: true, TypeLabel: "boolean", Example: true},
				},
				Security: []genspec.SecurityModel{{
					Name:       "bearerAuth",
					Kind:       "bearer",
					Label:      "Bearer token (Authorization header)",
					CurlHeader: "Authorization: Bearer <token>",
				}},
				Responses: []genspec.Response{{
					Status:      "200",
					Description: "ok",
					Content: []genspec.Media{{
						Mime:    "application/json",
						Example: map[string]any{"id": 7, "name": "name"},
					}},
				}},
			},
			{
				ID:     "post /pets",
				Method: genspec.POST,
				Path:   "/pets",
				Tags:   []string{"pets"},
				RequestBody: &genspec.RequestBody{
					Required: true,
					Content: []genspec.Media{{
						Mime:    "application/json",
						Example: map[string]any{"name": "o'malley"},
					}},
				},
				Responses: []genspec.Response{{Status: "201", Description: "created"}},
			},
		},
	}
}

func TestMarkdown_Structure(t *testing.T) {
	t.Parallel()
	out := Markdown(sampleModel(), DefaultOptions())

	for _, want := range []string{
		"# Petstore API Docs\n",
		"## Overview\n",
		"- Version: 1.0.0\n",
		"- Base URL: https://api.example.com/v1\n",
		"Demo store\n",
		"## pets\n",
		"### `GET /pets/{petId}`\n",
		"#### Security\n",
		"- Bearer token (Authorization header)\n",
		"#### Parameters\n",
		"| Name | In | Required | Type | Description |\n",
		"| petId | path | true | integer |  |\n",
		"#### curl\n",
		"```sh\n",
		"#### Responses\n",
		"- **200**: ok\n",
		"```json\n",
		"### `POST /pets`\n",
		"#### Request Body\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q\n%s", want, out)
		}
	}

	if !strings.HasSuffix(out, "\n") || strings.HasSuffix(out, "\n\n") {
		t.Fatalf("output must end with exactly one newline")
	}
}

func TestMarkdown_Deterministic(t *testing.T) {
	t.Parallel()
	a := Markdown(sampleModel(), DefaultOptions())
	b := Markdown(sampleModel(), DefaultOptions())
	if a != b {
		t.Fatalf("repeated renders differ")
	}
}

func TestMarkdown_UnavailableMarker(t *testing.T) {
	t.Parallel()
	m := sampleModel()
	m.Endpoints[0].Responses[0].Content[0] = genspec.Media{
		Mime:       "application/json",
		ExampleErr: `unresolvable reference "#/components/schemas/Missing"`,
	}
	out := Markdown(m, DefaultOptions())
	if !strings.Contains(out, unavailableMarker) {
		t.Fatalf("missing unavailable marker:\n%s", out)
	}
	if strings.Contains(out, "Missing") {
		t.Fatalf("failure details must not leak into the document")
	}
}

func TestMarkdown_SkipsMediaWithoutExample(t *testing.T) {
	t.Parallel()
	m := sampleModel()
	m.Endpoints[0].Responses[0].Content[0] = genspec.Media{Mime: "application/json"}
	out := Markdown(m, DefaultOptions())

	// Scope to the GET endpoint; the POST endpoint's request body still
	// legitimately renders its own example block.
	get := out[strings.Index(out, "### `GET"):strings.Index(out, "### `POST")]
	if strings.Contains(get, "Example (application/json)") {
		t.Fatalf("media without example must render no example block:\n%s", get)
	}
	if !strings.Contains(get, "- **200**: ok") {
		t.Fatalf("response bullet must survive without an example:\n%s", get)
	}
}

func TestMarkdown_OptionToggles(t *testing.T) {
	t.Parallel()

	out := Markdown(sampleModel(), Options{IncludeExamples: false, IncludeCurl: true})
	if strings.Contains(out, "```json") {
		t.Fatalf("examples disabled but rendered:\n%s", out)
	}
	if strings.Contains(out, "#### Request Body") {
		t.Fatalf("request body section must vanish with examples disabled:\n%s", out)
	}
	if !strings.Contains(out, "#### curl") {
		t.Fatalf("curl section missing")
	}

	out = Markdown(sampleModel(), Options{IncludeExamples: true, IncludeCurl: false})
	if strings.Contains(out, "#### curl") {
		t.Fatalf("curl disabled but rendered:\n%s", out)
	}
	if !strings.Contains(out, "```json") {
		t.Fatalf("example blocks missing")
	}
}

func TestMarkdown_RequestBodyWithoutExamples(t *testing.T) {
	t.Parallel()
	m := sampleModel()
	m.Endpoints[1].RequestBody.Content = []genspec.Media{{Mime: "application/json"}}
	out := Markdown(m, DefaultOptions())
	if strings.Contains(out, "#### Request Body") {
		t.Fatalf("empty request body section must get no heading:\n%s", out)
	}

	// A failed example still warrants the section, via the marker.
	m = sampleModel()
	m.Endpoints[1].RequestBody.Content = []genspec.Media{{Mime: "application/json", ExampleErr: "boom"}}
	out = Markdown(m, DefaultOptions())
	if !strings.Contains(out, "#### Request Body") || !strings.Contains(out, unavailableMarker) {
		t.Fatalf("degraded request body must keep its section and marker:\n%s", out)
	}
}

func TestMarkdown_Fallbacks(t *testing.T) {
	t.Parallel()
	m := &genspec.DocModel{
		Endpoints: []genspec.Endpoint{{
			ID:     "get /ping",
			Method: genspec.GET,
			Path:   "/ping",
		}},
	}
	out := Markdown(m, DefaultOptions())
	if !strings.Contains(out, "# API API Docs") {
		t.Fatalf("missing fallback title:\n%s", out)
	}
	if !strings.Contains(out, "- Version: unknown") {
		t.Fatalf("missing fallback version:\n%s", out)
	}
	if !strings.Contains(out, "## Endpoints") {
		t.Fatalf("untagged model must render a flat section:\n%s", out)
	}
}

func TestMarkdown_TableCellEscaping(t *testing.T) {
	t.Parallel()
	m := sampleModel()
	m.Endpoints[0].Parameters[0].Description = "line\nbreak | pipe"
	out := Markdown(m, DefaultOptions())
	if !strings.Contains(out, "| petId | path | true | integer | line break \\| pipe |") {
		t.Fatalf("description not flattened for the table:\n%s", out)
	}
}

func TestCurlSnippet_Get(t *testing.T) {
	t.Parallel()
	m := sampleModel()
	got := curlSnippet("https://api.example.com/v1/", &m.Endpoints[0])
	want := "curl 'https://api.example.com/v1/pets/7?verbose=true' \\\n" +
		"  -H 'Authorization: Bearer <token>'"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestCurlSnippet_PostBody(t *testing.T) {
	t.Parallel()
	m := sampleModel()
	got := curlSnippet("", &m.Endpoints[1])
	want := "curl -X POST 'http://localhost/pets' \\\n" +
		"  -H 'Content-Type: application/json' \\\n" +
		`  -d '{"name":"o'\''malley"}'`
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestCurlSnippet_SecurityQueryAndMissingPathExample(t *testing.T) {
	t.Parallel()
	ep := &genspec.Endpoint{
		Method: genspec.DELETE,
		Path:   "/items/{id}",
		Parameters: []genspec.Parameter{
			{Name: "id", In: "path", Required: true},
		},
		Security: []genspec.SecurityModel{{
			Name:      "keyAuth",
			Kind:      "apiKey",
			CurlQuery: "api_key=<api-key>",
		}},
	}
	got := curlSnippet("http://localhost", ep)
	want := "curl -X DELETE 'http://localhost/items/{id}?api_key=<api-key>'"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}
