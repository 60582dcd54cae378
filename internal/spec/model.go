package spec

// Document model produced by the builder and consumed by the markdown renderer.

type HttpMethod string

const (
	GET     HttpMethod = "get"
	POST    HttpMethod = "post"
	PUT     HttpMethod = "put"
	PATCH   HttpMethod = "patch"
	DELETE  HttpMethod = "delete"
	OPTIONS HttpMethod = "options"
	HEAD    HttpMethod = "head"
	TRACE   HttpMethod = "trace"
)

// methodOrder is the canonical ordering applied to operations within a path
// item so output stays stable regardless of document ordering.
var methodOrder = []HttpMethod{GET, POST, PUT, PATCH, DELETE, OPTIONS, HEAD, TRACE}

// UntaggedGroup is the bucket name for endpoints without explicit tags.
// It always renders last.
const UntaggedGroup = "Other"

type DocModel struct {
	Title       string
	Version     string
	Description string
	Servers     []Server
	// Tags holds the render order for tag groups: document-declared tags
	// first, then undeclared tags in first-seen order, then UntaggedGroup
	// when any endpoint carries no tag.
	Tags      []string
	Endpoints []Endpoint
}

type Server struct {
	URL         string
	Description string
}

type Endpoint struct {
	ID          string // method+path
	Method      HttpMethod
	Path        string
	Summary     string
	Description string
	Tags        []string
	Parameters  []Parameter
	RequestBody *RequestBody
	Responses   []Response
	// Security holds the resolved effective security for the operation.
	// nil means the document declares no security at all; a single
	// NoAuth entry means the operation explicitly opted out.
	Security []SecurityModel
}

type Parameter struct {
	Name        string
	In          string // path|query|header|cookie
	Required    bool
	Description string
	// TypeLabel is the human label for the parameter schema: the declared
	// type, or the referenced component name for $ref schemas.
	TypeLabel string
	Example   any
}

type RequestBody struct {
	Required bool
	Content  []Media
}

type Response struct {
	Status      string // 200, 4xx, default
	Description string
	Content     []Media
}

// Media is one content-type entry with its synthesized (or declared) example.
type Media struct {
	Mime    string
	Example any
	// ExampleErr carries the reason example generation failed for this
	// media type. The renderer substitutes an "example unavailable"
	// marker; the rest of the document is unaffected.
	ExampleErr string
}

// SecurityModel is one resolved security scheme with a human label and the
// placeholder material the curl snippet uses.
type SecurityModel struct {
	Name       string // scheme name as declared under components
	Kind       string // bearer|basic|apiKey|oauth2|openIdConnect|mutualTLS|none
	Label      string
	CurlHeader string // e.g. "Authorization: Bearer <token>"
	CurlQuery  string // e.g. "api_key=<api-key>"
}

// NoAuth reports whether this entry marks an explicit security opt-out.
func (s SecurityModel) NoAuth() bool { return s.Kind == "none" }

// TagGroup is one rendered section of endpoints sharing a tag.
type TagGroup struct {
	Name      string
	Endpoints []*Endpoint
}

// TagGroups partitions the endpoints according to the model's tag order.
// An endpoint with several tags appears under each of them.
func (m *DocModel) TagGroups() []TagGroup {
	groups := make([]TagGroup, 0, len(m.Tags))
	for _, tag := range m.Tags {
		g := TagGroup{Name: tag}
		for i := range m.Endpoints {
			ep := &m.Endpoints[i]
			if tag == UntaggedGroup && len(ep.Tags) == 0 {
				g.Endpoints = append(g.Endpoints, ep)
				continue
			}
			for _, t := range ep.Tags {
				if t == tag {
					g.Endpoints = append(g.Endpoints, ep)
					break
				}
			}
		}
		if len(g.Endpoints) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// Schema is one JSON-Schema-like fragment lifted out of the OpenAPI document.
// A node carries either a direct description or composition keywords; the
// merger reduces composition to a direct description before synthesis.
type Schema struct {
	Name                 string
	Type                 string
	Format               string
	Description          string
	Properties           map[string]*SchemaOrRef
	Required             []string
	Items                *SchemaOrRef
	AdditionalProperties *SchemaOrRef
	Enum                 []any
	Example              any
	Default              any
	Min                  *float64
	Max                  *float64
	Nullable             bool
	AllOf                []*SchemaOrRef
	AnyOf                []*SchemaOrRef
	OneOf                []*SchemaOrRef
}

type SchemaRef struct{ Ref string }

// SchemaOrRef holds exactly one of a concrete schema or a reference into the
// document's component map. A reference is resolved before any other field
// of the node is inspected.
type SchemaOrRef struct {
	Schema *Schema
	Ref    *SchemaRef
}
