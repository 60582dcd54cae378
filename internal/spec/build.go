package spec

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// BuildOption configures how the DocModel is built from an OpenAPI doc.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[HttpMethod]struct{}
	pathRes     []*regexp.Regexp
}

// WithIncludeTags keeps only endpoints that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		if len(tags) == 0 {
			return
		}
		if c.includeTags == nil {
			c.includeTags = make(map[string]struct{}, len(tags))
		}
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			c.includeTags[t] = struct{}{}
		}
	}
}

// WithExcludeTags removes endpoints that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		if len(tags) == 0 {
			return
		}
		if c.excludeTags == nil {
			c.excludeTags = make(map[string]struct{}, len(tags))
		}
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			c.excludeTags[t] = struct{}{}
		}
	}
}

// WithMethods keeps only endpoints using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) BuildOption {
	return func(c *buildConfig) {
		if len(methods) == 0 {
			return
		}
		if c.methods == nil {
			c.methods = make(map[HttpMethod]struct{}, len(methods))
		}
		for _, m := range methods {
			c.methods[m] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only endpoints whose path matches at least one of
// the provided regular expressions.
func WithPathPatterns(patterns []string) BuildOption {
	return func(c *buildConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				// Invalid patterns become a sentinel that never
				// matches rather than aborting the build.
				re = regexp.MustCompile("a^$")
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

// BuildDocModel converts an OpenAPI v3 document into the document model,
// attaching a synthesized example to every request/response media type. A
// malformed individual schema degrades to a marked placeholder for that
// media type; only a document without any paths is fatal.
func BuildDocModel(ctx context.Context, doc *openapi3.T, opts ...BuildOption) (*DocModel, error) {
	_ = ctx
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}
	if len(doc.Paths) == 0 {
		return nil, fmt.Errorf("document has no paths")
	}

	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	m := &DocModel{}
	if doc.Info != nil {
		m.Title = safeStr(doc.Info.Title)
		m.Version = safeStr(doc.Info.Version)
		m.Description = safeStr(doc.Info.Description)
	}
	for _, s := range doc.Servers {
		if s == nil {
			continue
		}
		m.Servers = append(m.Servers, Server{URL: safeStr(s.URL), Description: safeStr(s.Description)})
	}

	// The generation pass owns its resolver state; nothing survives the call.
	g := newGenerator(doc)

	// The parsed document stores paths as a map, so declaration order is
	// gone; sorted paths keep output stable across runs.
	pathKeys := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	for _, p := range pathKeys {
		item := doc.Paths[p]
		if item == nil {
			continue
		}
		// Path-item parameters apply to every operation unless an
		// operation redeclares the same (name, location) pair.
		baseParams := make(map[string]*openapi3.Parameter)
		for _, pref := range item.Parameters {
			if pref == nil || pref.Value == nil {
				continue
			}
			baseParams[paramKey(pref.Value.In, pref.Value.Name)] = pref.Value
		}

		for _, method := range methodOrder {
			op := operationFor(item, method)
			if op == nil {
				continue
			}
			if len(cfg.methods) > 0 {
				if _, ok := cfg.methods[method]; !ok {
					continue
				}
			}
			if len(cfg.pathRes) > 0 {
				matched := false
				for _, re := range cfg.pathRes {
					if re.MatchString(p) {
						matched = true
						break
					}
				}
				if !matched {
					continue
				}
			}

			tags := make([]string, 0, len(op.Tags))
			for _, t := range op.Tags {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
			if !allowByTags(tags, cfg) {
				continue
			}

			merged := make(map[string]*openapi3.Parameter, len(baseParams))
			for k, v := range baseParams {
				merged[k] = v
			}
			for _, pref := range op.Parameters {
				if pref == nil || pref.Value == nil {
					continue
				}
				merged[paramKey(pref.Value.In, pref.Value.Name)] = pref.Value
			}
			params := make([]Parameter, 0, len(merged))
			for _, v := range merged {
				params = append(params, buildParameter(g, v))
			}
			sort.Slice(params, func(i, j int) bool {
				if params[i].In == params[j].In {
					return params[i].Name < params[j].Name
				}
				return params[i].In < params[j].In
			})

			var rb *RequestBody
			if op.RequestBody != nil && op.RequestBody.Value != nil {
				rb = &RequestBody{
					Required: op.RequestBody.Value.Required,
					Content:  buildMediaList(g, op.RequestBody.Value.Content),
				}
			}

			var responses []Response
			if op.Responses != nil {
				codes := make([]string, 0, len(op.Responses))
				for code := range op.Responses {
					codes = append(codes, code)
				}
				sort.Strings(codes)
				for _, code := range codes {
					rref := op.Responses[code]
					if rref == nil || rref.Value == nil {
						continue
					}
					desc := ""
					if rref.Value.Description != nil {
						desc = *rref.Value.Description
					}
					responses = append(responses, Response{
						Status:      code,
						Description: desc,
						Content:     buildMediaList(g, rref.Value.Content),
					})
				}
			}

			m.Endpoints = append(m.Endpoints, Endpoint{
				ID:          string(method) + " " + p,
				Method:      method,
				Path:        p,
				Summary:     safeStr(op.Summary),
				Description: safeStr(op.Description),
				Tags:        tags,
				Parameters:  params,
				RequestBody: rb,
				Responses:   responses,
				Security:    resolveSecurity(doc, op),
			})
		}
	}

	m.Tags = tagOrder(doc, m.Endpoints)

	return m, nil
}

func operationFor(item *openapi3.PathItem, method HttpMethod) *openapi3.Operation {
	switch method {
	case GET:
		return item.Get
	case POST:
		return item.Post
	case PUT:
		return item.Put
	case PATCH:
		return item.Patch
	case DELETE:
		return item.Delete
	case OPTIONS:
		return item.Options
	case HEAD:
		return item.Head
	case TRACE:
		return item.Trace
	default:
		return nil
	}
}

func allowByTags(tags []string, cfg *buildConfig) bool {
	if len(cfg.includeTags) > 0 {
		ok := false
		for _, t := range tags {
			if _, yes := cfg.includeTags[t]; yes {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(cfg.excludeTags) > 0 {
		for _, t := range tags {
			if _, blocked := cfg.excludeTags[t]; blocked {
				return false
			}
		}
	}
	return true
}

func paramKey(in, name string) string { return in + ":" + name }

func safeStr(s string) string { return strings.TrimSpace(s) }

func buildParameter(g *generator, p *openapi3.Parameter) Parameter {
	pm := Parameter{
		Name:        safeStr(p.Name),
		In:          safeStr(p.In),
		Required:    p.Required,
		Description: safeStr(p.Description),
	}
	if p.Schema != nil {
		sor := fromSchemaRef(p.Schema)
		pm.TypeLabel = typeLabel(sor)
		// Parameter examples are best effort; a broken schema leaves
		// the cell empty instead of failing the endpoint.
		if ex, err := g.example(sor, pm.Name); err == nil {
			pm.Example = ex
		}
	}
	return pm
}

// buildMediaList attaches one example per content type, preferring declared
// examples over synthesis. Generation failures are recorded on the media
// entry and never abort the document.
func buildMediaList(g *generator, content openapi3.Content) []Media {
	if len(content) == 0 {
		return nil
	}
	mimes := make([]string, 0, len(content))
	for mime := range content {
		mimes = append(mimes, mime)
	}
	sort.Strings(mimes)

	out := make([]Media, 0, len(mimes))
	for _, mime := range mimes {
		mt := content[mime]
		if mt == nil {
			continue
		}
		media := Media{Mime: mime}
		switch {
		case mt.Example != nil:
			media.Example = mt.Example
		case len(mt.Examples) > 0:
			// Deterministically pick the first named example.
			names := make([]string, 0, len(mt.Examples))
			for name := range mt.Examples {
				names = append(names, name)
			}
			sort.Strings(names)
			if ref := mt.Examples[names[0]]; ref != nil && ref.Value != nil {
				media.Example = ref.Value.Value
			}
		case mt.Schema != nil:
			ex, err := g.example(fromSchemaRef(mt.Schema), "")
			if err != nil {
				media.ExampleErr = err.Error()
			} else {
				media.Example = ex
			}
		}
		out = append(out, media)
	}
	return out
}

// typeLabel renders the parameter-table type column: the referenced
// component name for $ref schemas, otherwise the declared type.
func typeLabel(sor *SchemaOrRef) string {
	if sor == nil {
		return ""
	}
	if sor.Ref != nil {
		parts := strings.Split(sor.Ref.Ref, "/")
		return parts[len(parts)-1]
	}
	s := sor.Schema
	if s == nil {
		return ""
	}
	if s.Type == "array" && s.Items != nil {
		return "array of " + typeLabel(s.Items)
	}
	if s.Type == "" && len(s.Properties) > 0 {
		return "object"
	}
	return s.Type
}

// tagOrder computes render order: document-declared tags first, then
// undeclared tags as endpoints introduce them, then the untagged bucket.
func tagOrder(doc *openapi3.T, endpoints []Endpoint) []string {
	var order []string
	seen := make(map[string]struct{})
	for _, t := range doc.Tags {
		if t == nil {
			continue
		}
		name := safeStr(t.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		order = append(order, name)
	}
	untagged := false
	for _, ep := range endpoints {
		if len(ep.Tags) == 0 {
			untagged = true
			continue
		}
		for _, t := range ep.Tags {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			order = append(order, t)
		}
	}
	if untagged {
		order = append(order, UntaggedGroup)
	}
	return order
}
