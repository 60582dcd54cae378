package spec

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const componentSchemaPrefix = "#/components/schemas/"

// generator owns all state for one generation pass: the loaded document and
// the set of references on the current resolution path. It is created fresh
// per BuildDocModel call and discarded afterwards, so repeated runs never
// observe each other's state.
type generator struct {
	doc *openapi3.T
	// active tracks the $ref identifiers currently being resolved.
	// Re-entering one of them means the schema is self-referential; the
	// resolver stops there and substitutes a placeholder node.
	active map[string]struct{}
}

func newGenerator(doc *openapi3.T) *generator {
	return &generator{doc: doc, active: make(map[string]struct{})}
}

// recursivePlaceholder is the sentinel node substituted at a cycle point.
// It synthesizes to an empty object.
func recursivePlaceholder() *Schema {
	return &Schema{Type: "object"}
}

// resolve follows a reference to its concrete schema node. The returned
// release callback, when non-nil, must be held until synthesis of the
// resolved subtree finishes so the cycle guard covers the whole path.
func (g *generator) resolve(sor *SchemaOrRef) (*Schema, func(), error) {
	if sor == nil {
		return nil, nil, &SchemaError{Reason: "entry is not a schema or reference"}
	}
	if sor.Ref != nil {
		return g.resolveRef(sor.Ref.Ref)
	}
	if sor.Schema == nil {
		return nil, nil, &SchemaError{Reason: "empty schema node"}
	}
	return sor.Schema, nil, nil
}

func (g *generator) resolveRef(ref string) (*Schema, func(), error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil, &SchemaError{Reason: "empty $ref"}
	}
	if _, seen := g.active[ref]; seen {
		return recursivePlaceholder(), nil, nil
	}
	name := strings.TrimPrefix(ref, componentSchemaPrefix)
	if name == ref || strings.Contains(name, "/") {
		// Only local component schema pointers are supported; anything
		// else (external documents, nested pointers) is out of scope.
		return nil, nil, &ReferenceError{Ref: ref}
	}
	if g.doc == nil || g.doc.Components == nil {
		return nil, nil, &ReferenceError{Ref: ref}
	}
	target, ok := g.doc.Components.Schemas[name]
	if !ok || target == nil {
		return nil, nil, &ReferenceError{Ref: ref}
	}

	g.active[ref] = struct{}{}
	release := func() { delete(g.active, ref) }

	converted := fromSchemaRef(target)
	if converted == nil {
		release()
		return nil, nil, &ReferenceError{Ref: ref}
	}
	if converted.Ref != nil {
		// Component entry is itself an alias; keep following while the
		// current ref stays on the path.
		inner, innerRelease, err := g.resolve(converted)
		if err != nil {
			release()
			return nil, nil, err
		}
		combined := func() {
			if innerRelease != nil {
				innerRelease()
			}
			release()
		}
		return inner, combined, nil
	}
	s := converted.Schema
	if s.Name == "" {
		s.Name = name
	}
	return s, release, nil
}

// fromSchemaRef converts a kin-openapi schema node into the internal form.
// Reference nodes are kept as references and resolved lazily, which keeps
// the conversion finite for self-referential components.
func fromSchemaRef(ref *openapi3.SchemaRef) *SchemaOrRef {
	if ref == nil {
		return nil
	}
	if ref.Ref != "" {
		return &SchemaOrRef{Ref: &SchemaRef{Ref: ref.Ref}}
	}
	if ref.Value == nil {
		return nil
	}
	v := ref.Value
	s := &Schema{
		Type:        strings.TrimSpace(v.Type),
		Format:      strings.TrimSpace(v.Format),
		Description: strings.TrimSpace(v.Description),
		Example:     v.Example,
		Default:     v.Default,
		Min:         v.Min,
		Max:         v.Max,
		Nullable:    v.Nullable,
		Required:    append([]string(nil), v.Required...),
	}
	if len(v.Enum) > 0 {
		s.Enum = append([]any(nil), v.Enum...)
	}
	if v.Items != nil {
		s.Items = fromSchemaRef(v.Items)
	}
	if v.AdditionalProperties.Schema != nil {
		s.AdditionalProperties = fromSchemaRef(v.AdditionalProperties.Schema)
	}
	if len(v.Properties) > 0 {
		s.Properties = make(map[string]*SchemaOrRef, len(v.Properties))
		for name, p := range v.Properties {
			s.Properties[name] = fromSchemaRef(p)
		}
	}
	for _, r := range v.AllOf {
		s.AllOf = append(s.AllOf, fromSchemaRef(r))
	}
	for _, r := range v.AnyOf {
		s.AnyOf = append(s.AnyOf, fromSchemaRef(r))
	}
	for _, r := range v.OneOf {
		s.OneOf = append(s.OneOf, fromSchemaRef(r))
	}
	return &SchemaOrRef{Schema: s}
}

// sortedPropertyNames returns property names in key order. The parsed
// document stores properties as a map, so declaration order is not
// observable; sorted keys keep output identical across runs.
func sortedPropertyNames(props map[string]*SchemaOrRef) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
