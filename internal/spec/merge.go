package spec

// Composition merging: allOf is merged structurally, oneOf/anyOf select the
// first declared branch. Normalization yields a node free of $ref and
// composition keywords so the synthesizer never branches on them.

// normalize reduces a resolved node to a direct description. The returned
// release callback (possibly nil) must be held until synthesis of the node
// finishes: branches resolved here stay on the resolution path so cyclic
// compositions terminate with a placeholder instead of recursing.
func (g *generator) normalize(s *Schema) (*Schema, func(), error) {
	if s == nil {
		return nil, nil, &SchemaError{Reason: "empty schema node"}
	}

	var releases []func()
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	switch {
	case len(s.AllOf) > 0:
		// The direct description acts as the implicit first branch, so
		// its properties win every collision.
		out := directCopy(s)
		for _, branch := range s.AllOf {
			bn, release, err := g.resolveAndNormalize(branch)
			if release != nil {
				releases = append(releases, release)
			}
			if err != nil {
				releaseAll()
				return nil, nil, err
			}
			mergeInto(out, bn)
		}
		return out, releaseAll, nil

	case len(s.OneOf) > 0 || len(s.AnyOf) > 0:
		branches := s.OneOf
		if len(branches) == 0 {
			branches = s.AnyOf
		}
		// One concrete value has to be produced, so the first declared
		// branch is taken every time; output stays reproducible.
		bn, release, err := g.resolveAndNormalize(branches[0])
		if release != nil {
			releases = append(releases, release)
		}
		if err != nil {
			releaseAll()
			return nil, nil, err
		}
		out := directCopy(bn)
		overlayLiterals(out, s)
		return out, releaseAll, nil

	default:
		return s, nil, nil
	}
}

func (g *generator) resolveAndNormalize(sor *SchemaOrRef) (*Schema, func(), error) {
	var releases []func()
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	resolved, release, err := g.resolve(sor)
	if release != nil {
		releases = append(releases, release)
	}
	if err != nil {
		releaseAll()
		return nil, nil, err
	}
	normalized, nrelease, err := g.normalize(resolved)
	if nrelease != nil {
		releases = append(releases, nrelease)
	}
	if err != nil {
		releaseAll()
		return nil, nil, err
	}
	return normalized, releaseAll, nil
}

// directCopy copies the direct description of a node, dropping composition
// keywords. Property maps are copied shallowly so merging never mutates the
// source node.
func directCopy(s *Schema) *Schema {
	out := &Schema{
		Name:                 s.Name,
		Type:                 s.Type,
		Format:               s.Format,
		Description:          s.Description,
		Items:                s.Items,
		AdditionalProperties: s.AdditionalProperties,
		Example:              s.Example,
		Default:              s.Default,
		Min:                  s.Min,
		Max:                  s.Max,
		Nullable:             s.Nullable,
		Required:             append([]string(nil), s.Required...),
	}
	if len(s.Enum) > 0 {
		out.Enum = append([]any(nil), s.Enum...)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*SchemaOrRef, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = p
		}
	}
	return out
}

// mergeInto folds one normalized allOf branch into the accumulating result.
// Earlier branches are conventionally the base type, so on a property-name
// collision the first definition wins; required names are unioned; the
// merged type is the first explicit type seen.
func mergeInto(dst, branch *Schema) {
	if len(branch.Properties) > 0 && dst.Properties == nil {
		dst.Properties = make(map[string]*SchemaOrRef, len(branch.Properties))
	}
	for name, p := range branch.Properties {
		if _, exists := dst.Properties[name]; exists {
			continue
		}
		dst.Properties[name] = p
	}
	dst.Required = unionNames(dst.Required, branch.Required)
	if dst.Type == "" {
		dst.Type = branch.Type
	}
	if dst.Format == "" {
		dst.Format = branch.Format
	}
	if dst.Items == nil {
		dst.Items = branch.Items
	}
	if dst.AdditionalProperties == nil {
		dst.AdditionalProperties = branch.AdditionalProperties
	}
	if len(dst.Enum) == 0 && len(branch.Enum) > 0 {
		dst.Enum = append([]any(nil), branch.Enum...)
	}
	if dst.Example == nil {
		dst.Example = branch.Example
	}
	if dst.Default == nil {
		dst.Default = branch.Default
	}
	if dst.Min == nil {
		dst.Min = branch.Min
	}
	if dst.Max == nil {
		dst.Max = branch.Max
	}
}

// overlayLiterals carries the outer node's literal overrides onto a selected
// oneOf/anyOf branch when the branch itself does not define them.
func overlayLiterals(dst, outer *Schema) {
	if outer.Example != nil && dst.Example == nil {
		dst.Example = outer.Example
	}
	if outer.Default != nil && dst.Default == nil {
		dst.Default = outer.Default
	}
	if len(outer.Enum) > 0 && len(dst.Enum) == 0 {
		dst.Enum = append([]any(nil), outer.Enum...)
	}
	if outer.Description != "" && dst.Description == "" {
		dst.Description = outer.Description
	}
}

// unionNames appends names from add that are not already present, keeping
// first-seen order.
func unionNames(base, add []string) []string {
	if len(add) == 0 {
		return base
	}
	seen := make(map[string]struct{}, len(base)+len(add))
	for _, n := range base {
		seen[n] = struct{}{}
	}
	for _, n := range add {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		base = append(base, n)
	}
	return base
}
