package spec

import "math"

// Example synthesis: one deterministic representative value per schema
// occurrence. Values are built fresh every time and never shared between
// endpoints.

// Canonical samples for recognized string formats. Fixed values keep
// repeated runs byte-identical.
const (
	sampleDate     = "2025-01-01"
	sampleDateTime = "2025-01-01T00:00:00Z"
	sampleEmail    = "user@example.com"
	sampleUUID     = "00000000-0000-0000-0000-000000000000"
	sampleString   = "string"

	// additionalPropsKey names the single representative entry emitted
	// for map-like objects declared via additionalProperties.
	additionalPropsKey = "additionalProp1"
)

// example resolves, normalizes, and synthesizes a value for one schema
// occurrence. hint is the owning property name, used for generic string
// placeholders; empty for root schemas.
func (g *generator) example(sor *SchemaOrRef, hint string) (any, error) {
	s, release, err := g.resolve(sor)
	if release != nil {
		defer release()
	}
	if err != nil {
		return nil, err
	}
	n, nrelease, err := g.normalize(s)
	if nrelease != nil {
		defer nrelease()
	}
	if err != nil {
		return nil, err
	}
	return g.valueFor(n, hint)
}

// valueFor synthesizes from a normalized node. Selection priority: literal
// override, first enum entry, then a type-directed default.
func (g *generator) valueFor(n *Schema, hint string) (any, error) {
	if n.Example != nil {
		return n.Example, nil
	}
	if n.Default != nil {
		return n.Default, nil
	}
	if len(n.Enum) > 0 {
		return n.Enum[0], nil
	}

	typ := n.Type
	if typ == "" && len(n.Properties) > 0 {
		typ = "object"
	}

	switch typ {
	case "string":
		return stringSample(n.Format, hint), nil
	case "integer":
		return integerDefault(n), nil
	case "number":
		return clampDefault(n), nil
	case "boolean":
		return true, nil
	case "object":
		return g.objectValue(n)
	case "array":
		if n.Items == nil {
			return []any{}, nil
		}
		item, err := g.example(n.Items, hint)
		if err != nil {
			return nil, err
		}
		return []any{item}, nil
	default:
		// "null", unknown, or absent type.
		return nil, nil
	}
}

func (g *generator) objectValue(n *Schema) (any, error) {
	if len(n.Properties) == 0 {
		if n.AdditionalProperties != nil {
			entry, err := g.example(n.AdditionalProperties, "")
			if err != nil {
				return nil, err
			}
			return map[string]any{additionalPropsKey: entry}, nil
		}
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(n.Properties))
	for _, name := range sortedPropertyNames(n.Properties) {
		value, err := g.example(n.Properties[name], name)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

func stringSample(format, hint string) string {
	switch format {
	case "date":
		return sampleDate
	case "date-time":
		return sampleDateTime
	case "email":
		return sampleEmail
	case "uuid":
		return sampleUUID
	}
	if hint != "" {
		return hint
	}
	return sampleString
}

// clampDefault returns the generic numeric default clamped into the schema's
// declared minimum/maximum range.
func clampDefault(n *Schema) float64 {
	v := 0.0
	if n.Min != nil && v < *n.Min {
		v = *n.Min
	}
	if n.Max != nil && v > *n.Max {
		v = *n.Max
	}
	return v
}

// integerDefault clamps like clampDefault but rounds toward the interior of
// the range, so a fractional bound never yields a value outside it.
func integerDefault(n *Schema) int {
	v := 0.0
	if n.Min != nil && v < *n.Min {
		v = math.Ceil(*n.Min)
	}
	if n.Max != nil && v > *n.Max {
		v = math.Floor(*n.Max)
	}
	return int(v)
}
