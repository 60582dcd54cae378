package spec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// noAuthModel marks an operation that explicitly opted out of the document's
// default security with `security: []`.
func noAuthModel() SecurityModel {
	return SecurityModel{Kind: "none", Label: "No authentication"}
}

// resolveSecurity computes the effective security for one operation: the
// operation-level requirement when present (an explicit empty list means no
// auth), otherwise the document default. Scheme names are resolved against
// the declared security schemes to produce human labels and curl
// placeholders.
func resolveSecurity(doc *openapi3.T, op *openapi3.Operation) []SecurityModel {
	var reqs openapi3.SecurityRequirements
	switch {
	case op != nil && op.Security != nil:
		if len(*op.Security) == 0 {
			return []SecurityModel{noAuthModel()}
		}
		reqs = *op.Security
	default:
		reqs = doc.Security
	}
	if len(reqs) == 0 {
		return nil
	}

	var out []SecurityModel
	seen := make(map[string]struct{})
	for _, req := range reqs {
		names := make([]string, 0, len(req))
		for name := range req {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, schemeModel(doc, name))
		}
	}
	return out
}

func schemeModel(doc *openapi3.T, name string) SecurityModel {
	var scheme *openapi3.SecurityScheme
	if doc.Components != nil {
		if ref, ok := doc.Components.SecuritySchemes[name]; ok && ref != nil {
			scheme = ref.Value
		}
	}
	if scheme == nil {
		return SecurityModel{
			Name:  name,
			Kind:  "unknown",
			Label: fmt.Sprintf("%s (undeclared security scheme)", name),
		}
	}

	switch scheme.Type {
	case "http":
		switch strings.ToLower(scheme.Scheme) {
		case "bearer":
			return SecurityModel{
				Name:       name,
				Kind:       "bearer",
				Label:      "Bearer token (Authorization header)",
				CurlHeader: "Authorization: Bearer <token>",
			}
		case "basic":
			return SecurityModel{
				Name:       name,
				Kind:       "basic",
				Label:      "HTTP Basic authentication",
				CurlHeader: "Authorization: Basic <credentials>",
			}
		default:
			return SecurityModel{
				Name:       name,
				Kind:       "http",
				Label:      fmt.Sprintf("HTTP %s authentication", scheme.Scheme),
				CurlHeader: fmt.Sprintf("Authorization: %s <credentials>", scheme.Scheme),
			}
		}
	case "apiKey":
		switch scheme.In {
		case "query":
			return SecurityModel{
				Name:      name,
				Kind:      "apiKey",
				Label:     fmt.Sprintf("API key in query parameter %q", scheme.Name),
				CurlQuery: scheme.Name + "=<api-key>",
			}
		case "cookie":
			return SecurityModel{
				Name:       name,
				Kind:       "apiKey",
				Label:      fmt.Sprintf("API key in cookie %q", scheme.Name),
				CurlHeader: fmt.Sprintf("Cookie: %s=<api-key>", scheme.Name),
			}
		default: // header
			return SecurityModel{
				Name:       name,
				Kind:       "apiKey",
				Label:      fmt.Sprintf("API key in header %q", scheme.Name),
				CurlHeader: scheme.Name + ": <api-key>",
			}
		}
	case "oauth2":
		return SecurityModel{
			Name:       name,
			Kind:       "oauth2",
			Label:      "OAuth 2.0 access token",
			CurlHeader: "Authorization: Bearer <access-token>",
		}
	case "openIdConnect":
		return SecurityModel{
			Name:       name,
			Kind:       "openIdConnect",
			Label:      "OpenID Connect token",
			CurlHeader: "Authorization: Bearer <id-token>",
		}
	case "mutualTLS":
		return SecurityModel{
			Name:  name,
			Kind:  "mutualTLS",
			Label: "Mutual TLS client certificate",
		}
	default:
		return SecurityModel{
			Name:  name,
			Kind:  scheme.Type,
			Label: fmt.Sprintf("%s (%s)", name, scheme.Type),
		}
	}
}
