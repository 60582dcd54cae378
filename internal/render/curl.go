package render

import (
	"fmt"
	"strings"

	genspec "github.com/devextools/apidocgen/internal/spec"
)

// curlSnippet builds a runnable curl command for one endpoint: path
// parameters substituted with their examples, required query parameters and
// security placeholders appended, one -H per security header, and the
// request example as the body.
func curlSnippet(baseURL string, ep *genspec.Endpoint) string {
	if baseURL == "" {
		baseURL = "http://localhost"
	}
	url := strings.TrimRight(baseURL, "/") + substitutePathParams(ep)

	var query []string
	for _, p := range ep.Parameters {
		if p.In != "query" || !p.Required {
			continue
		}
		query = append(query, p.Name+"="+scalarText(p.Example, p.Name))
	}
	for _, s := range ep.Security {
		if s.CurlQuery != "" {
			query = append(query, s.CurlQuery)
		}
	}
	if len(query) > 0 {
		url += "?" + strings.Join(query, "&")
	}

	lines := []string{"curl"}
	method := strings.ToUpper(string(ep.Method))
	if method != "GET" {
		lines[0] += " -X " + method
	}
	lines[0] += fmt.Sprintf(" '%s'", url)

	for _, s := range ep.Security {
		if s.CurlHeader != "" {
			lines = append(lines, fmt.Sprintf("-H '%s'", s.CurlHeader))
		}
	}

	if body, mime, ok := requestBodyExample(ep); ok {
		lines = append(lines, fmt.Sprintf("-H 'Content-Type: %s'", mime))
		lines = append(lines, fmt.Sprintf("-d '%s'", strings.ReplaceAll(body, "'", `'\''`)))
	}

	return strings.Join(lines, " \\\n  ")
}

func substitutePathParams(ep *genspec.Endpoint) string {
	path := ep.Path
	for _, p := range ep.Parameters {
		if p.In != "path" {
			continue
		}
		path = strings.ReplaceAll(path, "{"+p.Name+"}", scalarText(p.Example, p.Name))
	}
	return path
}

// requestBodyExample picks the body for the curl snippet, preferring JSON
// content over other media types.
func requestBodyExample(ep *genspec.Endpoint) (body, mime string, ok bool) {
	if ep.RequestBody == nil {
		return "", "", false
	}
	content := ep.RequestBody.Content
	pick := -1
	for i, media := range content {
		if media.Example == nil {
			continue
		}
		if media.Mime == "application/json" {
			pick = i
			break
		}
		if pick < 0 {
			pick = i
		}
	}
	if pick < 0 {
		return "", "", false
	}
	return compactJSON(content[pick].Example), content[pick].Mime, true
}

func scalarText(value any, fallback string) string {
	switch v := value.(type) {
	case nil:
		return "{" + fallback + "}"
	case string:
		return v
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
	default:
		return fmt.Sprintf("%v", v)
	}
}
