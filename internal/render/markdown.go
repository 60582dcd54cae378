// Package render turns the built document model into Markdown reference docs.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	genspec "github.com/devextools/apidocgen/internal/spec"
)

// unavailableMarker is substituted for media types whose example could not
// be generated.
const unavailableMarker = "_example unavailable_"

// Options controls optional sections of the rendered document.
type Options struct {
	IncludeExamples bool
	IncludeCurl     bool
}

// DefaultOptions enables every section.
func DefaultOptions() Options {
	return Options{IncludeExamples: true, IncludeCurl: true}
}

// Markdown renders the whole document model. Output ends with exactly one
// trailing newline and is byte-identical across runs for the same model.
func Markdown(m *genspec.DocModel, opts Options) string {
	var b strings.Builder

	title := m.Title
	if title == "" {
		title = "API"
	}
	fmt.Fprintf(&b, "# %s API Docs\n\n", title)
	b.WriteString("## Overview\n\n")
	version := m.Version
	if version == "" {
		version = "unknown"
	}
	fmt.Fprintf(&b, "- Version: %s\n", version)
	if len(m.Servers) > 0 && m.Servers[0].URL != "" {
		fmt.Fprintf(&b, "- Base URL: %s\n", m.Servers[0].URL)
	}
	b.WriteString("\n")
	if m.Description != "" {
		b.WriteString(m.Description + "\n\n")
	}

	baseURL := ""
	if len(m.Servers) > 0 {
		baseURL = m.Servers[0].URL
	}

	groups := m.TagGroups()
	if len(groups) == 0 {
		// No tags anywhere; render a single flat section.
		groups = []genspec.TagGroup{{Name: "Endpoints"}}
		for i := range m.Endpoints {
			groups[0].Endpoints = append(groups[0].Endpoints, &m.Endpoints[i])
		}
	}
	for _, group := range groups {
		fmt.Fprintf(&b, "## %s\n\n", group.Name)
		for _, ep := range group.Endpoints {
			writeEndpoint(&b, ep, baseURL, opts)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeEndpoint(b *strings.Builder, ep *genspec.Endpoint, baseURL string, opts Options) {
	fmt.Fprintf(b, "### `%s %s`\n\n", strings.ToUpper(string(ep.Method)), ep.Path)
	if ep.Summary != "" {
		b.WriteString(ep.Summary + "\n\n")
	}
	if ep.Description != "" {
		b.WriteString(ep.Description + "\n\n")
	}

	if len(ep.Security) > 0 {
		b.WriteString("#### Security\n\n")
		for _, s := range ep.Security {
			b.WriteString("- " + s.Label + "\n")
		}
		b.WriteString("\n")
	}

	if len(ep.Parameters) > 0 {
		b.WriteString("#### Parameters\n\n")
		b.WriteString("| Name | In | Required | Type | Description |\n")
		b.WriteString("| --- | --- | --- | --- | --- |\n")
		for _, p := range ep.Parameters {
			fmt.Fprintf(b, "| %s | %s | %t | %s | %s |\n",
				p.Name, p.In, p.Required, p.TypeLabel, tableCell(p.Description))
		}
		b.WriteString("\n")
	}

	if opts.IncludeExamples && ep.RequestBody != nil && renderableMedia(ep.RequestBody.Content) {
		b.WriteString("#### Request Body\n\n")
		for _, media := range ep.RequestBody.Content {
			writeMediaExample(b, media, "")
		}
	}

	if opts.IncludeCurl {
		b.WriteString("#### curl\n\n")
		b.WriteString("```sh\n" + curlSnippet(baseURL, ep) + "\n```\n\n")
	}

	if len(ep.Responses) > 0 {
		b.WriteString("#### Responses\n\n")
		for _, resp := range ep.Responses {
			fmt.Fprintf(b, "- **%s**: %s\n", resp.Status, resp.Description)
			if opts.IncludeExamples {
				for _, media := range resp.Content {
					writeMediaExample(b, media, "  ")
				}
			}
		}
		b.WriteString("\n")
	}
}

// renderableMedia reports whether at least one entry would produce an
// example block or an unavailable marker, so empty sections get no heading.
func renderableMedia(content []genspec.Media) bool {
	for _, media := range content {
		if media.Example != nil || media.ExampleErr != "" {
			return true
		}
	}
	return false
}

// writeMediaExample emits one fenced example block, indented for nesting
// under response list items. Media without an example and without a failure
// is skipped entirely.
func writeMediaExample(b *strings.Builder, media genspec.Media, indent string) {
	if media.ExampleErr != "" {
		b.WriteString("\n" + indent + fmt.Sprintf("Example (%s): %s\n", media.Mime, unavailableMarker))
		return
	}
	if media.Example == nil {
		return
	}
	b.WriteString("\n" + indent + fmt.Sprintf("Example (%s):\n", media.Mime))
	b.WriteString("\n" + indent + "```json\n")
	body := exampleJSON(media.Example)
	if indent != "" {
		body = indent + strings.ReplaceAll(body, "\n", "\n"+indent)
	}
	b.WriteString(body + "\n" + indent + "```\n")
	if indent == "" {
		b.WriteString("\n")
	}
}

// exampleJSON encodes a value as two-space-indented JSON without HTML
// escaping. Map keys come out sorted, matching the synthesizer's key order.
func exampleJSON(value any) string {
	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return fmt.Sprintf("%v", value)
	}
	return strings.TrimRight(out.String(), "\n")
}

// compactJSON encodes a value as single-line JSON for curl bodies.
func compactJSON(value any) string {
	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return fmt.Sprintf("%v", value)
	}
	return strings.TrimRight(out.String(), "\n")
}

// tableCell flattens text into a single table-safe line.
func tableCell(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return strings.ReplaceAll(text, "|", "\\|")
}
