package spec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
	ConversionError ErrorCode = "ConversionError"
)

// SpecError is a structured loader error with optional location and JSON Pointer.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path or URL
	JSONPointer string // e.g. "#/paths/~1items/get"
	Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }

// Load reads, validates, and returns an OpenAPI v3 document from a
// filesystem path or http/https URL, in JSON or YAML. Swagger v2.0 input is
// converted to v3 via kin-openapi openapi2conv. file:// URLs are rejected;
// use a plain path instead.
func Load(ctx context.Context, input string, opts ...Option) (*openapi3.T, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	raw, base, err := readRaw(ctx, input, settings)
	if err != nil {
		return nil, err
	}

	version, derr := detectSpecVersion(raw)
	if derr != nil {
		return nil, &SpecError{Code: ParseError, Message: derr.Error(), Location: base.display, Cause: derr}
	}

	var doc *openapi3.T
	switch version {
	case 3:
		loader := newLoader(settings, base.isFile)
		doc, err = loader.LoadFromDataWithPath(raw, base.url)
		if err != nil {
			return nil, mapValidateOrParseErr(err, base.display)
		}
	case 2:
		doc, err = convertV2ToV3(raw)
		if err != nil {
			return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2 to v3: %v", err), Location: base.display, Cause: err}
		}
	default:
		return nil, &SpecError{Code: ParseError, Message: "spec: unknown or unsupported OpenAPI/Swagger version", Location: base.display}
	}

	if err := doc.Validate(ctx); err != nil {
		if !canProceedDespiteValidation(err) {
			return nil, mapValidateOrParseErr(err, base.display)
		}
		// proceed in permissive mode
	}
	return doc, nil
}

// specSource identifies where the raw bytes came from, for external ref
// resolution and error locations.
type specSource struct {
	url     *url.URL
	display string
	isFile  bool
}

func readRaw(ctx context.Context, input string, settings Settings) ([]byte, specSource, error) {
	u, uerr := url.Parse(input)
	if uerr == nil && u.Scheme != "" && u.Host != "" {
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			if scheme == "file" {
				return nil, specSource{}, &SpecError{Code: InputError, Message: "spec: file:// URLs are not supported, pass a filesystem path", Location: input}
			}
			return nil, specSource{}, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		raw, err := fetchWithRetry(ctx, input, settings)
		if err != nil {
			return nil, specSource{}, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		return raw, specSource{url: u, display: input}, nil
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, specSource{}, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, specSource{}, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	return raw, specSource{url: &url.URL{Path: abs}, display: abs, isFile: true}, nil
}

func newLoader(settings Settings, rootIsFile bool) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	client := &http.Client{Timeout: settings.HTTPTimeout}
	loader.ReadFromURIFunc = func(l *openapi3.Loader, uri *url.URL) ([]byte, error) {
		switch strings.ToLower(uri.Scheme) {
		case "", "file":
			// File refs are only reachable from a local root document.
			if !rootIsFile {
				return nil, fmt.Errorf("blocked file ref: %s", uri.String())
			}
			path := uri.Path
			if path == "" {
				path = uri.Opaque
			}
			return os.ReadFile(path)
		case "http", "https":
			req, err := http.NewRequest(http.MethodGet, uri.String(), nil)
			if err != nil {
				return nil, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode, uri.String())
			}
			return io.ReadAll(resp.Body)
		default:
			return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
		}
	}
	return loader
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
// YAML parsing covers JSON input too.
func detectSpecVersion(data []byte) (int, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse spec: %w", err)
	}
	if root == nil {
		return 0, fmt.Errorf("spec: document must be a JSON/YAML object at the top level")
	}
	if v, ok := root["openapi"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
			return 3, nil
		}
	}
	if v, ok := root["swagger"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
			return 2, nil
		}
	}
	return 0, fmt.Errorf("spec: missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

func convertV2ToV3(data []byte) (*openapi3.T, error) {
	var v2 openapi2.T
	if err := yaml.Unmarshal(data, &v2); err != nil {
		return nil, err
	}
	return openapi2conv.ToV3(&v2)
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			// Close per attempt; a deferred close here would hold every
			// retry's body open until the function returns.
			switch {
			case resp.StatusCode < 300:
				data, rerr := io.ReadAll(resp.Body)
				resp.Body.Close()
				if rerr == nil {
					return data, nil
				}
				lastErr = rerr
			case resp.StatusCode >= 500 || resp.StatusCode == 429:
				resp.Body.Close()
				lastErr = fmt.Errorf("transient http error %d", resp.StatusCode)
			default:
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
				resp.Body.Close()
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}

func mapValidateOrParseErr(err error, location string) error {
	pointer := extractJSONPointer(err)
	code := ValidationError
	// Heuristics: some loader errors are parse errors.
	if strings.Contains(strings.ToLower(err.Error()), "parse") || strings.Contains(strings.ToLower(err.Error()), "invalid character") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	if me, ok := err.(openapi3.MultiError); ok {
		if len(me) > 0 {
			return extractJSONPointer(me[0])
		}
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	msg := err.Error()
	if m := jsonPtrRe.FindString(msg); m != "" {
		return m
	}
	return ""
}

// canProceedDespiteValidation returns true for validation errors where a
// best-effort build can still proceed; the builder degrades the affected
// schemas to placeholders.
func canProceedDespiteValidation(err error) bool {
	if err == nil {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unresolved ref") || strings.Contains(s, "found unresolved ref")
}
