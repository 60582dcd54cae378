package spec

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeSpecFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_RejectedInputs(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		input string
	}{
		{"empty", "   "},
		{"file url", "file:///etc/hosts"},
		{"ftp url", "ftp://example.com/spec.yaml"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(context.Background(), tc.input)
			if err == nil {
				t.Fatalf("expected error for %q", tc.input)
			}
			var se *SpecError
			if !errors.As(err, &se) || se.Code != InputError {
				t.Fatalf("expected InputError, got %v (%T)", err, err)
			}
		})
	}
}

func TestLoad_NetworkError(t *testing.T) {
	t.Parallel()
	// Unused port to provoke a quick network failure.
	url := "http://127.0.0.1:1/spec.yaml"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Load(ctx, url, WithHTTPTimeout(200*time.Millisecond), WithMaxRetries(2), WithBackoffBase(10*time.Millisecond))
	if err == nil {
		t.Fatalf("expected network error")
	}
	var se *SpecError
	if !errors.As(err, &se) || se.Code != NetworkError {
		t.Fatalf("expected NetworkError, got %v (%T)", err, err)
	}
}

func TestLoad_RetriesTransientHTTPErrors(t *testing.T) {
	t.Parallel()
	spec := strings.TrimSpace(`
openapi: 3.0.0
info:
  title: Remote
  version: "1.0.0"
paths:
  "/hello":
    get:
      responses:
        "200":
          description: ok
`) + "\n"

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(spec))
	}))
	defer srv.Close()

	doc, err := Load(context.Background(), srv.URL+"/spec.yaml",
		WithMaxRetries(3), WithBackoffBase(time.Millisecond))
	if err != nil {
		t.Fatalf("load after transient failures: %v", err)
	}
	if doc.Info == nil || doc.Info.Title != "Remote" {
		t.Fatalf("unexpected doc: %+v", doc.Info)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestLoad_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.URL+"/spec.yaml",
		WithMaxRetries(3), WithBackoffBase(time.Millisecond))
	if err == nil {
		t.Fatalf("expected error for 404")
	}
	var se *SpecError
	if !errors.As(err, &se) || se.Code != NetworkError {
		t.Fatalf("expected NetworkError, got %v (%T)", err, err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want no retries on 4xx", calls.Load())
	}
}

func TestLoad_V3_Valid(t *testing.T) {
	t.Parallel()
	path := writeSpecFile(t, "ok.yaml", `
openapi: 3.0.0
info:
  title: Sample
  version: "1.0.0"
paths:
  "/hello":
    get:
      responses:
        "200":
          description: ok
`)
	doc, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Info == nil || doc.Info.Title != "Sample" {
		t.Fatalf("unexpected info: %+v", doc.Info)
	}
}

func TestLoad_V3_InvalidSpec(t *testing.T) {
	t.Parallel()
	path := writeSpecFile(t, "bad.yaml", `
openapi: 3.0.0
info:
  title: Bad
  version: "1.0.0"
paths:
  "/pet":
    get:
      responses: {}
`)
	_, err := Load(context.Background(), path)
	if err == nil {
		t.Fatalf("expected validation error for empty responses")
	}
	var se *SpecError
	if !errors.As(err, &se) {
		t.Fatalf("expected SpecError, got %T", err)
	}
	if se.Code != ValidationError && se.Code != ParseError {
		t.Fatalf("expected ValidationError/ParseError, got %v", se.Code)
	}
	if se.Location == "" {
		t.Fatalf("expected location to be set")
	}
}

func TestLoad_V2_Conversion(t *testing.T) {
	t.Parallel()
	path := writeSpecFile(t, "swagger.yaml", `
swagger: "2.0"
info:
  title: Sample
  version: "1.0.0"
paths:
  "/hello":
    get:
      responses:
        "200":
          description: ok
`)
	doc, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.HasPrefix(doc.OpenAPI, "3.") {
		t.Fatalf("expected converted v3 doc, got %q", doc.OpenAPI)
	}
}

func TestDetectSpecVersion(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		data    string
		want    int
		wantErr bool
	}{
		{"v3", `openapi: "3.0.3"`, 3, false},
		{"v31", `openapi: "3.1.0"`, 3, false},
		{"v2", `swagger: "2.0"`, 2, false},
		{"missing version", `info: {title: x}`, 0, true},
		{"scalar root", `"just a string"`, 0, true},
		{"empty document", ``, 0, true},
		{"bad yaml", "{openapi: [", 0, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := detectSpecVersion([]byte(tc.data))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got version %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("detect: %v", err)
			}
			if got != tc.want {
				t.Fatalf("version = %d, want %d", got, tc.want)
			}
		})
	}
}
