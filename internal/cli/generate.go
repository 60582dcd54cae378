package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/devextools/apidocgen/internal/render"
	genspec "github.com/devextools/apidocgen/internal/spec"
)

// GenerateConfig captures all inputs that influence the generate command
// after merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input       string
	Out         string
	Watch       bool
	Interval    time.Duration
	NoExamples  bool
	NoCurl      bool
	IncludeTags []string
	ExcludeTags []string
	ConfigPath  string
	Verbose     bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Interval: time.Second}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [spec]",
		Short: "Generate Markdown API reference docs from an OpenAPI document",
		Long: "Generate Markdown API reference docs from an OpenAPI document. " +
			"The spec may be a local file or an http/https URL, in JSON or YAML. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  apidocgen generate ./openapi.yaml --out API.md
  apidocgen generate --input https://example.com/openapi.json
  apidocgen generate ./openapi.yaml --out API.md --watch --interval 2s`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd, args)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the OpenAPI document (alternative to the positional arg)")
	flags.StringP("out", "o", "", "Write output to this file (stdout when omitted)")
	flags.Bool("watch", false, "Watch a local spec file and re-render on change")
	flags.Duration("interval", time.Second, "Watch poll interval")
	flags.Bool("no-examples", false, "Skip request/response example generation")
	flags.Bool("no-curl", false, "Skip curl snippet generation")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command, args []string) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		cfg.Input = strings.TrimSpace(args[0])
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	if flags.Changed("input") {
		value, err := flags.GetString("input")
		if err != nil {
			return err
		}
		cfg.Input = strings.TrimSpace(value)
	}
	if flags.Changed("out") {
		value, err := flags.GetString("out")
		if err != nil {
			return err
		}
		cfg.Out = strings.TrimSpace(value)
	}
	if flags.Changed("watch") {
		value, err := flags.GetBool("watch")
		if err != nil {
			return err
		}
		cfg.Watch = value
	}
	if flags.Changed("interval") {
		value, err := flags.GetDuration("interval")
		if err != nil {
			return err
		}
		cfg.Interval = value
	}
	if flags.Changed("no-examples") {
		value, err := flags.GetBool("no-examples")
		if err != nil {
			return err
		}
		cfg.NoExamples = value
	}
	if flags.Changed("no-curl") {
		value, err := flags.GetBool("no-curl")
		if err != nil {
			return err
		}
		cfg.NoCurl = value
	}
	if flags.Changed("include-tags") {
		value, err := flags.GetStringSlice("include-tags")
		if err != nil {
			return err
		}
		cfg.IncludeTags = sanitizeTags(value)
	}
	if flags.Changed("exclude-tags") {
		value, err := flags.GetStringSlice("exclude-tags")
		if err != nil {
			return err
		}
		cfg.ExcludeTags = sanitizeTags(value)
	}
	if flags.Changed("verbose") {
		value, err := flags.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: a spec path or URL is required (positional arg, --input, or config file)")
	}
	if c.Interval <= 0 {
		return newUsageError("generate: --interval must be positive")
	}
	if c.Watch && isURL(c.Input) {
		return newUsageError("generate: --watch only supports local spec files")
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	return nil
}

func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	renderOnce := func() error { return renderDocs(ctx, cfg) }

	if !cfg.Watch {
		return renderOnce()
	}

	fmt.Fprintf(os.Stderr, "Watching %s...\n", cfg.Input)
	return watchLoop(ctx, cfg.Input, cfg.Interval, renderOnce)
}

// renderDocs runs one full pipeline pass: load, build, render, write. It is
// a pure function of the spec file and config; watch mode calls it on every
// detected change.
func renderDocs(ctx context.Context, cfg *GenerateConfig) error {
	doc, err := genspec.Load(ctx, cfg.Input)
	if err != nil {
		var se *genspec.SpecError
		if errors.As(err, &se) {
			msg := fmt.Sprintf("spec: %s", se.Message)
			if se.Location != "" {
				msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
			}
			if se.JSONPointer != "" {
				msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
			}
			return newUsageError(msg)
		}
		return err
	}

	model, err := genspec.BuildDocModel(
		ctx,
		doc,
		genspec.WithIncludeTags(cfg.IncludeTags),
		genspec.WithExcludeTags(cfg.ExcludeTags),
	)
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}

	markdown := render.Markdown(model, render.Options{
		IncludeExamples: !cfg.NoExamples,
		IncludeCurl:     !cfg.NoCurl,
	})

	if cfg.Out == "" {
		fmt.Fprint(os.Stdout, markdown)
		return nil
	}
	if err := writeFileAtomic(cfg.Out, []byte(markdown)); err != nil {
		return err
	}
	if cfg.Verbose {
		fmt.Fprintf(os.Stderr, "Wrote %s (%d endpoints)\n", cfg.Out, len(model.Endpoints))
	}
	return nil
}

// writeFileAtomic writes via temp file + rename so a reader of the output
// never observes a half-written document.
func writeFileAtomic(path string, content []byte) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve out path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := abs + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", path, err)
	}
	if err := os.Rename(tmp, abs); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		switch normalized {
		case "input", "spec":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Input = str
		case "out", "output":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Out = str
		case "watch":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Watch = val
		case "interval":
			d, err := valueAsDuration(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Interval = d
		case "noexamples":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.NoExamples = val
		case "nocurl":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.NoCurl = val
		case "includetags":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.IncludeTags = sanitizeTags(list)
		case "excludetags":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.ExcludeTags = sanitizeTags(list)
		case "verbose":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Verbose = val
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

// valueAsDuration accepts Go duration strings ("2s", "500ms") or bare
// numbers meaning seconds.
func valueAsDuration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, fmt.Errorf("empty duration")
		}
		d, err := time.ParseDuration(trimmed)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", val)
		}
		return d, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("expected duration, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
