package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/docspec/docspec/internal/assemble"
	"github.com/docspec/docspec/internal/docparse"
	"github.com/docspec/docspec/internal/manifest"
	"github.com/docspec/docspec/internal/openapi"
)

// GenerateConfig captures all inputs that influence the generate command
// after merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Manifest     string
	Out          string
	Format       string
	Validate     bool
	Canonicalize string
	ConfigPath   string
	Verbose      bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Format: "json"}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an OpenAPI document from a documentation manifest",
		Long: "Generate an OpenAPI document from a YAML manifest of handler documentation, " +
			"schema definitions, and routes. Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  docspec generate --manifest api.yaml --out openapi.json
  docspec generate --manifest api.yaml --format yaml --validate
  docspec --config docspec.yaml generate`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.String("manifest", "", "Path to the API documentation manifest (YAML)")
	flags.String("out", "", "Output file (stdout when omitted)")
	flags.String("format", "", "Output format (json|yaml); defaults to json")
	flags.Bool("validate", false, "Re-load the emitted document with kin-openapi and validate it")
	flags.String("canonicalize", "", "Print the canonical documentation text for one handler and exit")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
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
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	if flags.Changed("manifest") {
		value, err := flags.GetString("manifest")
		if err != nil {
			return err
		}
		cfg.Manifest = strings.TrimSpace(value)
	}
	if flags.Changed("out") {
		value, err := flags.GetString("out")
		if err != nil {
			return err
		}
		cfg.Out = strings.TrimSpace(value)
	}
	if flags.Changed("format") {
		value, err := flags.GetString("format")
		if err != nil {
			return err
		}
		cfg.Format = strings.TrimSpace(value)
	}
	if flags.Changed("validate") {
		value, err := flags.GetBool("validate")
		if err != nil {
			return err
		}
		cfg.Validate = value
	}
	if flags.Changed("canonicalize") {
		value, err := flags.GetString("canonicalize")
		if err != nil {
			return err
		}
		cfg.Canonicalize = strings.TrimSpace(value)
	}
	return nil
}

// generateFileConfig mirrors the keys accepted in a config file.
type generateFileConfig struct {
	Manifest string `yaml:"manifest"`
	Out      string `yaml:"out"`
	Format   string `yaml:"format"`
	Validate *bool  `yaml:"validate"`
	Verbose  *bool  `yaml:"verbose"`
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read config file: %w", err)
	}
	var file generateFileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	if file.Manifest != "" {
		cfg.Manifest = file.Manifest
	}
	if file.Out != "" {
		cfg.Out = file.Out
	}
	if file.Format != "" {
		cfg.Format = file.Format
	}
	if file.Validate != nil {
		cfg.Validate = *file.Validate
	}
	if file.Verbose != nil {
		cfg.Verbose = *file.Verbose
	}
	return nil
}

func (c *GenerateConfig) normalize() {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format == "" {
		c.Format = "json"
	}
}

func (c *GenerateConfig) validate() error {
	if c.Manifest == "" {
		return newUsageError("--manifest is required")
	}
	if c.Format != "json" && c.Format != "yaml" {
		return newUsageError(fmt.Sprintf("unsupported format %q, want json or yaml", c.Format))
	}
	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig, stdout, stderr io.Writer) error {
	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return err
	}
	reg, routes, meta, err := m.Build()
	if err != nil {
		return err
	}

	if cfg.Canonicalize != "" {
		h, ok := reg.Handler(cfg.Canonicalize)
		if !ok {
			return fmt.Errorf("handler %q is not declared in %s", cfg.Canonicalize, cfg.Manifest)
		}
		doc, err := docparse.Parse(cfg.Canonicalize, h.Doc, docparse.Hint{Success: h.Success, Error: h.Error, Request: h.Request})
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, docparse.Render(doc))
		return nil
	}

	if cfg.Verbose {
		fmt.Fprintf(stderr, "docspec: assembling %d routes from %s\n", len(routes), cfg.Manifest)
	}

	result, err := assemble.Assemble(reg, routes, meta)
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}

	jsonBytes, err := openapi.EncodeJSON(result.Document)
	if err != nil {
		return err
	}
	if cfg.Validate {
		if err := validateDocument(ctx, jsonBytes); err != nil {
			return err
		}
		if cfg.Verbose {
			fmt.Fprintln(stderr, "docspec: document validated")
		}
	}

	output := jsonBytes
	if cfg.Format == "yaml" {
		output, err = openapi.EncodeYAML(result.Document)
		if err != nil {
			return err
		}
	}

	if cfg.Out == "" {
		_, err = stdout.Write(output)
		return err
	}
	if err := os.WriteFile(cfg.Out, output, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", cfg.Out, err)
	}
	if cfg.Verbose {
		fmt.Fprintf(stderr, "docspec: wrote %s (%d bytes)\n", cfg.Out, len(output))
	}
	return nil
}

// validateDocument re-loads the emitted JSON with kin-openapi as an
// independent check that the document is a well-formed OpenAPI 3.0 spec.
func validateDocument(ctx context.Context, data []byte) error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("emitted document does not load: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("emitted document fails validation: %w", err)
	}
	return nil
}
