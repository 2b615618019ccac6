package content

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Default returns the registry built from the embedded content file.
func Default() (*Registry, error) {
	return Parse(defaultYAML)
}

// Load reads a content file from disk. An empty path loads the embedded default.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading content file: %w", err)
	}
	reg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Parse decodes, validates and indexes a YAML content document.
func Parse(raw []byte) (*Registry, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parsing content: %w", err)
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	return NewRegistry(c)
}

func validate(c Catalog) error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	messages := make([]string, 0, len(verrs))
	for _, e := range verrs {
		messages = append(messages, fmt.Sprintf(
			"field '%s' failed validation: %s (value: '%v')",
			e.Namespace(), e.Tag(), e.Value(),
		))
	}
	return fmt.Errorf("invalid content:\n  %s", strings.Join(messages, "\n  "))
}
