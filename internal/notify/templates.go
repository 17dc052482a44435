package notify

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

type templateFile struct {
	Templates []domain.MessageTemplate `yaml:"templates"`
}

// DefaultTemplates returns the built-in templates. It panics if the embedded
// file is malformed, which is caught by tests.
func DefaultTemplates() []domain.MessageTemplate {
	tpls, err := ParseTemplates(defaultTemplatesYAML)
	if err != nil {
		panic(err)
	}
	return tpls
}

// LoadTemplates reads templates from a YAML file with the same layout as the
// embedded defaults. An empty path returns the defaults.
func LoadTemplates(path string) ([]domain.MessageTemplate, error) {
	if path == "" {
		return DefaultTemplates(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	tpls, err := ParseTemplates(b)
	if err != nil {
		return nil, err
	}
	// statuses the file leaves out keep the built-in text
	return domain.MergeTemplates(tpls, DefaultTemplates()), nil
}

// ParseTemplates decodes a templates document. Unknown statuses are an
// error.
func ParseTemplates(b []byte) ([]domain.MessageTemplate, error) {
	var f templateFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	for i, t := range f.Templates {
		if !t.Status.Valid() {
			return nil, fmt.Errorf("parse templates: entry %d: %w: %q", i, domain.ErrUnknownStatus, string(t.Status))
		}
	}
	return f.Templates, nil
}
