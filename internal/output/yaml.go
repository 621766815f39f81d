package output

import (
	"io"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/dhabedank/promptbench/internal/core"
)

// YAMLAdapter outputs the report as YAML.
type YAMLAdapter struct{}

// NewYAMLAdapter creates a YAML adapter.
func NewYAMLAdapter(Config) *YAMLAdapter {
	return &YAMLAdapter{}
}

func (a *YAMLAdapter) Name() string {
	return "yaml"
}

func (a *YAMLAdapter) Write(w io.Writer, report *core.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return errors.Wrap(err, "failed to marshal YAML")
	}
	return errors.Wrap(enc.Close(), "failed to flush YAML")
}
