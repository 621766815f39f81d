package output

import (
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/dhabedank/promptbench/internal/core"
)

// JSONAdapter outputs the report as indented JSON.
type JSONAdapter struct{}

// NewJSONAdapter creates a JSON adapter.
func NewJSONAdapter(Config) *JSONAdapter {
	return &JSONAdapter{}
}

func (a *JSONAdapter) Name() string {
	return "json"
}

func (a *JSONAdapter) Write(w io.Writer, report *core.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	return nil
}
