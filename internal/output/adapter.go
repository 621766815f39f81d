package output

import (
	"io"
	"os"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/dhabedank/promptbench/internal/core"
)

// ErrUnknownFormat is returned by New for an unregistered format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Adapter is the interface all output adapters must implement.
type Adapter interface {
	// Name returns the format identifier used on the command line.
	Name() string

	// Write renders a finished batch to w.
	Write(w io.Writer, report *core.Report) error
}

// Config configures output adapter behavior.
type Config struct {
	// Path writes to a file instead of stdout.
	Path string

	// PreviewWidth truncates outputs shown in the table (0 = no preview column).
	PreviewWidth int

	// ShowOutputs prints every full output below the table.
	ShowOutputs bool

	// Markdown renders full outputs as markdown for a terminal.
	Markdown bool

	// WrapWidth wraps rendered markdown (0 = 80 columns).
	WrapWidth int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PreviewWidth: 48,
		ShowOutputs:  true,
	}
}

var constructors = map[string]func(Config) Adapter{
	"table": func(c Config) Adapter { return NewTableAdapter(c) },
	"json":  func(c Config) Adapter { return NewJSONAdapter(c) },
	"yaml":  func(c Config) Adapter { return NewYAMLAdapter(c) },
}

// Formats lists the registered format names.
func Formats() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the adapter registered under name.
func New(name string, config Config) (Adapter, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, errors.WithHintf(errors.Wrapf(ErrUnknownFormat, "%q", name),
			"available formats: %v", Formats())
	}
	return ctor(config), nil
}

// Emit writes report with a to config.Path, or to stdout when no path is set.
func Emit(a Adapter, report *core.Report, config Config, stdout io.Writer) error {
	if config.Path == "" {
		return a.Write(stdout, report)
	}

	f, err := os.Create(config.Path)
	if err != nil {
		return errors.Wrap(err, "failed to create output file")
	}
	if err := a.Write(f, report); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "failed to write output file")
}
