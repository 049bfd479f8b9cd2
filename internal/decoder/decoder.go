// Package decoder turns raw module bytes into an item graph.
package decoder

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/size-analysis/internal/decoder/graphdoc"
	"github.com/size-analysis/internal/decoder/wasm"
	"github.com/size-analysis/internal/itemgraph"
	"github.com/size-analysis/pkg/errors"
)

// Decoder is the interface for structural decoders.
type Decoder interface {
	// Decode builds an item graph from the input bytes.
	Decode(ctx context.Context, data []byte) (*itemgraph.Graph, error)

	// Name returns the name of this decoder.
	Name() string
}

// Format identifies an input format.
type Format int

const (
	FormatAuto Format = 0 // Detect from content
	FormatWasm Format = 1 // WebAssembly binary module
	FormatJSON Format = 2 // JSON graph document
	FormatYAML Format = 3 // YAML graph document
)

// String returns the string representation of Format.
func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatWasm:
		return "wasm"
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// ParseFormat parses the string form of a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "wasm":
		return FormatWasm, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatAuto, fmt.Errorf("unknown input format %q", s)
	}
}

// Detect guesses the format of data: the wasm magic selects wasm, a leading
// '{' or '[' selects JSON, anything else is treated as YAML.
func Detect(data []byte) Format {
	if wasm.HasMagic(data) {
		return FormatWasm
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// Registry holds registered decoders.
type Registry struct {
	decoders map[Format]Decoder
}

// NewRegistry creates an empty decoder Registry.
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[Format]Decoder),
	}
}

// NewDefaultRegistry creates a Registry with the wasm and graph document
// decoders registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(FormatWasm, wasm.NewDecoder())
	r.Register(FormatJSON, graphdoc.NewDecoder(graphdoc.EncodingJSON))
	r.Register(FormatYAML, graphdoc.NewDecoder(graphdoc.EncodingYAML))
	return r
}

// Register registers a decoder for the given format.
func (r *Registry) Register(format Format, d Decoder) {
	r.decoders[format] = d
}

// Get returns the decoder for the given format.
func (r *Registry) Get(format Format) (Decoder, bool) {
	d, ok := r.decoders[format]
	return d, ok
}

// Formats returns the registered formats in ascending order.
func (r *Registry) Formats() []Format {
	formats := make([]Format, 0, len(r.decoders))
	for f := range r.decoders {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// Decode resolves the format (detecting it for FormatAuto) and runs the
// matching decoder. It returns the format actually used.
func (r *Registry) Decode(ctx context.Context, data []byte, format Format) (*itemgraph.Graph, Format, error) {
	if len(data) == 0 {
		return nil, format, errors.New(errors.CodeStructural, "empty input")
	}
	if format == FormatAuto {
		format = Detect(data)
	}

	d, ok := r.Get(format)
	if !ok {
		return nil, format, errors.Newf(errors.CodeStructural, "no decoder registered for format %s", format)
	}

	g, err := d.Decode(ctx, data)
	if err != nil {
		return nil, format, err
	}
	return g, format, nil
}
