// Package wasm decodes WebAssembly binary modules into item graphs.
//
// Function bodies and imported functions become Code items, data segments
// and globals become Data items, signatures become Type items, and every
// other entity (tables, memories, tags, exports, start, element segments,
// custom sections) becomes an Other item. Exports and the start function
// are the roots.
package wasm

import (
	"context"
	stderrors "errors"

	"github.com/size-analysis/internal/itemgraph"
	"github.com/size-analysis/pkg/errors"
)

// Decoder decodes WebAssembly binaries.
type Decoder struct{}

// NewDecoder creates a new wasm Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Name returns "wasm".
func (d *Decoder) Name() string {
	return "wasm"
}

// Decode parses data as a WebAssembly module and builds its item graph.
func (d *Decoder) Decode(ctx context.Context, data []byte) (*itemgraph.Graph, error) {
	m, err := parseModule(ctx, data)
	if err != nil {
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, errors.Wrap(errors.CodeStructural, "invalid wasm module", err)
	}

	g, err := m.build()
	if err != nil {
		if errors.IsGraphConsistencyError(err) {
			return nil, err
		}
		return nil, errors.Wrap(errors.CodeStructural, "invalid wasm module", err)
	}
	return g, nil
}
