// Package serializer renders analysis results as the canonical JSON document
// with "dominators" and "garbage" members and parses such documents back.
package serializer

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"

	"github.com/size-analysis/pkg/errors"
	"github.com/size-analysis/pkg/model"
	"github.com/size-analysis/pkg/writer"
)

// Options controls document rendering.
type Options struct {
	// Pretty enables two-space indentation.
	Pretty bool
}

// NewDocument assembles a document from already ordered dominator entries
// and a garbage report. The order of both lists is kept as given. summary
// may be nil.
func NewDocument(dominators []model.DominatorEntry, report *model.GarbageReport, summary *model.Summary) *model.Document {
	doc := &model.Document{
		Dominators: dominators,
		Summary:    summary,
	}
	if report != nil {
		doc.Garbage = report.Entries
	}
	if doc.Dominators == nil {
		doc.Dominators = []model.DominatorEntry{}
	}
	if doc.Garbage == nil {
		doc.Garbage = []model.GarbageEntry{}
	}
	return doc
}

// Validate checks that every name in doc can be represented in JSON without
// replacement.
func Validate(doc *model.Document) error {
	for i := range doc.Dominators {
		if !utf8.ValidString(doc.Dominators[i].Name) {
			return errors.Newf(errors.CodeSerialization,
				"dominator entry for item %d has a name that is not valid UTF-8", doc.Dominators[i].ID)
		}
	}
	for i := range doc.Garbage {
		if !utf8.ValidString(doc.Garbage[i].Name) {
			return errors.Newf(errors.CodeSerialization,
				"garbage entry for item %d has a name that is not valid UTF-8", doc.Garbage[i].ID)
		}
	}
	return nil
}

// Encode renders doc as JSON. It fails with a serialization error rather
// than dropping or altering any entry.
func Encode(doc *model.Document, opts Options) ([]byte, error) {
	if doc == nil {
		return nil, errors.New(errors.CodeSerialization, "nil document")
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}

	normalized := *doc
	if normalized.Dominators == nil {
		normalized.Dominators = []model.DominatorEntry{}
	}
	if normalized.Garbage == nil {
		normalized.Garbage = []model.GarbageEntry{}
	}

	w := writer.NewJSONWriter[*model.Document]()
	if opts.Pretty {
		w = writer.NewPrettyJSONWriter[*model.Document]()
	}
	out, err := w.Marshal(&normalized)
	if err != nil {
		return nil, errors.Wrap(errors.CodeSerialization, "failed to encode document", err)
	}
	return out, nil
}

// Decode parses a document produced by Encode. Unknown members are rejected.
func Decode(data []byte) (*model.Document, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var doc model.Document
	if err := decoder.Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.CodeSerialization, "failed to decode document", err)
	}
	if doc.Dominators == nil || doc.Garbage == nil {
		return nil, errors.New(errors.CodeSerialization, "document must contain dominators and garbage")
	}
	return &doc, nil
}
