package analyzer

import (
	"github.com/go-playground/validator/v10"

	"github.com/size-analysis/internal/decoder"
	"github.com/size-analysis/internal/garbage"
	"github.com/size-analysis/internal/tape"
	"github.com/size-analysis/pkg/config"
	"github.com/size-analysis/pkg/errors"
)

// optionsValidate checks option structs before any work starts.
var optionsValidate = validator.New()

// AnalysisOptions configures one module analysis.
type AnalysisOptions struct {
	// MaxItems caps the reported garbage list. garbage.Unlimited disables the cap.
	MaxItems uint32 `json:"max_items" yaml:"max_items"`

	// ShowDataSegments reports every Data garbage item regardless of MaxItems.
	ShowDataSegments bool `json:"show_data_segments" yaml:"show_data_segments"`

	// Format selects the input decoder; empty or "auto" detects it.
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=auto wasm json yaml yml"`

	// Pretty indents the output document.
	Pretty bool `json:"pretty" yaml:"pretty"`

	// IncludeSummary appends the summary member to the document.
	IncludeSummary bool `json:"include_summary" yaml:"include_summary"`

	// MaxInputBytes rejects larger inputs after decompression. Zero disables the check.
	MaxInputBytes int64 `json:"max_input_bytes" yaml:"max_input_bytes" validate:"gte=0"`
}

// DefaultAnalysisOptions returns an unlimited report that always lists data
// segments.
func DefaultAnalysisOptions() *AnalysisOptions {
	return &AnalysisOptions{
		MaxItems:         garbage.Unlimited,
		ShowDataSegments: true,
		Format:           decoder.FormatAuto.String(),
	}
}

// Validate checks the options.
func (o *AnalysisOptions) Validate() error {
	if err := optionsValidate.Struct(o); err != nil {
		return errors.Wrap(errors.CodeInvalidInput, "invalid analysis options", err)
	}
	return nil
}

func (o *AnalysisOptions) garbageOptions() garbage.Options {
	return garbage.Options{
		MaxItems:         o.MaxItems,
		ShowDataSegments: o.ShowDataSegments,
	}
}

func (o *AnalysisOptions) format() decoder.Format {
	// Validate already restricted the value to known names.
	f, _ := decoder.ParseFormat(o.Format)
	return f
}

// TapeOptions configures one tape conversion.
type TapeOptions struct {
	// DuplicateKeys is group, preserve (default) or key-value-pairs.
	DuplicateKeys string `json:"duplicate_keys" yaml:"duplicate_keys" validate:"omitempty,oneof=group preserve key-value-pairs"`

	// TypeNarrowing is all (default), unquoted or none.
	TypeNarrowing string `json:"type_narrowing" yaml:"type_narrowing" validate:"omitempty,oneof=all unquoted none"`

	// Pretty indents the output; nil means true.
	Pretty *bool `json:"pretty,omitempty" yaml:"pretty,omitempty"`

	// MaxInputBytes rejects larger inputs. Zero disables the check.
	MaxInputBytes int64 `json:"max_input_bytes" yaml:"max_input_bytes" validate:"gte=0"`
}

// DefaultTapeOptions returns preserve, all and pretty printing.
func DefaultTapeOptions() *TapeOptions {
	pretty := true
	return &TapeOptions{
		DuplicateKeys: tape.Preserve.String(),
		TypeNarrowing: tape.NarrowAll.String(),
		Pretty:        &pretty,
	}
}

// Validate checks the options.
func (o *TapeOptions) Validate() error {
	if err := optionsValidate.Struct(o); err != nil {
		return errors.Wrap(errors.CodeInvalidInput, "invalid tape options", err)
	}
	return nil
}

// tapeOptions maps the validated string options onto the converter enums.
func (o *TapeOptions) tapeOptions() (tape.Options, error) {
	opts := tape.DefaultOptions()

	mode, err := tape.ParseDuplicateKeyMode(o.DuplicateKeys)
	if err != nil {
		return opts, errors.Wrap(errors.CodeInvalidInput, "invalid tape options", err)
	}
	narrowing, err := tape.ParseTypeNarrowing(o.TypeNarrowing)
	if err != nil {
		return opts, errors.Wrap(errors.CodeInvalidInput, "invalid tape options", err)
	}

	opts.DuplicateKeys = mode
	opts.TypeNarrowing = narrowing
	if o.Pretty != nil {
		opts.Pretty = *o.Pretty
	}
	return opts, nil
}

// OptionsFromConfig maps the analysis section of the configuration onto
// AnalysisOptions. A zero max_items means unlimited.
func OptionsFromConfig(cfg config.AnalysisConfig) *AnalysisOptions {
	opts := &AnalysisOptions{
		MaxItems:         cfg.MaxItems,
		ShowDataSegments: cfg.ShowDataSegments,
		Format:           cfg.Format,
		Pretty:           cfg.Pretty,
		IncludeSummary:   cfg.IncludeSummary,
		MaxInputBytes:    cfg.MaxInputBytes,
	}
	if opts.MaxItems == 0 {
		opts.MaxItems = garbage.Unlimited
	}
	if opts.Format == "" {
		opts.Format = decoder.FormatAuto.String()
	}
	return opts
}

// TapeOptionsFromConfig maps the tape section of the configuration onto
// TapeOptions.
func TapeOptionsFromConfig(cfg config.TapeConfig) *TapeOptions {
	pretty := cfg.Pretty
	return &TapeOptions{
		DuplicateKeys: cfg.DuplicateKeys,
		TypeNarrowing: cfg.TypeNarrowing,
		Pretty:        &pretty,
	}
}
