// Package analyzer is the invocation façade: it validates options, drives
// the decode, classify, dominate and serialize pipeline, and maps failures
// to a single reported error.
package analyzer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/size-analysis/internal/decoder"
	"github.com/size-analysis/internal/dominator"
	"github.com/size-analysis/internal/garbage"
	"github.com/size-analysis/internal/itemgraph"
	"github.com/size-analysis/internal/serializer"
	"github.com/size-analysis/internal/tape"
	"github.com/size-analysis/pkg/compression"
	"github.com/size-analysis/pkg/errors"
	"github.com/size-analysis/pkg/metrics"
	"github.com/size-analysis/pkg/model"
	"github.com/size-analysis/pkg/utils"
)

const tracerName = "github.com/size-analysis/internal/analyzer"

// Stage names used for spans, timings and metrics.
const (
	StageDecompress = "decompress"
	StageDecode     = "decode"
	StageClassify   = "classify"
	StageDominate   = "dominate"
	StageReport     = "report"
	StageSerialize  = "serialize"
	StageConvert    = "convert"
)

// Result is the outcome of one module analysis.
type Result struct {
	// Document is the structured form of JSON.
	Document *model.Document
	// JSON is the encoded document.
	JSON []byte
	// Summary is always computed, even when the document omits it.
	Summary *model.Summary
	// Format is the decoder actually used.
	Format decoder.Format
	// Compression is the compression detected on the input.
	Compression compression.Type
	// Stages maps stage names to durations in milliseconds.
	Stages map[string]int64
}

// Facade runs analyses and tape conversions. It holds no per-call state and
// is safe for concurrent use.
type Facade struct {
	registry *decoder.Registry
	logger   utils.Logger
	clock    utils.Clock
	tracer   trace.Tracer
}

// Option configures a Facade.
type Option func(*Facade)

// WithRegistry sets the decoder registry.
func WithRegistry(r *decoder.Registry) Option {
	return func(f *Facade) {
		if r != nil {
			f.registry = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(f *Facade) {
		f.logger = utils.OrNull(logger)
	}
}

// WithClock sets the clock used for stage timings.
func WithClock(clock utils.Clock) Option {
	return func(f *Facade) {
		if clock != nil {
			f.clock = clock
		}
	}
}

// NewFacade creates a Facade with the default decoder registry.
func NewFacade(opts ...Option) *Facade {
	f := &Facade{
		registry: decoder.NewDefaultRegistry(),
		logger:   &utils.NullLogger{},
		clock:    utils.NewRealClock(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// AnalyzeModule decodes data (gzip or zstd compressed input is accepted) and
// analyzes the resulting item graph. opts may be nil for the defaults.
func (f *Facade) AnalyzeModule(ctx context.Context, data []byte, opts *AnalysisOptions) (res *Result, err error) {
	if opts == nil {
		opts = DefaultAnalysisOptions()
	}

	ctx, span := f.tracer.Start(ctx, "analyzer.AnalyzeModule",
		trace.WithAttributes(attribute.Int("input.bytes", len(data))))
	defer span.End()

	formatLabel := "unknown"
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, errors.Wrap(errors.CodeAnalysisError, "analysis failed", utils.RecoverError(r))
		}
		endSpan(span, err)
		metrics.ObserveAnalysis(metrics.Result(err), formatLabel)
	}()

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	timer := utils.NewTimer("analysis", utils.WithClock(f.clock), utils.WithLogger(f.logger))

	var (
		raw  []byte
		kind compression.Type
	)
	err = f.stage(ctx, timer, StageDecompress, func(context.Context) error {
		var derr error
		raw, kind, derr = compression.MaybeDecompress(data)
		if derr != nil {
			return errors.Wrap(errors.CodeStructural, "undecodable input", derr)
		}
		if opts.MaxInputBytes > 0 && int64(len(raw)) > opts.MaxInputBytes {
			return errors.Newf(errors.CodeInvalidInput, "input of %d bytes exceeds the limit of %d bytes",
				len(raw), opts.MaxInputBytes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var (
		g      *itemgraph.Graph
		format decoder.Format
	)
	err = f.stage(ctx, timer, StageDecode, func(ctx context.Context) error {
		var derr error
		g, format, derr = f.registry.Decode(ctx, raw, opts.format())
		return derr
	})
	formatLabel = format.String()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("input.format", formatLabel), attribute.Int("graph.items", g.Len()))

	res, err = f.analyze(ctx, g, opts, timer)
	if err != nil {
		return nil, err
	}
	res.Format = format
	res.Compression = kind

	f.logger.WithFields(map[string]interface{}{
		"format":  formatLabel,
		"items":   res.Summary.ItemCount,
		"garbage": res.Summary.GarbageCount,
	}).Info("Analysis completed in %v", timer.Total())
	return res, nil
}

// AnalyzeGraph runs the analyses over an already built item graph.
func (f *Facade) AnalyzeGraph(ctx context.Context, g *itemgraph.Graph, opts *AnalysisOptions) (res *Result, err error) {
	if opts == nil {
		opts = DefaultAnalysisOptions()
	}
	if g == nil {
		return nil, errors.New(errors.CodeInvalidInput, "nil item graph")
	}

	ctx, span := f.tracer.Start(ctx, "analyzer.AnalyzeGraph",
		trace.WithAttributes(attribute.Int("graph.items", g.Len())))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, errors.Wrap(errors.CodeAnalysisError, "analysis failed", utils.RecoverError(r))
		}
		endSpan(span, err)
	}()

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	timer := utils.NewTimer("analysis", utils.WithClock(f.clock), utils.WithLogger(f.logger))
	return f.analyze(ctx, g, opts, timer)
}

func (f *Facade) analyze(ctx context.Context, g *itemgraph.Graph, opts *AnalysisOptions, timer *utils.Timer) (*Result, error) {
	var (
		partition *garbage.Partition
		forest    *dominator.Forest
		report    *model.GarbageReport
		encoded   []byte
		doc       *model.Document
	)

	err := f.stage(ctx, timer, StageClassify, func(context.Context) error {
		partition = garbage.Classify(g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = f.stage(ctx, timer, StageDominate, func(context.Context) error {
		forest = dominator.Compute(g, partition.Alive)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = f.stage(ctx, timer, StageReport, func(context.Context) error {
		report = garbage.Report(g, partition, opts.garbageOptions())
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary := Summarize(g, partition, forest, report)
	err = f.stage(ctx, timer, StageSerialize, func(context.Context) error {
		var docSummary *model.Summary
		if opts.IncludeSummary {
			docSummary = summary
		}
		doc = serializer.NewDocument(forest.Entries(), report, docSummary)
		var serr error
		encoded, serr = serializer.Encode(doc, serializer.Options{Pretty: opts.Pretty})
		return serr
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveGraph(g.Len(), summary.GarbageSize)
	return &Result{
		Document: doc,
		JSON:     encoded,
		Summary:  summary,
		Stages:   timer.Millis(),
	}, nil
}

// DecodeGraph decompresses and decodes data into an item graph without
// analyzing it. format is a decoder name or "auto".
func (f *Facade) DecodeGraph(ctx context.Context, data []byte, format string) (*itemgraph.Graph, decoder.Format, error) {
	parsed, err := decoder.ParseFormat(format)
	if err != nil {
		return nil, decoder.FormatAuto, errors.Wrap(errors.CodeInvalidInput, "invalid input format", err)
	}
	raw, _, err := compression.MaybeDecompress(data)
	if err != nil {
		return nil, parsed, errors.Wrap(errors.CodeStructural, "undecodable input", err)
	}
	return f.registry.Decode(ctx, raw, parsed)
}

// ConvertTape converts key/value tape text to JSON. opts may be nil for the
// defaults.
func (f *Facade) ConvertTape(ctx context.Context, text []byte, opts *TapeOptions) (out string, err error) {
	if opts == nil {
		opts = DefaultTapeOptions()
	}

	ctx, span := f.tracer.Start(ctx, "analyzer.ConvertTape",
		trace.WithAttributes(attribute.Int("input.bytes", len(text))))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			out, err = "", errors.Wrap(errors.CodeAnalysisError, "tape conversion failed", utils.RecoverError(r))
		}
		endSpan(span, err)
		metrics.ObserveTape(metrics.Result(err))
	}()

	if err := opts.Validate(); err != nil {
		return "", err
	}
	if opts.MaxInputBytes > 0 && int64(len(text)) > opts.MaxInputBytes {
		return "", errors.Newf(errors.CodeInvalidInput, "input of %d bytes exceeds the limit of %d bytes",
			len(text), opts.MaxInputBytes)
	}
	tapeOpts, err := opts.tapeOptions()
	if err != nil {
		return "", err
	}

	timer := utils.NewTimer("tape", utils.WithClock(f.clock), utils.WithLogger(f.logger))
	err = f.stage(ctx, timer, StageConvert, func(context.Context) error {
		var cerr error
		out, cerr = tape.Convert(text, tapeOpts)
		return cerr
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// stage runs fn inside a child span, timing it and recording the duration
// metric. The context is checked before fn starts; fn itself runs to
// completion.
func (f *Facade) stage(ctx context.Context, timer *utils.Timer, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := f.tracer.Start(ctx, name)
	defer span.End()

	st := timer.Start(name)
	err := fn(ctx)
	d := st.Stop()
	metrics.ObserveStage(name, d)

	if err != nil {
		err = normalizeError(err)
		endSpan(span, err)
		f.logger.WithField("stage", name).Warn("Stage failed after %v: %v", d, err)
		return err
	}
	return nil
}

// Summarize computes the aggregate figures of one analysis.
func Summarize(g *itemgraph.Graph, p *garbage.Partition, f *dominator.Forest, report *model.GarbageReport) *model.Summary {
	return &model.Summary{
		ItemCount:           g.Len(),
		EdgeCount:           g.EdgeCount(),
		RootCount:           len(g.Roots()),
		AliveCount:          p.AliveCount(),
		GarbageCount:        p.GarbageCount(),
		TotalSize:           g.TotalSize(),
		AliveSize:           g.SizeOf(p.Alive),
		GarbageSize:         g.SizeOf(p.Garbage),
		SharedSize:          f.SharedSize(),
		OmittedGarbageCount: report.OmittedCount,
		OmittedGarbageSize:  report.OmittedSize,
	}
}
