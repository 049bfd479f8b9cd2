// Package service ties the analysis façade to report storage and run
// history. Both the HTTP server and the CLI drive analyses through it.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/size-analysis/internal/analyzer"
	"github.com/size-analysis/internal/repository"
	"github.com/size-analysis/internal/storage"
	"github.com/size-analysis/pkg/config"
	"github.com/size-analysis/pkg/errors"
	"github.com/size-analysis/pkg/model"
	"github.com/size-analysis/pkg/utils"
)

// ErrHistoryDisabled is returned by run queries when no database is
// configured.
var ErrHistoryDisabled = errors.New(errors.CodeConfigError, "run history is disabled")

// Service is the main application service.
type Service struct {
	config  *config.Config
	logger  utils.Logger
	facade  *analyzer.Facade
	storage storage.Storage
	runs    repository.RunRepository
	repos   *repository.Repositories
	clock   utils.Clock
	newID   func() string
	tracing bool
}

// Option configures a Service.
type Option func(*Service)

// WithStorage sets the report store instead of building one from config.
func WithStorage(s storage.Storage) Option {
	return func(svc *Service) { svc.storage = s }
}

// WithRunRepository sets the run history instead of opening the configured
// database.
func WithRunRepository(r repository.RunRepository) Option {
	return func(svc *Service) { svc.runs = r }
}

// WithFacade sets the analysis façade.
func WithFacade(f *analyzer.Facade) Option {
	return func(svc *Service) { svc.facade = f }
}

// WithClock sets the clock used for run timestamps.
func WithClock(c utils.Clock) Option {
	return func(svc *Service) { svc.clock = c }
}

// WithIDGenerator sets the run id generator.
func WithIDGenerator(fn func() string) Option {
	return func(svc *Service) { svc.newID = fn }
}

// WithTracing enables database tracing when the database is opened.
func WithTracing(enabled bool) Option {
	return func(svc *Service) { svc.tracing = enabled }
}

// New creates a new Service instance. Call Initialize before use.
func New(cfg *config.Config, logger utils.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeConfigError, "config is nil")
	}
	s := &Service{
		config: cfg,
		logger: utils.OrNull(logger),
		clock:  utils.NewRealClock(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.facade == nil {
		s.facade = analyzer.NewFacade(analyzer.WithLogger(s.logger), analyzer.WithClock(s.clock))
	}
	return s, nil
}

// Initialize opens the report storage and, when enabled, the run history
// database. Components injected through options are kept.
func (s *Service) Initialize(ctx context.Context) error {
	if s.storage == nil {
		s.logger.Info("Initializing storage (%s)...", s.config.Storage.Type)
		store, err := storage.NewStorage(&s.config.Storage)
		if err != nil {
			return err
		}
		s.storage = store
	}

	if s.runs == nil && s.config.Database.Enabled {
		s.logger.Info("Connecting to database (%s)...", s.config.Database.DSN())
		repos, err := repository.Open(&s.config.Database, repository.WithTracing(s.tracing))
		if err != nil {
			return err
		}
		s.repos = repos
		s.runs = repos.Runs
	}

	s.logger.Info("Service components initialized")
	return nil
}

// Close releases the database connection.
func (s *Service) Close() error {
	if s.repos != nil {
		return s.repos.Close()
	}
	return nil
}

// HealthCheck verifies the database connection when one is open.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.repos == nil {
		return nil
	}
	if err := s.repos.HealthCheck(ctx); err != nil {
		return errors.Wrap(errors.CodeDatabaseError, "database unavailable", err)
	}
	return nil
}

// HistoryEnabled reports whether runs are recorded.
func (s *Service) HistoryEnabled() bool {
	return s.runs != nil
}

// Facade returns the analysis façade.
func (s *Service) Facade() *analyzer.Facade {
	return s.facade
}

// AnalysisOptions returns the configured analysis defaults.
func (s *Service) AnalysisOptions() *analyzer.AnalysisOptions {
	return analyzer.OptionsFromConfig(s.config.Analysis)
}

// TapeOptions returns the configured tape conversion defaults.
func (s *Service) TapeOptions() *analyzer.TapeOptions {
	return analyzer.TapeOptionsFromConfig(s.config.Tape)
}

// AnalyzeRequest describes one module analysis.
type AnalyzeRequest struct {
	// Source names the input, e.g. a file path or upload name.
	Source string
	Data   []byte
	// Options defaults to the configured analysis options when nil.
	Options *analyzer.AnalysisOptions
	// StoreReport uploads the document to storage.
	StoreReport bool
}

// RunResult is a finished analysis together with its history record.
type RunResult struct {
	Run    *model.Run
	Result *analyzer.Result
}

// Analyze runs one module analysis, recording it in the history and
// storing the report when requested. The analysis error, if any, is
// returned unchanged after the failed run has been recorded.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*RunResult, error) {
	opts := req.Options
	if opts == nil {
		opts = s.AnalysisOptions()
	}

	run := model.NewRun(s.newID(), req.Source)
	run.CreateTime = s.clock.Now()
	run.InputSize = int64(len(req.Data))
	if err := s.record(ctx, run, true); err != nil {
		return nil, err
	}

	logger := s.logger.WithFields(map[string]interface{}{"run_id": run.RunID, "source": req.Source})
	begin := s.clock.Now()
	run.BeginTime = &begin
	run.Status = model.RunStatusRunning

	var res *analyzer.Result
	err := s.record(ctx, run, false)
	if err == nil {
		res, err = s.facade.AnalyzeModule(ctx, req.Data, opts)
	}
	if err == nil {
		run.Format = res.Format.String()
		run.ApplySummary(res.Summary)
		if req.StoreReport && s.storage == nil {
			err = errors.New(errors.CodeConfigError, "report storage is not initialized")
		} else if req.StoreReport {
			run.ReportKey, err = storage.SaveReport(ctx, s.storage, run.RunID, res.JSON, s.config.Analysis.CompressReports)
		}
	}

	end := s.clock.Now()
	run.EndTime = &end
	if err != nil {
		run.Status = model.RunStatusFailed
		run.StatusInfo = err.Error()
		logger.Warn("Analysis failed: %v", err)
		if recErr := s.record(context.WithoutCancel(ctx), run, false); recErr != nil {
			logger.Error("Failed to record run: %v", recErr)
		}
		return &RunResult{Run: run}, err
	}

	// The analysis is done; a cancelled caller must not leave the run open.
	run.Status = model.RunStatusCompleted
	if err := s.record(context.WithoutCancel(ctx), run, false); err != nil {
		return nil, err
	}
	logger.Info("Run completed in %v: %d items, %d garbage", run.Duration(), run.ItemCount, run.GarbageCount)
	return &RunResult{Run: run, Result: res}, nil
}

func (s *Service) record(ctx context.Context, run *model.Run, create bool) error {
	if s.runs == nil {
		return nil
	}
	if create {
		return s.runs.Create(ctx, run)
	}
	return s.runs.Update(ctx, run)
}

// Convert converts tape text to JSON. nil opts uses the configured defaults.
func (s *Service) Convert(ctx context.Context, text []byte, opts *analyzer.TapeOptions) (string, error) {
	if opts == nil {
		opts = s.TapeOptions()
	}
	return s.facade.ConvertTape(ctx, text, opts)
}

// GetRun returns one recorded run.
func (s *Service) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	if s.runs == nil {
		return nil, ErrHistoryDisabled
	}
	return s.runs.GetByRunID(ctx, runID)
}

// ListRuns returns recorded runs newest first.
func (s *Service) ListRuns(ctx context.Context, filter repository.ListFilter) ([]*model.Run, error) {
	if s.runs == nil {
		return nil, ErrHistoryDisabled
	}
	return s.runs.List(ctx, filter)
}

// PruneRuns deletes runs older than age.
func (s *Service) PruneRuns(ctx context.Context, age time.Duration) (int64, error) {
	if s.runs == nil {
		return 0, ErrHistoryDisabled
	}
	return s.runs.DeleteBefore(ctx, s.clock.Now().Add(-age))
}

// Report returns the stored report of a run.
func (s *Service) Report(ctx context.Context, runID string) ([]byte, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.ReportKey == "" {
		return nil, errors.Newf(errors.CodeNotFound, "run %s has no stored report", runID)
	}
	return storage.LoadReport(ctx, s.storage, run.ReportKey)
}
