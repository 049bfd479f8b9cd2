package service

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/size-analysis/internal/analyzer"
	"github.com/size-analysis/internal/mock"
	"github.com/size-analysis/internal/repository"
	"github.com/size-analysis/internal/testutil"
	"github.com/size-analysis/pkg/config"
	"github.com/size-analysis/pkg/errors"
	"github.com/size-analysis/pkg/model"
	"github.com/size-analysis/pkg/utils"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *utils.MockClock) {
	t.Helper()
	clock := utils.NewMockClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	base := []Option{
		WithClock(clock),
		WithIDGenerator(func() string { return "run-1" }),
	}
	svc, err := New(config.Default(), nil, append(base, opts...)...)
	require.NoError(t, err)
	return svc, clock
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.True(t, errors.IsConfigError(err))
}

func TestService_AnalyzeRecordsRun(t *testing.T) {
	runs := new(mock.MockRunRepository)
	store := new(mock.MockStorage)

	runs.On("Create", testifymock.Anything, testifymock.MatchedBy(func(r *model.Run) bool {
		return r.RunID == "run-1" && r.Source == "app.json"
	})).Return(nil).Once()
	store.On("Put", testifymock.Anything, "reports/run-1.json", testifymock.AnythingOfType("[]uint8")).Return(nil).Once()
	runs.On("Update", testifymock.Anything, testifymock.MatchedBy(func(r *model.Run) bool {
		return r.Status == model.RunStatusRunning && r.BeginTime != nil && r.EndTime == nil
	})).Return(nil).Once()
	runs.On("Update", testifymock.Anything, testifymock.MatchedBy(func(r *model.Run) bool {
		return r.Status == model.RunStatusCompleted &&
			r.ReportKey == "reports/run-1.json" &&
			r.ItemCount == 3 &&
			r.GarbageCount == 1 &&
			r.GarbageSize == 7 &&
			r.Format == "json"
	})).Return(nil).Once()

	svc, _ := newTestService(t, WithRunRepository(runs), WithStorage(store))
	res, err := svc.Analyze(context.Background(), AnalyzeRequest{
		Source:      "app.json",
		Data:        []byte(testutil.SampleGraphJSON),
		StoreReport: true,
	})
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusCompleted, res.Run.Status)
	assert.Equal(t, int64(len(testutil.SampleGraphJSON)), res.Run.InputSize)
	require.NotNil(t, res.Result)
	assert.Equal(t, 1, res.Result.Summary.GarbageCount)

	runs.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestService_AnalyzeFailureIsRecorded(t *testing.T) {
	runs := new(mock.MockRunRepository)
	runs.On("Create", testifymock.Anything, testifymock.Anything).Return(nil).Once()
	runs.On("Update", testifymock.Anything, testifymock.MatchedBy(func(r *model.Run) bool {
		return r.Status == model.RunStatusRunning
	})).Return(nil).Once()
	runs.On("Update", testifymock.Anything, testifymock.MatchedBy(func(r *model.Run) bool {
		return r.Status == model.RunStatusFailed && strings.Contains(r.StatusInfo, "GRAPH_CONSISTENCY")
	})).Return(nil).Once()

	svc, _ := newTestService(t, WithRunRepository(runs))
	res, err := svc.Analyze(context.Background(), AnalyzeRequest{
		Source: "broken.json",
		Data:   []byte(testutil.DanglingGraphJSON),
	})
	require.Error(t, err)
	assert.True(t, errors.IsGraphConsistencyError(err))
	require.NotNil(t, res)
	assert.Equal(t, model.RunStatusFailed, res.Run.Status)
	assert.Nil(t, res.Result)

	runs.AssertExpectations(t)
}

func TestService_AnalyzeCreateFails(t *testing.T) {
	runs := new(mock.MockRunRepository)
	runs.On("Create", testifymock.Anything, testifymock.Anything).
		Return(errors.New(errors.CodeDatabaseError, "down")).Once()

	svc, _ := newTestService(t, WithRunRepository(runs))
	_, err := svc.Analyze(context.Background(), AnalyzeRequest{Data: []byte(testutil.SampleGraphJSON)})
	assert.True(t, errors.IsDatabaseError(err))
	runs.AssertNotCalled(t, "Update", testifymock.Anything, testifymock.Anything)
}

func TestService_AnalyzeRunningUpdateFails(t *testing.T) {
	runs := new(mock.MockRunRepository)
	runs.On("Create", testifymock.Anything, testifymock.Anything).Return(nil).Once()
	runs.On("Update", testifymock.Anything, testifymock.MatchedBy(func(r *model.Run) bool {
		return r.Status == model.RunStatusRunning
	})).Return(errors.New(errors.CodeDatabaseError, "locked")).Once()
	runs.On("Update", testifymock.Anything, testifymock.MatchedBy(func(r *model.Run) bool {
		return r.Status == model.RunStatusFailed && strings.Contains(r.StatusInfo, "locked")
	})).Return(nil).Once()

	svc, _ := newTestService(t, WithRunRepository(runs))
	res, err := svc.Analyze(context.Background(), AnalyzeRequest{Data: []byte(testutil.SampleGraphJSON)})
	assert.True(t, errors.IsDatabaseError(err))
	require.NotNil(t, res)
	assert.Nil(t, res.Result)

	runs.AssertExpectations(t)
}

// contextRepository fails updates whose context is already done, like a
// database driver would.
type contextRepository struct {
	*mock.MockRunRepository
}

func (r *contextRepository) Update(ctx context.Context, run *model.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.MockRunRepository.Update(ctx, run)
}

func TestService_AnalyzeCompletesAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := new(mock.MockRunRepository)
	store := new(mock.MockStorage)
	runs.On("Create", testifymock.Anything, testifymock.Anything).Return(nil).Once()
	runs.On("Update", testifymock.Anything, testifymock.MatchedBy(func(r *model.Run) bool {
		return r.Status == model.RunStatusRunning
	})).Return(nil).Once()
	// The client goes away once the report is stored.
	store.On("Put", testifymock.Anything, "reports/run-1.json", testifymock.Anything).
		Run(func(testifymock.Arguments) { cancel() }).Return(nil).Once()
	runs.On("Update", testifymock.Anything, testifymock.MatchedBy(func(r *model.Run) bool {
		return r.Status == model.RunStatusCompleted && r.ReportKey == "reports/run-1.json"
	})).Return(nil).Once()

	svc, _ := newTestService(t, WithRunRepository(&contextRepository{runs}), WithStorage(store))
	res, err := svc.Analyze(ctx, AnalyzeRequest{Data: []byte(testutil.SampleGraphJSON), StoreReport: true})
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, res.Run.Status)

	runs.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestService_AnalyzeWithoutHistory(t *testing.T) {
	svc, _ := newTestService(t)
	assert.False(t, svc.HistoryEnabled())

	res, err := svc.Analyze(context.Background(), AnalyzeRequest{Data: []byte(testutil.SampleGraphJSON)})
	require.NoError(t, err)
	assert.Empty(t, res.Run.ReportKey)

	_, err = svc.GetRun(context.Background(), "run-1")
	assert.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = svc.ListRuns(context.Background(), repository.ListFilter{})
	assert.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = svc.PruneRuns(context.Background(), time.Hour)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestService_AnalyzeUsesConfiguredOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.IncludeSummary = true

	svc, err := New(cfg, nil)
	require.NoError(t, err)
	res, err := svc.Analyze(context.Background(), AnalyzeRequest{Data: []byte(testutil.SampleGraphJSON)})
	require.NoError(t, err)
	assert.NotNil(t, res.Result.Document.Summary)

	res, err = svc.Analyze(context.Background(), AnalyzeRequest{
		Data:    []byte(testutil.SampleGraphJSON),
		Options: analyzer.DefaultAnalysisOptions(),
	})
	require.NoError(t, err)
	assert.Nil(t, res.Result.Document.Summary)
}

func TestService_Report(t *testing.T) {
	runs := new(mock.MockRunRepository)
	store := new(mock.MockStorage)

	runs.On("GetByRunID", testifymock.Anything, "run-1").
		Return(&model.Run{RunID: "run-1", ReportKey: "reports/run-1.json"}, nil)
	runs.On("GetByRunID", testifymock.Anything, "run-2").
		Return(&model.Run{RunID: "run-2"}, nil)
	store.On("Get", testifymock.Anything, "reports/run-1.json").
		Return(io.NopCloser(strings.NewReader(`{"dominators":[],"garbage":[]}`)), nil)

	svc, _ := newTestService(t, WithRunRepository(runs), WithStorage(store))

	data, err := svc.Report(context.Background(), "run-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"dominators":[],"garbage":[]}`, string(data))

	_, err = svc.Report(context.Background(), "run-2")
	assert.True(t, errors.IsNotFound(err))
}

func TestService_PruneRuns(t *testing.T) {
	runs := new(mock.MockRunRepository)
	svc, clock := newTestService(t, WithRunRepository(runs))

	cutoff := clock.Now().Add(-24 * time.Hour)
	runs.On("DeleteBefore", testifymock.Anything, cutoff).Return(int64(3), nil).Once()

	n, err := svc.PruneRuns(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	runs.AssertExpectations(t)
}

func TestService_Convert(t *testing.T) {
	svc, _ := newTestService(t)

	out, err := svc.Convert(context.Background(), []byte("a=1\nb=yes\n"), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":true}`, out)
}

func TestService_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.LocalPath = filepath.Join(dir, "storage")
	cfg.Database.Enabled = true
	cfg.Database.Path = filepath.Join(dir, "runs.db")
	cfg.Analysis.CompressReports = true

	svc, err := New(cfg, utils.NewDefaultLogger(utils.LevelError, io.Discard))
	require.NoError(t, err)
	require.NoError(t, svc.Initialize(context.Background()))
	t.Cleanup(func() { _ = svc.Close() })

	require.NoError(t, svc.HealthCheck(context.Background()))

	res, err := svc.Analyze(context.Background(), AnalyzeRequest{
		Source:      "app.json",
		Data:        []byte(testutil.SampleGraphJSON),
		StoreReport: true,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Run.ReportKey, ".json.gz"))

	run, err := svc.GetRun(context.Background(), res.Run.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.GarbageCount)

	runs, err := svc.ListRuns(context.Background(), repository.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	report, err := svc.Report(context.Background(), res.Run.RunID)
	require.NoError(t, err)
	assert.JSONEq(t, string(res.Result.JSON), string(report))
}
