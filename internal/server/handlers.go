package server

import (
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/size-analysis/internal/analyzer"
	"github.com/size-analysis/internal/repository"
	"github.com/size-analysis/internal/service"
	"github.com/size-analysis/pkg/errors"
	"github.com/size-analysis/pkg/model"
)

// RunIDHeader carries the run id of an analysis response.
const RunIDHeader = "X-Run-ID"

// analyzeQuery overrides the configured analysis options. Unset fields keep
// the configured value.
type analyzeQuery struct {
	MaxItems         *uint32 `form:"max_items"`
	ShowDataSegments *bool   `form:"show_data_segments"`
	Format           *string `form:"format"`
	Pretty           *bool   `form:"pretty"`
	IncludeSummary   *bool   `form:"include_summary"`
	Source           string  `form:"source"`
	Store            bool    `form:"store"`
}

func (q *analyzeQuery) apply(opts *analyzer.AnalysisOptions) {
	if q.MaxItems != nil {
		opts.MaxItems = *q.MaxItems
	}
	if q.ShowDataSegments != nil {
		opts.ShowDataSegments = *q.ShowDataSegments
	}
	if q.Format != nil {
		opts.Format = *q.Format
	}
	if q.Pretty != nil {
		opts.Pretty = *q.Pretty
	}
	if q.IncludeSummary != nil {
		opts.IncludeSummary = *q.IncludeSummary
	}
}

type convertQuery struct {
	DuplicateKeys *string `form:"duplicate_keys"`
	TypeNarrowing *string `form:"type_narrowing"`
	Pretty        *bool   `form:"pretty"`
}

func (q *convertQuery) apply(opts *analyzer.TapeOptions) {
	if q.DuplicateKeys != nil {
		opts.DuplicateKeys = *q.DuplicateKeys
	}
	if q.TypeNarrowing != nil {
		opts.TypeNarrowing = *q.TypeNarrowing
	}
	if q.Pretty != nil {
		opts.Pretty = q.Pretty
	}
}

type listQuery struct {
	Status string `form:"status"`
	Source string `form:"source"`
	Limit  int    `form:"limit" binding:"gte=0"`
	Offset int    `form:"offset" binding:"gte=0"`
}

// readBody reads the request body up to the configured limit.
func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body := c.Request.Body
	if s.cfg.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(c.Writer, body, s.cfg.MaxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": ErrorBody{
				Code:    errors.CodeInvalidInput,
				Message: "request body too large",
			}})
			return nil, false
		}
		s.abort(c, errors.Wrap(errors.CodeInvalidInput, "failed to read request body", err))
		return nil, false
	}
	return data, true
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var q analyzeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.abort(c, errors.Wrap(errors.CodeInvalidInput, "invalid query", err))
		return
	}
	data, ok := s.readBody(c)
	if !ok {
		return
	}

	opts := s.svc.AnalysisOptions()
	q.apply(opts)

	res, err := s.svc.Analyze(c.Request.Context(), service.AnalyzeRequest{
		Source:      q.Source,
		Data:        data,
		Options:     opts,
		StoreReport: q.Store,
	})
	if res != nil && res.Run != nil {
		c.Header(RunIDHeader, res.Run.RunID)
	}
	if err != nil {
		s.abort(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", res.Result.JSON)
}

func (s *Server) handleConvert(c *gin.Context) {
	var q convertQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.abort(c, errors.Wrap(errors.CodeInvalidInput, "invalid query", err))
		return
	}
	data, ok := s.readBody(c)
	if !ok {
		return
	}

	opts := s.svc.TapeOptions()
	q.apply(opts)

	out, err := s.svc.Convert(c.Request.Context(), data, opts)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", []byte(out))
}

func (s *Server) handleListRuns(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.abort(c, errors.Wrap(errors.CodeInvalidInput, "invalid query", err))
		return
	}

	filter := repository.ListFilter{Source: q.Source, Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		status, err := parseStatus(q.Status)
		if err != nil {
			s.abort(c, err)
			return
		}
		filter.Status = &status
	}

	runs, err := s.svc.ListRuns(c.Request.Context(), filter)
	if err != nil {
		s.abort(c, err)
		return
	}
	if runs == nil {
		runs = []*model.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	run, err := s.svc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleReport(c *gin.Context) {
	data, err := s.svc.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.svc.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "history": s.svc.HistoryEnabled()})
}

func parseStatus(name string) (model.RunStatus, error) {
	for _, st := range []model.RunStatus{
		model.RunStatusPending,
		model.RunStatusRunning,
		model.RunStatusCompleted,
		model.RunStatusFailed,
	} {
		if strings.EqualFold(st.String(), name) {
			return st, nil
		}
	}
	return 0, errors.Newf(errors.CodeInvalidInput, "unknown run status %q", name)
}
