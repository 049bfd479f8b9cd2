package repository

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/size-analysis/pkg/errors"
	"github.com/size-analysis/pkg/model"
)

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// Create inserts a run record.
func (r *GormRunRepository) Create(ctx context.Context, run *model.Run) error {
	if run.CreateTime.IsZero() {
		run.CreateTime = time.Now()
	}
	row := FromModel(run)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return errors.Wrap(errors.CodeDatabaseError, "failed to create run", err)
	}
	run.ID = row.ID
	return nil
}

// Update writes the mutable columns of run.
func (r *GormRunRepository) Update(ctx context.Context, run *model.Run) error {
	result := r.db.WithContext(ctx).
		Model(&AnalysisRun{}).
		Where("run_id = ?", run.RunID).
		Updates(map[string]interface{}{
			"format":        run.Format,
			"status":        run.Status,
			"status_info":   run.StatusInfo,
			"input_size":    run.InputSize,
			"item_count":    run.ItemCount,
			"alive_count":   run.AliveCount,
			"garbage_count": run.GarbageCount,
			"total_size":    run.TotalSize,
			"garbage_size":  run.GarbageSize,
			"shared_size":   run.SharedSize,
			"report_key":    run.ReportKey,
			"begin_time":    run.BeginTime,
			"end_time":      run.EndTime,
		})
	if result.Error != nil {
		return errors.Wrap(errors.CodeDatabaseError, "failed to update run", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Newf(errors.CodeNotFound, "run not found: %s", run.RunID)
	}
	return nil
}

// GetByRunID retrieves a run by its run id.
func (r *GormRunRepository) GetByRunID(ctx context.Context, runID string) (*model.Run, error) {
	var row AnalysisRun
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&row).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.CodeNotFound, "run not found: %s", runID)
		}
		return nil, errors.Wrap(errors.CodeDatabaseError, "failed to get run", err)
	}
	return row.ToModel(), nil
}

// List retrieves runs newest first.
func (r *GormRunRepository) List(ctx context.Context, filter ListFilter) ([]*model.Run, error) {
	query := r.db.WithContext(ctx).Model(&AnalysisRun{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}

	var rows []AnalysisRun
	err := query.
		Order("create_time DESC").
		Order("id DESC").
		Limit(filter.limit()).
		Offset(filter.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "failed to list runs", err)
	}

	runs := make([]*model.Run, len(rows))
	for i := range rows {
		runs[i] = rows[i].ToModel()
	}
	return runs, nil
}

// DeleteBefore removes runs created before t.
func (r *GormRunRepository) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("create_time < ?", t).Delete(&AnalysisRun{})
	if result.Error != nil {
		return 0, errors.Wrap(errors.CodeDatabaseError, "failed to delete runs", result.Error)
	}
	return result.RowsAffected, nil
}
