package repository

import (
	"time"

	"github.com/size-analysis/pkg/model"
)

// AnalysisRun represents the analysis_runs table.
type AnalysisRun struct {
	ID           int64           `gorm:"column:id;primaryKey;autoIncrement"`
	RunID        string          `gorm:"column:run_id;type:varchar(64);uniqueIndex"`
	Source       string          `gorm:"column:source;type:varchar(512);index"`
	Format       string          `gorm:"column:format;type:varchar(16)"`
	Status       model.RunStatus `gorm:"column:status;index"`
	StatusInfo   string          `gorm:"column:status_info;type:text"`
	InputSize    int64           `gorm:"column:input_size"`
	ItemCount    int             `gorm:"column:item_count"`
	AliveCount   int             `gorm:"column:alive_count"`
	GarbageCount int             `gorm:"column:garbage_count"`
	TotalSize    uint64          `gorm:"column:total_size"`
	GarbageSize  uint64          `gorm:"column:garbage_size"`
	SharedSize   uint64          `gorm:"column:shared_size"`
	ReportKey    string          `gorm:"column:report_key;type:varchar(512)"`
	CreateTime   time.Time       `gorm:"column:create_time;index"`
	BeginTime    *time.Time      `gorm:"column:begin_time"`
	EndTime      *time.Time      `gorm:"column:end_time"`
}

// TableName returns the table name for AnalysisRun.
func (AnalysisRun) TableName() string {
	return "analysis_runs"
}

// ToModel converts AnalysisRun to model.Run.
func (r *AnalysisRun) ToModel() *model.Run {
	return &model.Run{
		ID:           r.ID,
		RunID:        r.RunID,
		Source:       r.Source,
		Format:       r.Format,
		Status:       r.Status,
		StatusInfo:   r.StatusInfo,
		InputSize:    r.InputSize,
		ItemCount:    r.ItemCount,
		AliveCount:   r.AliveCount,
		GarbageCount: r.GarbageCount,
		TotalSize:    r.TotalSize,
		GarbageSize:  r.GarbageSize,
		SharedSize:   r.SharedSize,
		ReportKey:    r.ReportKey,
		CreateTime:   r.CreateTime,
		BeginTime:    r.BeginTime,
		EndTime:      r.EndTime,
	}
}

// FromModel converts model.Run to AnalysisRun.
func FromModel(run *model.Run) *AnalysisRun {
	return &AnalysisRun{
		ID:           run.ID,
		RunID:        run.RunID,
		Source:       run.Source,
		Format:       run.Format,
		Status:       run.Status,
		StatusInfo:   run.StatusInfo,
		InputSize:    run.InputSize,
		ItemCount:    run.ItemCount,
		AliveCount:   run.AliveCount,
		GarbageCount: run.GarbageCount,
		TotalSize:    run.TotalSize,
		GarbageSize:  run.GarbageSize,
		SharedSize:   run.SharedSize,
		ReportKey:    run.ReportKey,
		CreateTime:   run.CreateTime,
		BeginTime:    run.BeginTime,
		EndTime:      run.EndTime,
	}
}
