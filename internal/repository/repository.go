// Package repository persists the history of analysis runs.
package repository

import (
	"context"
	"time"

	"github.com/size-analysis/pkg/model"
)

// RunRepository stores one record per module analysis.
type RunRepository interface {
	// Create inserts run and sets its database id.
	Create(ctx context.Context, run *model.Run) error

	// Update writes the status, figures and timestamps of an existing run.
	Update(ctx context.Context, run *model.Run) error

	// GetByRunID returns the run with the given run id or a NOT_FOUND error.
	GetByRunID(ctx context.Context, runID string) (*model.Run, error)

	// List returns runs newest first.
	List(ctx context.Context, filter ListFilter) ([]*model.Run, error)

	// DeleteBefore removes runs created before t and returns how many were
	// removed.
	DeleteBefore(ctx context.Context, t time.Time) (int64, error)
}

// DefaultListLimit applies when ListFilter.Limit is not positive.
const DefaultListLimit = 50

// ListFilter narrows List results.
type ListFilter struct {
	Status *model.RunStatus
	Source string
	Limit  int
	Offset int
}

func (f ListFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}
