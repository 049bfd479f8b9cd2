package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idPtr(id ItemID) *ItemID {
	return &id
}

func TestDominatorEntry_RootAndShared(t *testing.T) {
	root := DominatorEntry{ID: 4, ImmediateDominatorID: idPtr(4)}
	child := DominatorEntry{ID: 5, ImmediateDominatorID: idPtr(4)}
	shared := DominatorEntry{ID: 6}

	assert.True(t, root.IsRoot())
	assert.False(t, root.IsShared())
	assert.False(t, child.IsRoot())
	assert.False(t, child.IsShared())
	assert.True(t, shared.IsShared())
	assert.False(t, shared.IsRoot())
}

func TestDominatorEntry_NullDominator(t *testing.T) {
	data, err := json.Marshal(DominatorEntry{ID: 2, Name: "H", Kind: KindCode, Size: 5, RetainedSize: 5})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":2,"name":"H","kind":"code","size":5,"retained_size":5,"immediate_dominator_id":null}`,
		string(data))
}

func TestDocument_SummaryOmitted(t *testing.T) {
	data, err := json.Marshal(Document{Dominators: []DominatorEntry{}, Garbage: []GarbageEntry{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"dominators":[],"garbage":[]}`, string(data))
}

func TestRunStatus(t *testing.T) {
	tests := []struct {
		status   RunStatus
		expected string
		terminal bool
	}{
		{RunStatusPending, "pending", false},
		{RunStatusRunning, "running", false},
		{RunStatusCompleted, "completed", true},
		{RunStatusFailed, "failed", true},
		{RunStatus(9), "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestRun_ApplySummaryAndDuration(t *testing.T) {
	run := NewRun("run-1", "app.wasm")
	assert.Equal(t, RunStatusPending, run.Status)
	assert.Zero(t, run.Duration())

	run.ApplySummary(&Summary{ItemCount: 10, AliveCount: 7, GarbageCount: 3, TotalSize: 100, GarbageSize: 30, SharedSize: 8})
	assert.Equal(t, 10, run.ItemCount)
	assert.Equal(t, 3, run.GarbageCount)
	assert.Equal(t, uint64(8), run.SharedSize)

	run.ApplySummary(nil)
	assert.Equal(t, 10, run.ItemCount)

	begin := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := begin.Add(1500 * time.Millisecond)
	run.BeginTime = &begin
	run.EndTime = &end
	assert.Equal(t, 1500*time.Millisecond, run.Duration())
}
