package model

// DominatorEntry describes one alive item in the dominator forest.
// ImmediateDominatorID is the item's own id for roots and nil for items
// dominated only by the synthetic supersource.
type DominatorEntry struct {
	ID                   ItemID   `json:"id"`
	Name                 string   `json:"name"`
	Kind                 ItemKind `json:"kind"`
	Size                 uint64   `json:"size"`
	RetainedSize         uint64   `json:"retained_size"`
	ImmediateDominatorID *ItemID  `json:"immediate_dominator_id"`
}

// IsRoot returns true if the entry dominates itself.
func (e *DominatorEntry) IsRoot() bool {
	return e.ImmediateDominatorID != nil && *e.ImmediateDominatorID == e.ID
}

// IsShared returns true if no single real item dominates the entry.
func (e *DominatorEntry) IsShared() bool {
	return e.ImmediateDominatorID == nil
}

// GarbageEntry describes one unreachable item.
type GarbageEntry struct {
	ID   ItemID   `json:"id"`
	Name string   `json:"name"`
	Kind ItemKind `json:"kind"`
	Size uint64   `json:"size"`
}

// GarbageReport is the bounded, ordered view of the garbage set.
type GarbageReport struct {
	Entries []GarbageEntry

	TotalCount       int
	TotalSize        uint64
	OmittedCount     int
	OmittedSize      uint64
	DataSegmentCount int
	DataSegmentSize  uint64
}

// Summary holds aggregate figures for one analysis.
type Summary struct {
	ItemCount           int    `json:"item_count"`
	EdgeCount           int    `json:"edge_count"`
	RootCount           int    `json:"root_count"`
	AliveCount          int    `json:"alive_count"`
	GarbageCount        int    `json:"garbage_count"`
	TotalSize           uint64 `json:"total_size"`
	AliveSize           uint64 `json:"alive_size"`
	GarbageSize         uint64 `json:"garbage_size"`
	SharedSize          uint64 `json:"shared_size"`
	OmittedGarbageCount int    `json:"omitted_garbage_count"`
	OmittedGarbageSize  uint64 `json:"omitted_garbage_size"`
}

// Document is the serialized analysis result.
type Document struct {
	Dominators []DominatorEntry `json:"dominators"`
	Garbage    []GarbageEntry   `json:"garbage"`
	Summary    *Summary         `json:"summary,omitempty"`
}
