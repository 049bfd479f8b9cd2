package garbage

import (
	"math"
	"sort"

	"github.com/size-analysis/internal/itemgraph"
	"github.com/size-analysis/pkg/model"
)

// Unlimited disables the report cap.
const Unlimited uint32 = math.MaxUint32

// Options controls which garbage items are reported.
type Options struct {
	// MaxItems caps the number of reported items. Unlimited disables the cap.
	MaxItems uint32
	// ShowDataSegments includes every Data item regardless of MaxItems.
	ShowDataSegments bool
}

// DefaultOptions returns the default reporting options.
func DefaultOptions() Options {
	return Options{
		MaxItems:         Unlimited,
		ShowDataSegments: true,
	}
}

// Report turns a partition into an ordered, bounded garbage report.
// Entries are sorted by descending size, ties by ascending id. The cap keeps
// the first MaxItems entries of that order; Data items bypass the cap when
// ShowDataSegments is set, and the union keeps the same order.
func Report(g *itemgraph.Graph, p *Partition, opts Options) *model.GarbageReport {
	ids := p.GarbageIDs()
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := g.Item(ids[i]), g.Item(ids[j])
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		return a.ID < b.ID
	})

	report := &model.GarbageReport{
		Entries:    make([]model.GarbageEntry, 0, min(len(ids), int(min(opts.MaxItems, math.MaxInt32)))),
		TotalCount: len(ids),
	}

	for rank, id := range ids {
		item := g.Item(id)
		report.TotalSize += item.Size
		if item.Kind == model.KindData {
			report.DataSegmentCount++
			report.DataSegmentSize += item.Size
		}

		withinCap := opts.MaxItems == Unlimited || uint64(rank) < uint64(opts.MaxItems)
		forced := opts.ShowDataSegments && item.Kind == model.KindData
		if !withinCap && !forced {
			report.OmittedCount++
			report.OmittedSize += item.Size
			continue
		}

		report.Entries = append(report.Entries, model.GarbageEntry{
			ID:   item.ID,
			Name: item.Name,
			Kind: item.Kind,
			Size: item.Size,
		})
	}

	return report
}
