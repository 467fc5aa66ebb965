package reference

import (
	"cmp"
	"sort"

	"golang.org/x/exp/slices"
)

// CDSRegion is a coding region in 1-based, closed coordinates.
type CDSRegion struct {
	Start    int64
	End      int64
	GeneName string
	Product  string
}

// Contains reports whether pos lies within the region (inclusive on both ends).
func (r CDSRegion) Contains(pos int64) bool {
	return r.Start <= pos && pos <= r.End
}

// CDSIndex answers point-containment queries over CDS regions.
// Regions may overlap; a query resolves to the first containing region in
// source order. The index is never modified after build and is safe for
// concurrent readers.
type CDSIndex struct {
	regions   []CDSRegion // source order
	intervals []interval  // sorted by start
	maxEnd    []int64     // maxEnd[i] = max(end) for intervals[:i+1]
}

type interval struct {
	start int64
	end   int64
	ord   int // position in regions
}

// BuildCDSIndex converts 0-based half-open features to closed 1-based regions
// and indexes them.
func BuildCDSIndex(features []Feature) *CDSIndex {
	idx := &CDSIndex{regions: make([]CDSRegion, len(features))}
	if len(features) == 0 {
		return idx
	}

	idx.intervals = make([]interval, len(features))
	for i, f := range features {
		r := CDSRegion{
			Start:    f.Start + 1,
			End:      f.End,
			GeneName: orNotAvailable(f.GeneName),
			Product:  orNotAvailable(f.Product),
		}
		idx.regions[i] = r
		idx.intervals[i] = interval{start: r.Start, end: r.End, ord: i}
	}

	slices.SortStableFunc(idx.intervals, func(a, b interval) int {
		return cmp.Compare(a.start, b.start)
	})

	n := len(idx.intervals)
	idx.maxEnd = make([]int64, n)
	idx.maxEnd[0] = idx.intervals[0].end
	for i := 1; i < n; i++ {
		idx.maxEnd[i] = max(idx.intervals[i].end, idx.maxEnd[i-1])
	}

	return idx
}

// Find returns the first region in source order that contains pos.
func (x *CDSIndex) Find(pos int64) (CDSRegion, bool) {
	if len(x.intervals) == 0 {
		return CDSRegion{}, false
	}

	// Candidates are intervals[0:hi), all with start <= pos. Once the
	// running max end drops below pos no earlier interval can reach it.
	hi := sort.Search(len(x.intervals), func(i int) bool {
		return x.intervals[i].start > pos
	})

	best := -1
	for i := hi - 1; i >= 0; i-- {
		if x.maxEnd[i] < pos {
			break
		}
		iv := x.intervals[i]
		if iv.end >= pos && (best == -1 || iv.ord < best) {
			best = iv.ord
		}
	}

	if best == -1 {
		return CDSRegion{}, false
	}
	return x.regions[best], true
}

// Lookup returns the gene name and product of the first region containing pos.
// Both strings are empty when no region contains it.
func (x *CDSIndex) Lookup(pos int64) (found bool, geneName, product string) {
	r, ok := x.Find(pos)
	if !ok {
		return false, "", ""
	}
	return true, r.GeneName, r.Product
}

// Regions returns the indexed regions in source order.
func (x *CDSIndex) Regions() []CDSRegion {
	return x.regions
}

// Len returns the number of indexed regions.
func (x *CDSIndex) Len() int {
	return len(x.regions)
}
