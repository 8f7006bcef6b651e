// Package connectivity classifies how independently-stored road segments
// relate to one another at their endpoints: whether they connect, where, at
// what residual distance, whether two segments are mirror recordings of one
// physical road, and what kind of junction an endpoint represents.
//
// There is no persisted topology. Every relationship is recomputed from
// geometry under an explicit Tolerance.
package connectivity

import "github.com/dpup/roadnet/internal/lib/geo"

// Matcher performs tolerance-based endpoint matching between segments. It is
// stateless and safe for concurrent use.
type Matcher struct{}

// NewMatcher creates a connectivity matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// endpointPairs is the fixed enumeration order used for deterministic
// tie-breaking between equally-near endpoint pairs.
var endpointPairs = []struct {
	point ConnectionPoint
	self  Endpoint
	other Endpoint
}{
	{StartToStart, EndpointStart, EndpointStart},
	{StartToEnd, EndpointStart, EndpointEnd},
	{EndToStart, EndpointEnd, EndpointStart},
	{EndToEnd, EndpointEnd, EndpointEnd},
}

// Connect compares all four endpoint pairs of two segments and reports the
// closest pair within tolerance. When several pairs match, the smallest
// distance wins; exact ties fall back to enumeration order (start-start,
// start-end, end-start, end-end). When no pair matches, the result carries
// the minimum observed distance so callers can report the gap.
func (m *Matcher) Connect(a, b *Segment, tol Tolerance) Connection {
	best := Connection{}
	minObserved := -1.0

	for _, pair := range endpointPairs {
		selfPt := a.Coordinate(pair.self)
		d := geo.Distance(selfPt, b.Coordinate(pair.other))

		if minObserved < 0 || d < minObserved {
			minObserved = d
		}
		if d > tol.Meters() {
			continue
		}
		if !best.Connected || d < best.DistanceMeters {
			best = Connection{
				Connected:      true,
				Point:          pair.point,
				DistanceMeters: d,
				At:             selfPt,
			}
		}
	}

	if best.Connected {
		return best
	}
	return Connection{Connected: false, DistanceMeters: minObserved}
}

// IsMirrorPair reports whether two segments are bidirectional recordings of
// the same road: a's start matches b's end and a's end matches b's start,
// both within tolerance.
func (m *Matcher) IsMirrorPair(a, b *Segment, tol Tolerance) bool {
	return geo.Distance(a.Start(), b.End()) <= tol.Meters() &&
		geo.Distance(a.End(), b.Start()) <= tol.Meters()
}

// GroupBidirectional partitions segments into bidirectional groups: each
// group holds segments whose geometries reverse one another within
// tolerance. Segments without a mirror form single-element groups. Group
// order follows input order.
func (m *Matcher) GroupBidirectional(segments []*Segment, tol Tolerance) [][]*Segment {
	var groups [][]*Segment
	processed := make(map[string]bool, len(segments))

	for i, seg := range segments {
		if processed[seg.ID] {
			continue
		}
		processed[seg.ID] = true
		group := []*Segment{seg}

		for _, other := range segments[i+1:] {
			if processed[other.ID] {
				continue
			}
			if m.IsMirrorPair(seg, other, tol) {
				group = append(group, other)
				processed[other.ID] = true
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// Neighbor is a segment connected to a specific endpoint of another segment.
type Neighbor struct {
	Segment    *Segment
	Connection Connection
}

// NeighborsAt returns all candidates connected at the named endpoint of seg,
// in candidate order. The candidate's own matching endpoint is encoded in
// the connection point (e.g. EndToStart means seg's end touches the
// candidate's start). The segment itself and disabled candidates are
// skipped.
func (m *Matcher) NeighborsAt(seg *Segment, end Endpoint, candidates []*Segment, tol Tolerance) []Neighbor {
	at := seg.Coordinate(end)
	var neighbors []Neighbor

	for _, cand := range candidates {
		if cand.ID == seg.ID || !cand.Enabled {
			continue
		}

		dStart := geo.Distance(at, cand.Start())
		dEnd := geo.Distance(at, cand.End())

		var otherEnd Endpoint
		var d float64
		switch {
		case dStart <= tol.Meters() && (dStart <= dEnd || dEnd > tol.Meters()):
			otherEnd, d = EndpointStart, dStart
		case dEnd <= tol.Meters():
			otherEnd, d = EndpointEnd, dEnd
		default:
			continue
		}

		neighbors = append(neighbors, Neighbor{
			Segment: cand,
			Connection: Connection{
				Connected:      true,
				Point:          connectionPoint(end, otherEnd),
				DistanceMeters: d,
				At:             at,
			},
		})
	}
	return neighbors
}

// connectionPoint composes a ConnectionPoint from the two matched ends.
func connectionPoint(self, other Endpoint) ConnectionPoint {
	for _, pair := range endpointPairs {
		if pair.self == self && pair.other == other {
			return pair.point
		}
	}
	return ""
}

// CollapseGroups partitions neighbors into bidirectional groups so a road
// recorded twice counts as one logical neighbor. Order follows the input.
func (m *Matcher) CollapseGroups(neighbors []Neighbor, tol Tolerance) [][]Neighbor {
	var groups [][]Neighbor
	processed := make(map[string]bool, len(neighbors))

	for i, n := range neighbors {
		if processed[n.Segment.ID] {
			continue
		}
		processed[n.Segment.ID] = true
		group := []Neighbor{n}

		for _, other := range neighbors[i+1:] {
			if processed[other.Segment.ID] {
				continue
			}
			if m.IsMirrorPair(n.Segment, other.Segment, tol) {
				group = append(group, other)
				processed[other.Segment.ID] = true
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// Degree counts the distinct logical neighbors at an endpoint: connected
// candidates are collapsed into bidirectional groups first, and candidates
// that are mirrors of seg itself are excluded entirely (a segment must not
// continue into its own reverse recording).
func (m *Matcher) Degree(seg *Segment, end Endpoint, candidates []*Segment, tol Tolerance) int {
	neighbors := m.NeighborsAt(seg, end, candidates, tol)
	filtered := neighbors[:0:0]
	for _, n := range neighbors {
		if m.IsMirrorPair(seg, n.Segment, tol) {
			continue
		}
		filtered = append(filtered, n)
	}
	return len(m.CollapseGroups(filtered, tol))
}

// ClassifyEndpoint labels an endpoint by its post-collapse degree: zero
// neighbors is a dead end, one is a continuation, more is an intersection.
func (m *Matcher) ClassifyEndpoint(seg *Segment, end Endpoint, candidates []*Segment, tol Tolerance) EndpointKind {
	switch degree := m.Degree(seg, end, candidates, tol); {
	case degree == 0:
		return DeadEnd
	case degree == 1:
		return Continues
	default:
		return Intersection
	}
}

// Report describes everything connected to one segment's endpoints.
type Report struct {
	SegmentID string
	Start     []Neighbor
	End       []Neighbor
	StartKind EndpointKind
	EndKind   EndpointKind
	// IsIntersection is true when the segment touches more than two distinct
	// roads across both endpoints combined.
	IsIntersection   bool
	TotalConnections int
}

// Connections builds a full connection report for a segment against a
// candidate set: per-endpoint neighbor lists, endpoint classifications, and
// an overall intersection flag.
func (m *Matcher) Connections(seg *Segment, candidates []*Segment, tol Tolerance) Report {
	start := m.NeighborsAt(seg, EndpointStart, candidates, tol)
	end := m.NeighborsAt(seg, EndpointEnd, candidates, tol)

	rep := Report{
		SegmentID:        seg.ID,
		Start:            start,
		End:              end,
		StartKind:        m.ClassifyEndpoint(seg, EndpointStart, candidates, tol),
		EndKind:          m.ClassifyEndpoint(seg, EndpointEnd, candidates, tol),
		TotalConnections: len(start) + len(end),
	}

	unique := m.Degree(seg, EndpointStart, candidates, tol) +
		m.Degree(seg, EndpointEnd, candidates, tol)
	rep.IsIntersection = unique > 2

	return rep
}
