// Package stretch extends a seed segment outward in both directions through
// exactly-one-neighbor continuations, producing the longest uninterrupted
// corridor bounded by intersections or dead ends.
//
// Traversal runs entirely over an in-memory candidate set fetched once up
// front; no storage round-trips happen between hops.
package stretch

import (
	"context"
	"fmt"

	"github.com/dpup/roadnet/internal/errdefs"
	"github.com/dpup/roadnet/internal/lib/connectivity"
)

// DefaultMaxHops bounds traversal length in each direction as a guard
// against runaway loops in dense tolerance-matched data.
const DefaultMaxHops = 100

// Stretch is one maximal chain of segments reachable from a seed.
type Stretch struct {
	SeedID        string
	Segments      []*connectivity.Segment
	TotalLengthKm float64
	// StartKind and EndKind classify the junctions the chain stopped at.
	StartKind connectivity.EndpointKind
	EndKind   connectivity.EndpointKind
	// Truncated is set when a direction stopped because the next segment was
	// already part of the chain (a cycle) or the hop bound was reached,
	// rather than at a genuine junction.
	Truncated bool
}

// IDs returns the ordered member ids.
func (s *Stretch) IDs() []string {
	ids := make([]string, len(s.Segments))
	for i, seg := range s.Segments {
		ids[i] = seg.ID
	}
	return ids
}

// Traverser builds stretches using a connectivity matcher.
type Traverser struct {
	matcher *connectivity.Matcher
	maxHops int
}

// NewTraverser creates a traverser. maxHops <= 0 selects DefaultMaxHops.
func NewTraverser(matcher *connectivity.Matcher, maxHops int) *Traverser {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	return &Traverser{matcher: matcher, maxHops: maxHops}
}

// Traverse extends the seed segment in both directions until each side hits
// an intersection, a dead end, a cycle, or the hop bound. The seed must be
// present in the candidate set; the tolerance must be positive.
func (t *Traverser) Traverse(ctx context.Context, seedID string, candidates []*connectivity.Segment, tol connectivity.Tolerance) (*Stretch, error) {
	if tol.Meters() <= 0 {
		return nil, fmt.Errorf("%w: zero tolerance", errdefs.ErrInvalidArgument)
	}

	var seed *connectivity.Segment
	for _, c := range candidates {
		if c.ID == seedID {
			seed = c
			break
		}
	}
	if seed == nil {
		return nil, fmt.Errorf("%w: seed segment %s not in candidate set", errdefs.ErrNotFound, seedID)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	visited := map[string]bool{seedID: true}

	backward := t.walk(seed, connectivity.EndpointStart, candidates, tol, visited)
	forward := t.walk(seed, connectivity.EndpointEnd, candidates, tol, visited)

	// Assemble reversed backward chain, seed, then forward chain.
	segments := make([]*connectivity.Segment, 0, len(backward.chain)+1+len(forward.chain))
	for i := len(backward.chain) - 1; i >= 0; i-- {
		segments = append(segments, backward.chain[i])
	}
	segments = append(segments, seed)
	segments = append(segments, forward.chain...)

	total := 0.0
	for _, seg := range segments {
		total += seg.LengthKm
	}

	return &Stretch{
		SeedID:        seedID,
		Segments:      segments,
		TotalLengthKm: total,
		StartKind:     backward.kind,
		EndKind:       forward.kind,
		Truncated:     backward.truncated || forward.truncated,
	}, nil
}

// walkResult is one direction's outcome: the appended chain in hop order,
// the terminal classification, and whether it was cut short.
type walkResult struct {
	chain     []*connectivity.Segment
	kind      connectivity.EndpointKind
	truncated bool
}

// walk repeatedly follows the single unvisited continuation from the leading
// endpoint. current starts as the seed; leading is the endpoint being
// extended.
func (t *Traverser) walk(seed *connectivity.Segment, from connectivity.Endpoint, candidates []*connectivity.Segment, tol connectivity.Tolerance, visited map[string]bool) walkResult {
	result := walkResult{}
	current := seed
	leading := from

	for hops := 0; ; hops++ {
		if hops >= t.maxHops {
			result.kind = connectivity.Intersection
			result.truncated = true
			return result
		}

		next, kind, truncated := t.continuation(current, leading, candidates, tol, visited)
		if next == nil {
			result.kind = kind
			result.truncated = result.truncated || truncated
			return result
		}

		result.chain = append(result.chain, next.Segment)
		visited[next.Segment.ID] = true

		// The neighbor's matched end faces the chain; its far end leads on.
		current = next.Segment
		leading = opposite(matchedEnd(next.Connection.Point))
	}
}

// continuation selects the oriented next hop from an endpoint, or reports
// why none exists. Mirrors of the current segment never count as
// continuations, and neighbors are collapsed into bidirectional groups
// before the degree test.
func (t *Traverser) continuation(current *connectivity.Segment, leading connectivity.Endpoint, candidates []*connectivity.Segment, tol connectivity.Tolerance, visited map[string]bool) (*connectivity.Neighbor, connectivity.EndpointKind, bool) {
	neighbors := t.matcher.NeighborsAt(current, leading, candidates, tol)

	var unvisited []connectivity.Neighbor
	cycleBlocked := false
	for _, n := range neighbors {
		if t.matcher.IsMirrorPair(current, n.Segment, tol) {
			continue
		}
		if visited[n.Segment.ID] {
			cycleBlocked = true
			continue
		}
		unvisited = append(unvisited, n)
	}

	groups := t.matcher.CollapseGroups(unvisited, tol)
	switch len(groups) {
	case 0:
		if cycleBlocked {
			// The only way onward loops back into the chain.
			return nil, connectivity.Intersection, true
		}
		return nil, connectivity.DeadEnd, false
	case 1:
		next := orient(groups[0], leading)
		return &next, connectivity.Continues, false
	default:
		return nil, connectivity.Intersection, false
	}
}

// orient picks the group member whose matched endpoint faces the chain, so
// traversal continues out of its far end. When no member has the expected
// orientation the first one is used.
func orient(group []connectivity.Neighbor, leading connectivity.Endpoint) connectivity.Neighbor {
	// Extending from our end, the continuation should connect at its start;
	// extending from our start, at its end.
	want := connectivity.EndToStart
	if leading == connectivity.EndpointStart {
		want = connectivity.StartToEnd
	}

	for _, n := range group {
		if n.Connection.Point == want {
			return n
		}
	}
	return group[0]
}

// matchedEnd extracts the neighbor-side endpoint from a connection point.
func matchedEnd(p connectivity.ConnectionPoint) connectivity.Endpoint {
	switch p {
	case connectivity.StartToStart, connectivity.EndToStart:
		return connectivity.EndpointStart
	default:
		return connectivity.EndpointEnd
	}
}

func opposite(e connectivity.Endpoint) connectivity.Endpoint {
	if e == connectivity.EndpointStart {
		return connectivity.EndpointEnd
	}
	return connectivity.EndpointStart
}

// Partition covers an entire candidate set with stretches: every segment
// ends up in exactly one stretch, single segments surrounded by junctions
// forming chains of one. Input order determines seed selection, so output
// is deterministic.
func (t *Traverser) Partition(ctx context.Context, candidates []*connectivity.Segment, tol connectivity.Tolerance) ([]*Stretch, error) {
	used := make(map[string]bool, len(candidates))
	var stretches []*Stretch

	for _, seg := range candidates {
		if used[seg.ID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		remaining := make([]*connectivity.Segment, 0, len(candidates))
		for _, c := range candidates {
			if !used[c.ID] {
				remaining = append(remaining, c)
			}
		}

		st, err := t.Traverse(ctx, seg.ID, remaining, tol)
		if err != nil {
			return nil, err
		}
		for _, member := range st.Segments {
			used[member.ID] = true
		}
		stretches = append(stretches, st)
	}

	return stretches, nil
}
