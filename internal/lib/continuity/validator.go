// Package continuity determines whether an arbitrary selection of segments
// forms one connected path, and proposes a traversal order when it does.
// Callers use it as a save-time check before persisting a multi-segment
// route.
package continuity

import (
	"fmt"
	"sort"

	"github.com/dpup/roadnet/internal/errdefs"
	"github.com/dpup/roadnet/internal/lib/connectivity"
)

// Report is the outcome of a continuity validation.
type Report struct {
	IsContinuous bool `json:"is_continuous"`
	// SuggestedOrder is a linear traversal of the selection. Only meaningful
	// when IsContinuous is true; not necessarily unique.
	SuggestedOrder []string `json:"suggested_order"`
	// ConnectedCount is the size of the component reachable from the first
	// selected segment.
	ConnectedCount int     `json:"connected_count"`
	TotalCount     int     `json:"total_count"`
	TotalLengthKm  float64 `json:"total_length_km"`
}

// Validator checks selections of segments for single-component connectivity.
type Validator struct {
	matcher *connectivity.Matcher
}

// NewValidator creates a validator using the given matcher.
func NewValidator(matcher *connectivity.Matcher) *Validator {
	return &Validator{matcher: matcher}
}

// Validate restricts connectivity to the selected ids only, so a connection
// to a segment outside the selection does not count, and reports whether the
// selection is one connected component. An empty selection is not
// continuous; a single segment trivially is. Ids missing from scope fail
// with errdefs.ErrNotFound.
func (v *Validator) Validate(ids []string, scope []*connectivity.Segment, tol connectivity.Tolerance) (*Report, error) {
	if tol.Meters() <= 0 {
		return nil, fmt.Errorf("%w: zero tolerance", errdefs.ErrInvalidArgument)
	}

	if len(ids) == 0 {
		return &Report{IsContinuous: false, TotalCount: 0}, nil
	}

	byID := make(map[string]*connectivity.Segment, len(scope))
	for _, seg := range scope {
		byID[seg.ID] = seg
	}

	selected := make([]*connectivity.Segment, 0, len(ids))
	totalLength := 0.0
	for _, id := range ids {
		seg, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: segment %s not in scope", errdefs.ErrNotFound, id)
		}
		selected = append(selected, seg)
		totalLength += seg.LengthKm
	}

	if len(selected) == 1 {
		return &Report{
			IsContinuous:   true,
			SuggestedOrder: []string{selected[0].ID},
			ConnectedCount: 1,
			TotalCount:     1,
			TotalLengthKm:  totalLength,
		}, nil
	}

	adjacency := v.buildAdjacency(selected, tol)

	visited := bfs(ids[0], adjacency)
	report := &Report{
		IsContinuous:   len(visited) == len(selected),
		ConnectedCount: len(visited),
		TotalCount:     len(selected),
		TotalLengthKm:  totalLength,
	}

	if report.IsContinuous {
		report.SuggestedOrder = linearOrder(adjacency, ids)
	}
	return report, nil
}

// buildAdjacency connects each selected pair whose endpoints match within
// tolerance. The map is undirected and restricted to the selection.
func (v *Validator) buildAdjacency(selected []*connectivity.Segment, tol connectivity.Tolerance) map[string][]string {
	adjacency := make(map[string][]string, len(selected))
	for _, seg := range selected {
		adjacency[seg.ID] = nil
	}

	for i, a := range selected {
		for _, b := range selected[i+1:] {
			if conn := v.matcher.Connect(a, b, tol); conn.Connected {
				adjacency[a.ID] = append(adjacency[a.ID], b.ID)
				adjacency[b.ID] = append(adjacency[b.ID], a.ID)
			}
		}
	}
	return adjacency
}

// bfs returns the set of ids reachable from start.
func bfs(start string, adjacency map[string][]string) map[string]bool {
	visited := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, neighbor := range adjacency[current] {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}
	return visited
}

// linearOrder walks the selection as a path: start from a natural endpoint
// (degree <= 1), then follow one unvisited neighbor at a time, smallest id
// first. In a pure cycle any member serves as the start.
func linearOrder(adjacency map[string][]string, ids []string) []string {
	start := ""
	for _, id := range sortedIDs(adjacency) {
		if len(adjacency[id]) <= 1 {
			start = id
			break
		}
	}
	if start == "" {
		start = ids[0]
	}

	visited := make(map[string]bool, len(adjacency))
	order := make([]string, 0, len(adjacency))
	current := start

	for current != "" {
		visited[current] = true
		order = append(order, current)

		next := ""
		neighbors := append([]string(nil), adjacency[current]...)
		sort.Strings(neighbors)
		for _, neighbor := range neighbors {
			if !visited[neighbor] {
				next = neighbor
				break
			}
		}
		current = next
	}
	return order
}

func sortedIDs(adjacency map[string][]string) []string {
	ids := make([]string, 0, len(adjacency))
	for id := range adjacency {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
