// Package spatial narrows a project's segments down to the bounded candidate
// set a single connectivity computation needs. The actual spatial query is a
// storage concern: an injected SegmentSource answers bounding-box and
// id-list fetches, and this package expands regions by tolerance, decodes
// the returned records once, and reports anything it had to skip.
package spatial

import (
	"context"
	"fmt"

	"github.com/dpup/roadnet/internal/errdefs"
	"github.com/dpup/roadnet/internal/lib/connectivity"
	"github.com/dpup/roadnet/internal/lib/geo"
)

// DefaultSearchMarginDegrees pads candidate queries beyond the seed's own
// bounding box so chains extending away from the seed stay in scope
// (~1 km at the equator).
const DefaultSearchMarginDegrees = 0.01

// SegmentSource is the storage collaborator that resolves spatial queries.
// Implementations own persistence, caching and consistency; the engine only
// reads.
type SegmentSource interface {
	// SegmentsInBounds returns all records whose geometry may intersect the
	// box. Over-fetching is acceptable; the index re-filters.
	SegmentsInBounds(ctx context.Context, bounds geo.Bounds) ([]connectivity.Record, error)

	// SegmentsByIDs returns the records for the given ids. Missing ids are
	// simply absent from the result.
	SegmentsByIDs(ctx context.Context, ids []string) ([]connectivity.Record, error)
}

// Skipped identifies a record that could not participate in a computation,
// and why. Skips are always surfaced, never silently dropped.
type Skipped struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Index resolves tolerance-matched candidate sets against a SegmentSource.
type Index struct {
	source SegmentSource
	margin float64
}

// NewIndex creates an index over the given source with the default search
// margin.
func NewIndex(source SegmentSource) *Index {
	return &Index{source: source, margin: DefaultSearchMarginDegrees}
}

// CandidatesNear fetches and decodes every enabled segment whose geometry
// falls near the seed: the seed's bounding box expanded by the tolerance and
// the search margin. Malformed records are reported in the skip list.
func (ix *Index) CandidatesNear(ctx context.Context, seed *connectivity.Segment, tol connectivity.Tolerance) ([]*connectivity.Segment, []Skipped, error) {
	bounds := seed.Bounds().Expand(tol.Degrees() + ix.margin)

	records, err := ix.source.SegmentsInBounds(ctx, bounds)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: segments in bounds: %v", errdefs.ErrUpstreamFetch, err)
	}

	return decodeRecords(records)
}

// Load fetches and decodes specific segments by id. Ids absent from storage
// appear in the skip list; malformed geometry likewise.
func (ix *Index) Load(ctx context.Context, ids []string) ([]*connectivity.Segment, []Skipped, error) {
	records, err := ix.source.SegmentsByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: segments by ids: %v", errdefs.ErrUpstreamFetch, err)
	}

	segments, skipped, err := decodeRecords(records)
	if err != nil {
		return nil, nil, err
	}

	found := make(map[string]bool, len(segments))
	for _, seg := range segments {
		found[seg.ID] = true
	}
	for _, sk := range skipped {
		found[sk.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			skipped = append(skipped, Skipped{ID: id, Reason: "not found in storage"})
		}
	}

	return segments, skipped, nil
}

// FilterByEndpoint keeps segments with at least one endpoint inside the
// box expanded by the tolerance. This is the in-memory refinement applied
// after the coarse storage query.
func FilterByEndpoint(segments []*connectivity.Segment, bounds geo.Bounds, tol connectivity.Tolerance) []*connectivity.Segment {
	expanded := bounds.Expand(tol.Degrees())

	var out []*connectivity.Segment
	for _, seg := range segments {
		if expanded.Contains(seg.Start()) || expanded.Contains(seg.End()) {
			out = append(out, seg)
		}
	}
	return out
}

// decodeRecords turns storage rows into segments, collecting skips for
// disabled rows and undecodable geometry.
func decodeRecords(records []connectivity.Record) ([]*connectivity.Segment, []Skipped, error) {
	segments := make([]*connectivity.Segment, 0, len(records))
	var skipped []Skipped

	for _, rec := range records {
		if !rec.Enabled {
			skipped = append(skipped, Skipped{ID: rec.ID, Reason: "disabled"})
			continue
		}
		seg, err := connectivity.FromRecord(rec)
		if err != nil {
			skipped = append(skipped, Skipped{ID: rec.ID, Reason: err.Error()})
			continue
		}
		segments = append(segments, seg)
	}

	return segments, skipped, nil
}
