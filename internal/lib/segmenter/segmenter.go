// Package segmenter cuts a route into pieces of a target geodesic length.
// Cut points are interpolated exactly, so the pieces collectively
// reconstruct the original path: no point is dropped, reordered, or moved.
package segmenter

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dpup/roadnet/internal/errdefs"
	"github.com/dpup/roadnet/internal/lib/geo"
)

// lengthEpsilonKm absorbs floating error when deciding whether an edge
// remainder or piece capacity is exhausted.
const lengthEpsilonKm = 1e-9

// Cut is one output piece of a segmented route, with the derived metadata
// the persistence layer stores on child records.
type Cut struct {
	ID       string      `json:"id"`
	ParentID string      `json:"parent_id"`
	Index    int         `json:"index"`
	Points   []geo.Point `json:"points"`
	LengthKm float64     `json:"length_km"`
	Center   geo.Point   `json:"center"`
	Bounds   geo.Bounds  `json:"bounds"`
}

// Segmenter cuts routes by distance. It is stateless and safe for
// concurrent use.
type Segmenter struct{}

// NewSegmenter creates a segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// ByDistance walks the route's edges accumulating geodesic length and closes
// a piece whenever the target is reached, interpolating the exact cut point
// on the edge that overflows. A single long edge may be cut several times.
// The final piece is kept even when shorter than the target. Pieces never
// exceed the target beyond floating error.
func (s *Segmenter) ByDistance(coords []geo.Point, targetKm float64) ([][]geo.Point, error) {
	if targetKm <= 0 {
		return nil, fmt.Errorf("%w: target length must be positive, got %v km", errdefs.ErrInvalidArgument, targetKm)
	}
	if len(coords) < 2 {
		return nil, fmt.Errorf("%w: route has %d points, need at least 2", errdefs.ErrInvalidArgument, len(coords))
	}

	var pieces [][]geo.Point
	current := []geo.Point{coords[0]}
	accumulated := 0.0

	for i := 1; i < len(coords); i++ {
		target := coords[i]
		cursor := coords[i-1]
		remaining := geo.Distance(cursor, target) / 1000.0

		for remaining > lengthEpsilonKm {
			capacity := targetKm - accumulated

			if remaining <= capacity {
				// The rest of this edge fits in the current piece.
				current = append(current, target)
				accumulated += remaining
				remaining = 0

				// Landing exactly on the target closes the piece here.
				if targetKm-accumulated < lengthEpsilonKm {
					pieces = append(pieces, current)
					current = []geo.Point{target}
					accumulated = 0
				}
				continue
			}

			// The edge overflows the piece: cut at the exact fraction that
			// fills the remaining capacity and keep consuming the edge.
			fraction := capacity / remaining
			cutPoint := geo.Interpolate(cursor, target, fraction)

			current = append(current, cutPoint)
			pieces = append(pieces, current)

			current = []geo.Point{cutPoint}
			accumulated = 0
			cursor = cutPoint
			remaining -= capacity
		}
	}

	if len(current) > 1 {
		pieces = append(pieces, current)
	}

	return pieces, nil
}

// Cuts runs ByDistance and wraps each piece with the metadata child records
// carry: a fresh id, the parent linkage, a 0-based order-preserving index,
// and derived shape attributes.
func (s *Segmenter) Cuts(parentID string, coords []geo.Point, targetKm float64) ([]Cut, error) {
	pieces, err := s.ByDistance(coords, targetKm)
	if err != nil {
		return nil, err
	}

	cuts := make([]Cut, len(pieces))
	for i, piece := range pieces {
		cuts[i] = Cut{
			ID:       uuid.NewString(),
			ParentID: parentID,
			Index:    i,
			Points:   piece,
			LengthKm: geo.PathLengthKm(piece),
			Center:   pathMidpoint(piece),
			Bounds:   geo.BoundsOf(piece),
		}
	}
	return cuts, nil
}

// pathMidpoint finds the point halfway along the path by length, not by
// vertex count.
func pathMidpoint(points []geo.Point) geo.Point {
	if len(points) == 0 {
		return geo.Point{}
	}
	if len(points) == 1 {
		return points[0]
	}

	half := geo.PathLengthKm(points) * 1000 / 2
	walked := 0.0
	for i := 1; i < len(points); i++ {
		edge := geo.Distance(points[i-1], points[i])
		if walked+edge >= half && edge > 0 {
			return geo.Interpolate(points[i-1], points[i], (half-walked)/edge)
		}
		walked += edge
	}
	return points[len(points)-1]
}
