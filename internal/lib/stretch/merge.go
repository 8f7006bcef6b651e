package stretch

import (
	"github.com/google/uuid"

	"github.com/dpup/roadnet/internal/lib/geo"
)

// MaxWaypoints caps the junction waypoints carried on a merged corridor;
// longer chains are sampled evenly.
const MaxWaypoints = 25

// MergedGeometry is a stretch flattened into one renderable corridor: the
// concatenated coordinates of its members, the junction waypoints between
// them, and derived shape metadata. It gets a fresh id because downstream
// layers persist it as a new record.
type MergedGeometry struct {
	ID          string      `json:"id"`
	SegmentIDs  []string    `json:"segment_ids"`
	Coordinates []geo.Point `json:"coordinates"`
	Waypoints   []geo.Point `json:"waypoints"`
	LengthKm    float64     `json:"length_km"`
	Start       geo.Point   `json:"start"`
	End         geo.Point   `json:"end"`
	Center      geo.Point   `json:"center"`
	Bounds      geo.Bounds  `json:"bounds"`
}

// Merge flattens a stretch into a single corridor geometry. Member
// coordinate runs are concatenated in chain order, dropping a joint point
// repeated exactly between consecutive members. Each junction between
// members becomes a waypoint, sampled down to MaxWaypoints.
func Merge(s *Stretch) MergedGeometry {
	var coords []geo.Point
	var waypoints []geo.Point
	ids := make([]string, 0, len(s.Segments))

	for i, seg := range s.Segments {
		pts := seg.Points
		if len(coords) > 0 && coords[len(coords)-1] == pts[0] {
			pts = pts[1:]
		}
		coords = append(coords, pts...)

		if i > 0 {
			waypoints = append(waypoints, seg.Start())
		}
		ids = append(ids, seg.ID)
	}

	if len(waypoints) > MaxWaypoints {
		waypoints = sampleEvenly(waypoints, MaxWaypoints)
	}

	merged := MergedGeometry{
		ID:          uuid.NewString(),
		SegmentIDs:  ids,
		Coordinates: coords,
		Waypoints:   waypoints,
		LengthKm:    s.TotalLengthKm,
	}
	if len(coords) > 0 {
		merged.Start = coords[0]
		merged.End = coords[len(coords)-1]
		merged.Bounds = geo.BoundsOf(coords)
		merged.Center = merged.Bounds.Center()
	}
	return merged
}

// sampleEvenly reduces points to at most n by index striding, preserving
// order. The first and last points are always kept.
func sampleEvenly(points []geo.Point, n int) []geo.Point {
	if len(points) <= n {
		return points
	}
	step := float64(len(points)-1) / float64(n-1)
	sampled := make([]geo.Point, 0, n)
	for i := 0; i < n-1; i++ {
		sampled = append(sampled, points[int(float64(i)*step)])
	}
	return append(sampled, points[len(points)-1])
}
