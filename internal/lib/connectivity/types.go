package connectivity

import (
	"fmt"

	"github.com/dpup/roadnet/internal/errdefs"
	"github.com/dpup/roadnet/internal/lib/geo"
)

// Tolerance is the maximum distance at which two segment endpoints are
// considered the same point. Callers supply it in meters; it is converted
// once and threaded explicitly through every comparison.
type Tolerance struct {
	meters float64
}

// ToleranceFromMeters builds a Tolerance from a caller-supplied distance.
// Non-positive values fail with errdefs.ErrInvalidArgument.
func ToleranceFromMeters(m float64) (Tolerance, error) {
	if m <= 0 {
		return Tolerance{}, fmt.Errorf("%w: tolerance must be positive, got %v", errdefs.ErrInvalidArgument, m)
	}
	return Tolerance{meters: m}, nil
}

// Meters returns the tolerance as a great-circle distance.
func (t Tolerance) Meters() float64 { return t.meters }

// Degrees returns the tolerance converted to degrees at the fixed
// approximate rate of 1 degree per 111 km. Used for bounding-box expansion.
func (t Tolerance) Degrees() float64 { return t.meters / geo.MetersPerDegree }

// Record is a segment row as fetched from storage by a collaborator: raw
// encoded geometry plus metadata. The engine never writes these back.
type Record struct {
	ID       string  `json:"id"`
	Geometry string  `json:"geometry"`
	LengthKm float64 `json:"length_km,omitempty"`
	Priority string  `json:"priority,omitempty"`
	Enabled  bool    `json:"enabled"`
}

// Segment is an immutable decoded road or route: an ordered sequence of at
// least two coordinates with derived endpoints and length. Segments are
// snapshots for the duration of one connectivity computation.
type Segment struct {
	ID       string
	Points   []geo.Point
	LengthKm float64
	Priority string
	Enabled  bool
}

// NewSegment builds a Segment from decoded coordinates. Fewer than two
// points fail with errdefs.ErrInvalidArgument.
func NewSegment(id string, points []geo.Point) (*Segment, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: segment %s has %d points, need at least 2", errdefs.ErrInvalidArgument, id, len(points))
	}
	return &Segment{
		ID:       id,
		Points:   points,
		LengthKm: geo.PathLengthKm(points),
		Enabled:  true,
	}, nil
}

// FromRecord decodes a storage record into a Segment. The stored length is
// trusted when present; otherwise it is recomputed from geometry.
func FromRecord(rec Record) (*Segment, error) {
	points, err := geo.Decode(rec.Geometry)
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", rec.ID, err)
	}

	lengthKm := rec.LengthKm
	if lengthKm <= 0 {
		lengthKm = geo.PathLengthKm(points)
	}

	return &Segment{
		ID:       rec.ID,
		Points:   points,
		LengthKm: lengthKm,
		Priority: rec.Priority,
		Enabled:  rec.Enabled,
	}, nil
}

// Start returns the first coordinate of the segment.
func (s *Segment) Start() geo.Point { return s.Points[0] }

// End returns the last coordinate of the segment.
func (s *Segment) End() geo.Point { return s.Points[len(s.Points)-1] }

// Bounds returns the segment's bounding box.
func (s *Segment) Bounds() geo.Bounds { return geo.BoundsOf(s.Points) }

// Endpoint identifies one of a segment's two ends.
type Endpoint int

const (
	EndpointStart Endpoint = iota
	EndpointEnd
)

// String implements fmt.Stringer.
func (e Endpoint) String() string {
	if e == EndpointStart {
		return "start"
	}
	return "end"
}

// Coordinate returns the named endpoint of the segment.
func (s *Segment) Coordinate(e Endpoint) geo.Point {
	if e == EndpointStart {
		return s.Start()
	}
	return s.End()
}

// ConnectionPoint classifies which endpoint pair of two segments touches.
// The first half refers to the segment whose connections were requested, the
// second to the other segment.
type ConnectionPoint string

const (
	StartToStart ConnectionPoint = "start-start"
	StartToEnd   ConnectionPoint = "start-end"
	EndToStart   ConnectionPoint = "end-start"
	EndToEnd     ConnectionPoint = "end-end"
)

// Connection is the result of comparing two segments' endpoints.
type Connection struct {
	// Connected reports whether any endpoint pair is within tolerance.
	Connected bool
	// Point names the matched endpoint pair; empty when not connected.
	Point ConnectionPoint
	// DistanceMeters is the matched pair's residual distance when connected,
	// otherwise the minimum distance observed across all four pairs. It is
	// always populated so callers can report gaps.
	DistanceMeters float64
	// At is the coordinate of the matched endpoint on the first segment.
	// Zero when not connected.
	At geo.Point
}

// EndpointKind classifies a segment endpoint by its post-collapse degree.
type EndpointKind string

const (
	// DeadEnd means no distinct neighbor connects at the endpoint.
	DeadEnd EndpointKind = "dead_end"
	// Continues means exactly one distinct neighbor connects.
	Continues EndpointKind = "continues"
	// Intersection means more than one distinct neighbor connects.
	Intersection EndpointKind = "intersection"
)
