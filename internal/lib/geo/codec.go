package geo

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/twpayne/go-polyline"

	"github.com/dpup/roadnet/internal/errdefs"
)

// Geometry arrives from storage in one of two shapes: a JSON array of
// [lng, lat] pairs, or a Google delta-encoded polyline string. Decode
// attempts the structured form first and falls back to the delta codec,
// mirroring how the records were written.

// Decode converts an encoded geometry string to an ordered coordinate
// sequence. Strings that match neither format, or that yield fewer than two
// valid points, fail with errdefs.ErrDecode.
func Decode(encoded string) ([]Point, error) {
	trimmed := strings.TrimSpace(encoded)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty geometry string", errdefs.ErrDecode)
	}

	if strings.HasPrefix(trimmed, "[") {
		points, err := decodeJSONPairs(trimmed)
		if err != nil {
			return nil, err
		}
		return points, nil
	}

	return decodePolyline(trimmed)
}

// Encode converts a coordinate sequence to a delta-encoded polyline string.
// Round-tripping through Decode preserves coordinates to the codec's five
// decimal digit precision.
func Encode(points []Point) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// decodeJSONPairs parses a JSON array of [lng, lat] pairs.
func decodeJSONPairs(raw string) ([]Point, error) {
	var pairs [][]float64
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		return nil, fmt.Errorf("%w: invalid coordinate array: %v", errdefs.ErrDecode, err)
	}

	points := make([]Point, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) < 2 {
			return nil, fmt.Errorf("%w: coordinate %d has %d components", errdefs.ErrDecode, i, len(pair))
		}
		p := Point{Latitude: pair[1], Longitude: pair[0]}
		if !Valid(p) {
			return nil, fmt.Errorf("%w: coordinate %d out of range", errdefs.ErrDecode, i)
		}
		points = append(points, p)
	}

	if len(points) < 2 {
		return nil, fmt.Errorf("%w: geometry has %d points, need at least 2", errdefs.ErrDecode, len(points))
	}
	return points, nil
}

// decodePolyline parses a Google delta-encoded polyline string.
func decodePolyline(encoded string) ([]Point, error) {
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errdefs.ErrDecode, err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: trailing data after polyline", errdefs.ErrDecode)
	}

	points := make([]Point, len(coords))
	for i, coord := range coords {
		points[i] = Point{Latitude: coord[0], Longitude: coord[1]}
		if !Valid(points[i]) {
			return nil, fmt.Errorf("%w: decoded coordinate %d out of range", errdefs.ErrDecode, i)
		}
	}

	if len(points) < 2 {
		return nil, fmt.Errorf("%w: geometry has %d points, need at least 2", errdefs.ErrDecode, len(points))
	}
	return points, nil
}
