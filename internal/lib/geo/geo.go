// Package geo provides the geodesic math and geometry codec used by the
// road-network connectivity engine: great-circle distances, interpolation,
// path lengths, point-to-path distances and polyline encoding/decoding.
package geo

import "math"

const (
	// earthRadiusMeters is the mean Earth radius used by the haversine formula.
	earthRadiusMeters = 6371000

	// MetersPerDegree is the approximate ground length of one degree of
	// latitude. Used for the single meters-to-degrees conversion applied to
	// caller-supplied tolerances.
	MetersPerDegree = 111000.0
)

// Distance calculates the great-circle distance between two points in meters
// using the haversine formula. It is symmetric in its arguments.
func Distance(p1, p2 Point) float64 {
	if p1.Latitude == p2.Latitude && p1.Longitude == p2.Longitude {
		return 0
	}

	lat1 := p1.Latitude * math.Pi / 180
	lon1 := p1.Longitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	lon2 := p2.Longitude * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Interpolate returns the point a fraction f of the way along the great
// circle from a to b. f=0 yields a, f=1 yields b. For coincident or
// antipodal-degenerate inputs it falls back to linear interpolation.
func Interpolate(a, b Point, f float64) Point {
	if f <= 0 {
		return a
	}
	if f >= 1 {
		return b
	}

	lat1 := a.Latitude * math.Pi / 180
	lon1 := a.Longitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	lon2 := b.Longitude * math.Pi / 180

	delta := Distance(a, b) / earthRadiusMeters
	sinDelta := math.Sin(delta)
	if sinDelta < 1e-12 {
		// Points too close for the spherical formula to be stable.
		return Point{
			Latitude:  a.Latitude + f*(b.Latitude-a.Latitude),
			Longitude: a.Longitude + f*(b.Longitude-a.Longitude),
		}
	}

	wa := math.Sin((1-f)*delta) / sinDelta
	wb := math.Sin(f*delta) / sinDelta

	x := wa*math.Cos(lat1)*math.Cos(lon1) + wb*math.Cos(lat2)*math.Cos(lon2)
	y := wa*math.Cos(lat1)*math.Sin(lon1) + wb*math.Cos(lat2)*math.Sin(lon2)
	z := wa*math.Sin(lat1) + wb*math.Sin(lat2)

	lat := math.Atan2(z, math.Sqrt(x*x+y*y))
	lon := math.Atan2(y, x)

	return Point{
		Latitude:  lat * 180 / math.Pi,
		Longitude: lon * 180 / math.Pi,
	}
}

// PathLengthKm sums the great-circle distances over consecutive point pairs
// and returns the total in kilometers. Paths with fewer than two points have
// zero length.
func PathLengthKm(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}

	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total / 1000.0
}

// PointToPath calculates the minimum distance in meters from a point to a
// polyline. A single-point path degenerates to a point-to-point distance.
func PointToPath(p Point, path []Point) float64 {
	if len(path) == 0 {
		return math.Inf(1)
	}
	if len(path) == 1 {
		return Distance(p, path[0])
	}

	minDistance := math.Inf(1)
	for i := 0; i < len(path)-1; i++ {
		d := pointToSegment(p, path[i], path[i+1])
		if d < minDistance {
			minDistance = d
		}
	}
	return minDistance
}

// pointToSegment calculates the cross-track distance from a point to a great
// circle segment, clamped to the nearest endpoint when the projection falls
// outside the segment.
func pointToSegment(p, segStart, segEnd Point) float64 {
	if segStart.Latitude == segEnd.Latitude && segStart.Longitude == segEnd.Longitude {
		return Distance(p, segStart)
	}

	distanceToStart := Distance(p, segStart)
	distanceToEnd := Distance(p, segEnd)
	segmentLength := Distance(segStart, segEnd)

	// Segments shorter than a meter are effectively points.
	if segmentLength < 1 {
		return math.Min(distanceToStart, distanceToEnd)
	}

	lat1 := segStart.Latitude * math.Pi / 180
	lon1 := segStart.Longitude * math.Pi / 180
	lat2 := segEnd.Latitude * math.Pi / 180
	lon2 := segEnd.Longitude * math.Pi / 180
	lat3 := p.Latitude * math.Pi / 180
	lon3 := p.Longitude * math.Pi / 180

	// Angular distance from segment start to the point.
	d13 := distanceToStart / earthRadiusMeters

	// Initial bearing from start to end.
	y := math.Sin(lon2-lon1) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lon2-lon1)
	bearingSegment := math.Atan2(y, x)

	// Bearing from start to the point.
	y = math.Sin(lon3-lon1) * math.Cos(lat3)
	x = math.Cos(lat1)*math.Sin(lat3) - math.Sin(lat1)*math.Cos(lat3)*math.Cos(lon3-lon1)
	bearingPoint := math.Atan2(y, x)

	dxt := math.Asin(math.Sin(d13) * math.Sin(bearingPoint-bearingSegment))
	crossTrack := math.Abs(dxt) * earthRadiusMeters

	// Projection beyond the far endpoint: nearest endpoint wins.
	dat := math.Acos(math.Cos(d13) / math.Cos(dxt))
	alongTrack := dat * earthRadiusMeters
	if alongTrack > segmentLength {
		return distanceToEnd
	}

	// Projection behind the start: the start endpoint wins.
	if math.Abs(bearingPoint-bearingSegment) > math.Pi/2 {
		return distanceToStart
	}

	return crossTrack
}
