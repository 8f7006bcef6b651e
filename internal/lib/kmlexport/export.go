// Package kmlexport renders engine results as KML for inspection in mapping
// tools.
package kmlexport

import (
	"fmt"
	"io"

	"github.com/twpayne/go-kml/v2"

	"github.com/dpup/roadnet/internal/lib/geo"
	"github.com/dpup/roadnet/internal/lib/segmenter"
	"github.com/dpup/roadnet/internal/lib/stretch"
)

// Crossings writes the route as a line plus one point placemark per
// crossing.
func Crossings(w io.Writer, routeName string, route []geo.Point, crossings []geo.Point) error {
	children := []kml.Element{
		kml.Placemark(
			kml.Name(routeName),
			kml.LineString(kml.Coordinates(coordinates(route)...)),
		),
	}
	for i, p := range crossings {
		children = append(children, kml.Placemark(
			kml.Name(fmt.Sprintf("Crossing %d", i+1)),
			kml.Point(kml.Coordinates(coordinate(p))),
		))
	}

	return kml.KML(kml.Document(children...)).WriteIndent(w, "", "  ")
}

// Stretch writes a merged stretch geometry as a single line placemark.
func Stretch(w io.Writer, merged stretch.MergedGeometry) error {
	doc := kml.Document(
		kml.Placemark(
			kml.Name(merged.ID),
			kml.Description(fmt.Sprintf("%d segments, %.3f km", len(merged.SegmentIDs), merged.LengthKm)),
			kml.LineString(kml.Coordinates(coordinates(merged.Coordinates)...)),
		),
	)
	return kml.KML(doc).WriteIndent(w, "", "  ")
}

// Cuts writes each distance cut as its own line placemark so adjacent
// pieces can be told apart.
func Cuts(w io.Writer, cuts []segmenter.Cut) error {
	var children []kml.Element
	for _, c := range cuts {
		children = append(children, kml.Placemark(
			kml.Name(fmt.Sprintf("%s #%d", c.ParentID, c.Index)),
			kml.Description(fmt.Sprintf("%.3f km", c.LengthKm)),
			kml.LineString(kml.Coordinates(coordinates(c.Points)...)),
		))
	}
	return kml.KML(kml.Document(children...)).WriteIndent(w, "", "  ")
}

func coordinate(p geo.Point) kml.Coordinate {
	return kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
}

func coordinates(points []geo.Point) []kml.Coordinate {
	out := make([]kml.Coordinate, len(points))
	for i, p := range points {
		out[i] = coordinate(p)
	}
	return out
}
