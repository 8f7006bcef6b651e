package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dpup/roadnet/internal/lib/geo"
	"github.com/dpup/roadnet/internal/lib/kmlexport"
	"github.com/dpup/roadnet/internal/lib/segmenter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "by-distance":
		handleByDistance()
	case "length":
		handleLength()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleByDistance() {
	fs := flag.NewFlagSet("by-distance", flag.ExitOnError)
	geometry := fs.String("geometry", "", "Encoded polyline or JSON coordinate array")
	targetKm := fs.Float64("target-km", 0, "Target piece length in kilometers")
	kmlOut := fs.String("kml", "", "Optional path to write the pieces as KML")

	fs.Parse(os.Args[2:])

	if *geometry == "" || *targetKm <= 0 {
		fmt.Println("Example usage:")
		fmt.Println(`  test-segmenter by-distance --geometry '[[-120.5, 38.1], [-120.5, 38.2]]' --target-km 3`)
		fmt.Println("  test-segmenter by-distance --geometry '_p~iF~ps|U_ulLnnqC' --target-km 3 --kml cuts.kml")
		os.Exit(1)
	}

	points, err := geo.Decode(*geometry)
	if err != nil {
		log.Fatalf("Failed to decode geometry: %v", err)
	}

	s := segmenter.NewSegmenter()
	cuts, err := s.Cuts("input", points, *targetKm)
	if err != nil {
		log.Fatalf("Segmentation failed: %v", err)
	}

	fmt.Printf("Split %.3f km path into %d pieces at %.3f km:\n", geo.PathLengthKm(points), len(cuts), *targetKm)
	for _, c := range cuts {
		fmt.Printf("  #%d: %.3f km, %d points, center (%.6f, %.6f)\n",
			c.Index, c.LengthKm, len(c.Points), c.Center.Latitude, c.Center.Longitude)
	}

	if *kmlOut != "" {
		f, err := os.Create(*kmlOut)
		if err != nil {
			log.Fatalf("Failed to create KML file: %v", err)
		}
		defer f.Close()
		if err := kmlexport.Cuts(f, cuts); err != nil {
			log.Fatalf("Failed to write KML: %v", err)
		}
		fmt.Printf("Wrote %s\n", *kmlOut)
	}
}

func handleLength() {
	fs := flag.NewFlagSet("length", flag.ExitOnError)
	geometry := fs.String("geometry", "", "Encoded polyline or JSON coordinate array")

	fs.Parse(os.Args[2:])

	if *geometry == "" {
		fmt.Println("Example usage:")
		fmt.Println(`  test-segmenter length --geometry '[[-120.5, 38.1], [-120.5, 38.2]]'`)
		os.Exit(1)
	}

	points, err := geo.Decode(*geometry)
	if err != nil {
		log.Fatalf("Failed to decode geometry: %v", err)
	}

	km := geo.PathLengthKm(points)
	fmt.Printf("Path: %d points\n", len(points))
	fmt.Printf("Length: %.3f km (%.2f miles)\n", km, km*0.621371)
	fmt.Printf("Start: (%.6f, %.6f)\n", points[0].Latitude, points[0].Longitude)
	fmt.Printf("End: (%.6f, %.6f)\n", points[len(points)-1].Latitude, points[len(points)-1].Longitude)
}

func printUsage() {
	fmt.Println("Usage: test-segmenter <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  by-distance  Split a path into pieces of a target length")
	fmt.Println("  length       Decode a geometry and report its length")
	fmt.Println("  help         Show this message")
}
