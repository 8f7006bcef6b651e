package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dpup/roadnet/internal/config"
	"github.com/dpup/roadnet/internal/lib/connectivity"
	"github.com/dpup/roadnet/internal/lib/geo"
	"github.com/dpup/roadnet/internal/lib/kmlexport"
	"github.com/dpup/roadnet/internal/services"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "traverse":
		handleTraverse()
	case "connections":
		handleConnections()
	case "continuity":
		handleContinuity()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleTraverse() {
	fs := flag.NewFlagSet("traverse", flag.ExitOnError)
	file := fs.String("file", "", "JSON file with segment records")
	seed := fs.String("seed", "", "Seed segment id")
	tolerance := fs.Float64("tolerance", 0, "Matching tolerance in meters (default from config)")
	kmlOut := fs.String("kml", "", "Optional path to write the merged stretch as KML")

	fs.Parse(os.Args[2:])

	if *file == "" || *seed == "" {
		fmt.Println("Example usage:")
		fmt.Println("  test-stretch traverse --file segments.json --seed seg-42")
		fmt.Println("  test-stretch traverse --file segments.json --seed seg-42 --tolerance 11.1 --kml stretch.kml")
		os.Exit(1)
	}

	svc := newService(*file, *tolerance)

	result, err := svc.Stretch(context.Background(), *seed)
	if err != nil {
		log.Fatalf("Traverse failed: %v", err)
	}

	fmt.Printf("Stretch from %s:\n", *seed)
	fmt.Printf("  Segments: %s\n", strings.Join(result.Stretch.IDs(), " -> "))
	fmt.Printf("  Length: %.3f km\n", result.Stretch.TotalLengthKm)
	fmt.Printf("  Endpoints: %s / %s\n", result.Stretch.StartKind, result.Stretch.EndKind)
	if result.Stretch.Truncated {
		fmt.Printf("  NOTE: traversal truncated (cycle or hop limit)\n")
	}
	for _, sk := range result.Skipped {
		fmt.Printf("  Skipped %s: %s\n", sk.ID, sk.Reason)
	}

	if *kmlOut != "" {
		f, err := os.Create(*kmlOut)
		if err != nil {
			log.Fatalf("Failed to create KML file: %v", err)
		}
		defer f.Close()
		if err := kmlexport.Stretch(f, result.Merged); err != nil {
			log.Fatalf("Failed to write KML: %v", err)
		}
		fmt.Printf("  Wrote %s\n", *kmlOut)
	}
}

func handleConnections() {
	fs := flag.NewFlagSet("connections", flag.ExitOnError)
	file := fs.String("file", "", "JSON file with segment records")
	id := fs.String("id", "", "Segment id")
	tolerance := fs.Float64("tolerance", 0, "Matching tolerance in meters (default from config)")

	fs.Parse(os.Args[2:])

	if *file == "" || *id == "" {
		fmt.Println("Example usage:")
		fmt.Println("  test-stretch connections --file segments.json --id seg-42")
		os.Exit(1)
	}

	svc := newService(*file, *tolerance)

	result, err := svc.Connections(context.Background(), *id)
	if err != nil {
		log.Fatalf("Connections failed: %v", err)
	}

	r := result.Report
	fmt.Printf("Connections for %s:\n", *id)
	fmt.Printf("  Start: %s (%d connections)\n", r.StartKind, len(r.Start))
	fmt.Printf("  End: %s (%d connections)\n", r.EndKind, len(r.End))
	fmt.Printf("  Intersection: %v\n", r.IsIntersection)
	for _, sk := range result.Skipped {
		fmt.Printf("  Skipped %s: %s\n", sk.ID, sk.Reason)
	}
}

func handleContinuity() {
	fs := flag.NewFlagSet("continuity", flag.ExitOnError)
	file := fs.String("file", "", "JSON file with segment records")
	ids := fs.String("ids", "", "Comma-separated segment ids")
	tolerance := fs.Float64("tolerance", 0, "Matching tolerance in meters (default from config)")

	fs.Parse(os.Args[2:])

	if *file == "" || *ids == "" {
		fmt.Println("Example usage:")
		fmt.Println("  test-stretch continuity --file segments.json --ids seg-1,seg-2,seg-3")
		os.Exit(1)
	}

	svc := newService(*file, *tolerance)

	report, err := svc.Continuity(context.Background(), strings.Split(*ids, ","))
	if err != nil {
		log.Fatalf("Continuity failed: %v", err)
	}

	fmt.Printf("Continuity:\n")
	fmt.Printf("  Continuous: %v (%d/%d connected)\n", report.IsContinuous, report.ConnectedCount, report.TotalCount)
	fmt.Printf("  Total length: %.3f km\n", report.TotalLengthKm)
	if report.IsContinuous {
		fmt.Printf("  Order: %s\n", strings.Join(report.SuggestedOrder, " -> "))
	}
}

// fileSource serves segment records loaded from a JSON file.
type fileSource struct {
	records []connectivity.Record
}

func (f *fileSource) SegmentsInBounds(ctx context.Context, bounds geo.Bounds) ([]connectivity.Record, error) {
	return f.records, nil
}

func (f *fileSource) SegmentsByIDs(ctx context.Context, ids []string) ([]connectivity.Record, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []connectivity.Record
	for _, r := range f.records {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func newService(path string, toleranceMeters float64) *services.NetworkService {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}

	var records []connectivity.Record
	if err := json.Unmarshal(data, &records); err != nil {
		log.Fatalf("Failed to parse %s: %v", path, err)
	}

	cfg := config.DefaultConfig()
	if toleranceMeters > 0 {
		cfg.Connectivity.ToleranceMeters = toleranceMeters
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	svc, err := services.NewNetworkService(&fileSource{records: records}, nil, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	return svc
}

func printUsage() {
	fmt.Println("Usage: test-stretch <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  traverse     Assemble the stretch around a seed segment")
	fmt.Println("  connections  Classify both endpoints of a segment")
	fmt.Println("  continuity   Check whether a set of segments forms one chain")
	fmt.Println("  help         Show this message")
	fmt.Println()
	fmt.Println("The --file argument is a JSON array of records:")
	fmt.Println(`  [{"id": "seg-1", "geometry": "[[-120.5, 38.1], [-120.5, 38.2]]", "enabled": true}]`)
}
