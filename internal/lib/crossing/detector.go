// Package crossing finds the points where a route's corridor is touched by
// other roads in the network. Candidate roads come from an injected paged
// fetch collaborator; roads that merely duplicate the route (its own
// geometry re-recorded within the exclusion corridor) are filtered out, and
// the surviving road endpoints near the route become crossings.
package crossing

import (
	"context"
	"fmt"

	"github.com/dpup/roadnet/internal/errdefs"
	"github.com/dpup/roadnet/internal/lib/geo"
)

// Defaults mirror the production configuration of the upstream system.
const (
	DefaultProximityToleranceMeters = 5
	DefaultExclusionToleranceMeters = 15
	DefaultSearchBufferMeters       = 100
	DefaultMaxCandidates            = 20000
	DefaultMaxPages                 = 50
)

// Road is one candidate road returned by the fetch collaborator.
type Road struct {
	ID     string
	Points []geo.Point
}

// Page is one page of candidate roads. An empty NextPageToken ends
// pagination.
type Page struct {
	Roads         []Road
	NextPageToken string
}

// Fetcher is the external road-fetch collaborator. Implementations are
// expected to honor context cancellation; the detector never retries.
type Fetcher interface {
	FetchRoads(ctx context.Context, bounds geo.Bounds, pageToken string) (*Page, error)
}

// Options tunes a detector. Zero values select the defaults.
type Options struct {
	// ProximityToleranceMeters is the maximum distance at which a road
	// endpoint counts as touching the route.
	ProximityToleranceMeters float64
	// ExclusionToleranceMeters is the half-width of the corridor used to
	// recognize near-duplicates of the route itself.
	ExclusionToleranceMeters float64
	// SearchBufferMeters pads the route's bounding box for the candidate
	// fetch.
	SearchBufferMeters float64
	// MaxCandidates bounds the total roads accepted across all pages.
	MaxCandidates int
	// MaxPages bounds pagination.
	MaxPages int
}

func (o Options) withDefaults() Options {
	if o.ProximityToleranceMeters <= 0 {
		o.ProximityToleranceMeters = DefaultProximityToleranceMeters
	}
	if o.ExclusionToleranceMeters <= 0 {
		o.ExclusionToleranceMeters = DefaultExclusionToleranceMeters
	}
	if o.SearchBufferMeters <= 0 {
		o.SearchBufferMeters = DefaultSearchBufferMeters
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = DefaultMaxCandidates
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	return o
}

// Detector finds route crossings using an injected fetcher.
type Detector struct {
	fetcher Fetcher
	opts    Options
}

// NewDetector creates a detector. Zero option fields take defaults.
func NewDetector(fetcher Fetcher, opts Options) *Detector {
	return &Detector{fetcher: fetcher, opts: opts.withDefaults()}
}

// Find returns the points where other roads touch the route, excluding
// near-duplicates of the route and points near the route's own endpoints.
// The candidate cap is enforced rather than silently truncated.
func (d *Detector) Find(ctx context.Context, route []geo.Point) ([]geo.Point, error) {
	if len(route) < 2 {
		return nil, fmt.Errorf("%w: route has %d points, need at least 2", errdefs.ErrInvalidArgument, len(route))
	}

	candidates, err := d.fetchAll(ctx, route)
	if err != nil {
		return nil, err
	}

	proximity := d.opts.ProximityToleranceMeters
	exclusion := d.opts.ExclusionToleranceMeters

	// Endpoints of roads that are not duplicates of the route, close enough
	// to count as touching it.
	var touches []geo.Point
	for _, road := range candidates {
		if len(road.Points) < 2 {
			continue
		}
		if d.insideCorridor(road.Points, route, exclusion) {
			continue
		}

		for _, endpoint := range []geo.Point{road.Points[0], road.Points[len(road.Points)-1]} {
			if geo.PointToPath(endpoint, route) <= proximity {
				touches = append(touches, endpoint)
			}
		}
	}

	deduped := dedupe(touches, proximity)

	// Points at the route's own ends are trivial touches, not crossings.
	routeStart := route[0]
	routeEnd := route[len(route)-1]
	crossings := deduped[:0:0]
	for _, p := range deduped {
		if geo.Distance(p, routeStart) <= proximity || geo.Distance(p, routeEnd) <= proximity {
			continue
		}
		crossings = append(crossings, p)
	}

	return crossings, nil
}

// fetchAll drains the paged collaborator inside the route's buffered
// bounding box, enforcing the page and candidate caps.
func (d *Detector) fetchAll(ctx context.Context, route []geo.Point) ([]Road, error) {
	bounds := geo.BoundsOf(route).Expand(d.opts.SearchBufferMeters / geo.MetersPerDegree)

	var all []Road
	pageToken := ""

	for page := 0; ; page++ {
		if page >= d.opts.MaxPages {
			return nil, fmt.Errorf("%w: road fetch exceeded %d pages", errdefs.ErrLimitExceeded, d.opts.MaxPages)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := d.fetcher.FetchRoads(ctx, bounds, pageToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errdefs.ErrUpstreamFetch, err)
		}

		all = append(all, result.Roads...)
		if len(all) > d.opts.MaxCandidates {
			return nil, fmt.Errorf("%w: %d candidate roads exceeds limit of %d", errdefs.ErrLimitExceeded, len(all), d.opts.MaxCandidates)
		}

		if result.NextPageToken == "" {
			return all, nil
		}
		pageToken = result.NextPageToken
	}
}

// insideCorridor reports whether every point of the road lies within the
// route's exclusion corridor, marking it a re-recording of the route itself.
func (d *Detector) insideCorridor(road, route []geo.Point, exclusionMeters float64) bool {
	for _, p := range road {
		if geo.PointToPath(p, route) > exclusionMeters {
			return false
		}
	}
	return true
}

// dedupe drops points closer than the tolerance to an already-kept point,
// keeping the first occurrence.
func dedupe(points []geo.Point, toleranceMeters float64) []geo.Point {
	var unique []geo.Point
	for _, p := range points {
		duplicate := false
		for _, kept := range unique {
			if geo.Distance(p, kept) < toleranceMeters {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, p)
		}
	}
	return unique
}
