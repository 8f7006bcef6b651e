package crossing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/roadnet/internal/errdefs"
	"github.com/dpup/roadnet/internal/lib/geo"
)

func pt(lat, lng float64) geo.Point {
	return geo.Point{Latitude: lat, Longitude: lng}
}

// route runs north along a meridian; side roads branch off east.
var testRoute = []geo.Point{
	pt(38.100, -120.5),
	pt(38.110, -120.5),
	pt(38.120, -120.5),
}

// pagedFetcher serves a fixed set of pages and records calls.
type pagedFetcher struct {
	pages      []*Page
	calls      int
	lastBounds geo.Bounds
	err        error
}

func (f *pagedFetcher) FetchRoads(ctx context.Context, bounds geo.Bounds, pageToken string) (*Page, error) {
	f.lastBounds = bounds
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func singlePage(roads ...Road) *pagedFetcher {
	return &pagedFetcher{pages: []*Page{{Roads: roads}}}
}

func TestFind_SideRoadTouchingRoute(t *testing.T) {
	// A side road whose start sits on the route's interior
	side := Road{ID: "side", Points: []geo.Point{
		pt(38.110, -120.5),
		pt(38.110, -120.49),
	}}
	d := NewDetector(singlePage(side), Options{})

	points, err := d.Find(context.Background(), testRoute)
	require.NoError(t, err)

	require.Len(t, points, 1)
	assert.InDelta(t, 38.110, points[0].Latitude, 1e-9)
}

func TestFind_FarRoadIgnored(t *testing.T) {
	far := Road{ID: "far", Points: []geo.Point{
		pt(38.110, -120.49),
		pt(38.110, -120.48),
	}}
	d := NewDetector(singlePage(far), Options{})

	points, err := d.Find(context.Background(), testRoute)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestFind_DuplicateOfRouteExcluded(t *testing.T) {
	// A re-recording of the route shifted a few meters sideways lies wholly
	// within the exclusion corridor, so its endpoints are not crossings.
	dup := Road{ID: "dup", Points: []geo.Point{
		pt(38.100, -120.50001),
		pt(38.110, -120.50001),
		pt(38.120, -120.50001),
	}}
	d := NewDetector(singlePage(dup), Options{})

	points, err := d.Find(context.Background(), testRoute)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestFind_PartialOverlapStillCounts(t *testing.T) {
	// A road that follows the route then veers away is not a duplicate, and
	// its on-route endpoint is a crossing.
	veering := Road{ID: "veer", Points: []geo.Point{
		pt(38.110, -120.5),
		pt(38.110, -120.45),
	}}
	d := NewDetector(singlePage(veering), Options{})

	points, err := d.Find(context.Background(), testRoute)
	require.NoError(t, err)
	require.Len(t, points, 1)
}

func TestFind_RouteEndpointsExcluded(t *testing.T) {
	// Roads touching exactly at the route's own ends are trivial
	atStart := Road{ID: "at-start", Points: []geo.Point{
		pt(38.100, -120.5),
		pt(38.100, -120.49),
	}}
	atEnd := Road{ID: "at-end", Points: []geo.Point{
		pt(38.120, -120.5),
		pt(38.120, -120.49),
	}}
	d := NewDetector(singlePage(atStart, atEnd), Options{})

	points, err := d.Find(context.Background(), testRoute)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestFind_EndpointExclusionIncludesBoundary(t *testing.T) {
	// A road ending exactly at the proximity tolerance from the route's
	// start is still a trivial touch, not a crossing.
	nearStart := pt(38.0999, -120.5)
	road := Road{ID: "near-start", Points: []geo.Point{
		nearStart,
		pt(38.0999, -120.49),
	}}
	d := NewDetector(singlePage(road), Options{
		ProximityToleranceMeters: geo.Distance(nearStart, testRoute[0]),
	})

	points, err := d.Find(context.Background(), testRoute)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestFind_DedupesNearbyTouches(t *testing.T) {
	// Two side roads meeting the route within a few meters of each other
	a := Road{ID: "a", Points: []geo.Point{
		pt(38.110, -120.5),
		pt(38.110, -120.49),
	}}
	b := Road{ID: "b", Points: []geo.Point{
		pt(38.11002, -120.5),
		pt(38.11002, -120.49),
	}}
	d := NewDetector(singlePage(a, b), Options{})

	points, err := d.Find(context.Background(), testRoute)
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestFind_DegenerateRoadsSkipped(t *testing.T) {
	point := Road{ID: "point", Points: []geo.Point{pt(38.110, -120.5)}}
	d := NewDetector(singlePage(point), Options{})

	points, err := d.Find(context.Background(), testRoute)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestFind_ShortRoute(t *testing.T) {
	d := NewDetector(singlePage(), Options{})

	_, err := d.Find(context.Background(), testRoute[:1])
	assert.ErrorIs(t, err, errdefs.ErrInvalidArgument)
}

func TestFind_DrainsAllPages(t *testing.T) {
	side := Road{ID: "side", Points: []geo.Point{
		pt(38.110, -120.5),
		pt(38.110, -120.49),
	}}
	fetcher := &pagedFetcher{pages: []*Page{
		{Roads: nil, NextPageToken: "p2"},
		{Roads: []Road{side}},
	}}
	d := NewDetector(fetcher, Options{})

	points, err := d.Find(context.Background(), testRoute)
	require.NoError(t, err)

	assert.Equal(t, 2, fetcher.calls)
	assert.Len(t, points, 1)
}

func TestFind_SearchBufferExpandsBounds(t *testing.T) {
	fetcher := singlePage()
	d := NewDetector(fetcher, Options{SearchBufferMeters: 111})

	_, err := d.Find(context.Background(), testRoute)
	require.NoError(t, err)

	// 111m is 0.001 degrees at the fixed conversion rate
	assert.InDelta(t, 38.100-0.001, fetcher.lastBounds.MinLat, 1e-9)
	assert.InDelta(t, 38.120+0.001, fetcher.lastBounds.MaxLat, 1e-9)
}

func TestFind_PageCapEnforced(t *testing.T) {
	// Every page points to another
	var pages []*Page
	for i := 0; i < 5; i++ {
		pages = append(pages, &Page{NextPageToken: fmt.Sprintf("p%d", i+1)})
	}
	fetcher := &pagedFetcher{pages: pages}
	d := NewDetector(fetcher, Options{MaxPages: 3})

	_, err := d.Find(context.Background(), testRoute)
	assert.ErrorIs(t, err, errdefs.ErrLimitExceeded)
}

func TestFind_CandidateCapEnforced(t *testing.T) {
	var roads []Road
	for i := 0; i < 11; i++ {
		roads = append(roads, Road{ID: fmt.Sprintf("r%d", i), Points: []geo.Point{
			pt(38.110, -120.49),
			pt(38.110, -120.48),
		}})
	}
	d := NewDetector(singlePage(roads...), Options{MaxCandidates: 10})

	_, err := d.Find(context.Background(), testRoute)
	assert.ErrorIs(t, err, errdefs.ErrLimitExceeded)
}

func TestFind_FetchErrorWrapped(t *testing.T) {
	fetcher := &pagedFetcher{err: errors.New("boom")}
	d := NewDetector(fetcher, Options{})

	_, err := d.Find(context.Background(), testRoute)
	assert.ErrorIs(t, err, errdefs.ErrUpstreamFetch)
	assert.Contains(t, err.Error(), "boom")
}

func TestFind_CancelledContext(t *testing.T) {
	d := NewDetector(singlePage(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Find(ctx, testRoute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()

	assert.Equal(t, float64(DefaultProximityToleranceMeters), o.ProximityToleranceMeters)
	assert.Equal(t, float64(DefaultExclusionToleranceMeters), o.ExclusionToleranceMeters)
	assert.Equal(t, float64(DefaultSearchBufferMeters), o.SearchBufferMeters)
	assert.Equal(t, DefaultMaxCandidates, o.MaxCandidates)
	assert.Equal(t, DefaultMaxPages, o.MaxPages)

	// Explicit values survive
	o = Options{MaxPages: 7}.withDefaults()
	assert.Equal(t, 7, o.MaxPages)
}
