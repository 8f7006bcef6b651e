package stretch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/roadnet/internal/errdefs"
	"github.com/dpup/roadnet/internal/lib/connectivity"
	"github.com/dpup/roadnet/internal/lib/geo"
)

func testTolerance(t *testing.T) connectivity.Tolerance {
	t.Helper()
	tol, err := connectivity.ToleranceFromMeters(11.1)
	require.NoError(t, err)
	return tol
}

func seg(t *testing.T, id string, points ...geo.Point) *connectivity.Segment {
	t.Helper()
	s, err := connectivity.NewSegment(id, points)
	require.NoError(t, err)
	return s
}

func pt(lat, lng float64) geo.Point {
	return geo.Point{Latitude: lat, Longitude: lng}
}

func newTestTraverser() *Traverser {
	return NewTraverser(connectivity.NewMatcher(), 0)
}

// chain builds a: 38.100-38.101, b: 38.101-38.102, c: 38.102-38.103 along a
// meridian, each about 111m.
func chain(t *testing.T) []*connectivity.Segment {
	t.Helper()
	return []*connectivity.Segment{
		seg(t, "a", pt(38.100, -120.5), pt(38.101, -120.5)),
		seg(t, "b", pt(38.101, -120.5), pt(38.102, -120.5)),
		seg(t, "c", pt(38.102, -120.5), pt(38.103, -120.5)),
	}
}

func TestTraverse_FromMiddle(t *testing.T) {
	tr := newTestTraverser()

	st, err := tr.Traverse(context.Background(), "b", chain(t), testTolerance(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, st.IDs())
	assert.Equal(t, "b", st.SeedID)
	assert.Equal(t, connectivity.DeadEnd, st.StartKind)
	assert.Equal(t, connectivity.DeadEnd, st.EndKind)
	assert.False(t, st.Truncated)
	assert.InDelta(t, 0.333, st.TotalLengthKm, 0.005)
}

func TestTraverse_FromEnd(t *testing.T) {
	tr := newTestTraverser()

	st, err := tr.Traverse(context.Background(), "a", chain(t), testTolerance(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, st.IDs())
}

func TestTraverse_StopsAtIntersection(t *testing.T) {
	tr := newTestTraverser()

	// Two roads fork away from b's far end
	candidates := append(chain(t),
		seg(t, "d", pt(38.102, -120.5), pt(38.102, -120.49)),
	)

	st, err := tr.Traverse(context.Background(), "a", candidates, testTolerance(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, st.IDs())
	assert.Equal(t, connectivity.DeadEnd, st.StartKind)
	assert.Equal(t, connectivity.Intersection, st.EndKind)
	assert.False(t, st.Truncated)
}

func TestTraverse_MirrorPairIsOneContinuation(t *testing.T) {
	tr := newTestTraverser()

	// b is recorded in both directions; the pair must not look like a fork
	candidates := []*connectivity.Segment{
		seg(t, "a", pt(38.100, -120.5), pt(38.101, -120.5)),
		seg(t, "b", pt(38.101, -120.5), pt(38.102, -120.5)),
		seg(t, "b-rev", pt(38.102, -120.5), pt(38.101, -120.5)),
	}

	st, err := tr.Traverse(context.Background(), "a", candidates, testTolerance(t))
	require.NoError(t, err)

	// The forward-oriented recording is chosen for the chain
	assert.Equal(t, []string{"a", "b"}, st.IDs())
	assert.Equal(t, connectivity.DeadEnd, st.EndKind)
	assert.False(t, st.Truncated)
}

func TestTraverse_CycleTerminates(t *testing.T) {
	tr := newTestTraverser()

	// Triangle loop
	p1 := pt(38.100, -120.5)
	p2 := pt(38.101, -120.5)
	p3 := pt(38.101, -120.49)
	candidates := []*connectivity.Segment{
		seg(t, "a", p1, p2),
		seg(t, "b", p2, p3),
		seg(t, "c", p3, p1),
	}

	st, err := tr.Traverse(context.Background(), "a", candidates, testTolerance(t))
	require.NoError(t, err)

	ids := st.IDs()
	assert.Len(t, ids, 3)
	seen := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "segment %s appears twice", id)
		seen[id] = true
	}
	assert.True(t, st.Truncated)
}

func TestTraverse_HopBound(t *testing.T) {
	tr := NewTraverser(connectivity.NewMatcher(), 1)

	st, err := tr.Traverse(context.Background(), "a", chain(t), testTolerance(t))
	require.NoError(t, err)

	// One hop forward, so c is out of reach
	assert.Equal(t, []string{"a", "b"}, st.IDs())
	assert.True(t, st.Truncated)
	assert.Equal(t, connectivity.Intersection, st.EndKind)
}

func TestTraverse_SeedNotInCandidates(t *testing.T) {
	tr := newTestTraverser()

	_, err := tr.Traverse(context.Background(), "nope", chain(t), testTolerance(t))
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
}

func TestTraverse_ZeroTolerance(t *testing.T) {
	tr := newTestTraverser()

	_, err := tr.Traverse(context.Background(), "a", chain(t), connectivity.Tolerance{})
	assert.ErrorIs(t, err, errdefs.ErrInvalidArgument)
}

func TestTraverse_CancelledContext(t *testing.T) {
	tr := newTestTraverser()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Traverse(ctx, "a", chain(t), testTolerance(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPartition_CoversEverySegmentOnce(t *testing.T) {
	tr := newTestTraverser()

	// One three-segment chain plus one isolated segment
	candidates := append(chain(t),
		seg(t, "island", pt(38.200, -120.5), pt(38.201, -120.5)),
	)

	stretches, err := tr.Partition(context.Background(), candidates, testTolerance(t))
	require.NoError(t, err)

	require.Len(t, stretches, 2)
	assert.Equal(t, []string{"a", "b", "c"}, stretches[0].IDs())
	assert.Equal(t, []string{"island"}, stretches[1].IDs())
}

func TestPartition_Deterministic(t *testing.T) {
	tr := newTestTraverser()
	tol := testTolerance(t)

	first, err := tr.Partition(context.Background(), chain(t), tol)
	require.NoError(t, err)
	second, err := tr.Partition(context.Background(), chain(t), tol)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].IDs(), second[i].IDs())
	}
}
