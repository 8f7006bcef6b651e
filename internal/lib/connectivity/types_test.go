package connectivity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/roadnet/internal/errdefs"
	"github.com/dpup/roadnet/internal/lib/geo"
)

func TestNewSegment_Validation(t *testing.T) {
	_, err := NewSegment("too-short", []geo.Point{{Latitude: 38, Longitude: -120}})
	assert.ErrorIs(t, err, errdefs.ErrInvalidArgument)

	_, err = NewSegment("empty", nil)
	assert.ErrorIs(t, err, errdefs.ErrInvalidArgument)

	seg, err := NewSegment("ok", []geo.Point{
		{Latitude: 38.0, Longitude: -120.5},
		{Latitude: 38.1, Longitude: -120.5},
	})
	require.NoError(t, err)
	assert.True(t, seg.Enabled)
	assert.InDelta(t, 11.12, seg.LengthKm, 0.05)
}

func TestFromRecord_DecodesGeometry(t *testing.T) {
	seg, err := FromRecord(Record{
		ID:       "seg-1",
		Geometry: `[[-120.5, 38.0], [-120.5, 38.1]]`,
		Priority: "primary",
		Enabled:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "seg-1", seg.ID)
	assert.Equal(t, "primary", seg.Priority)
	assert.True(t, seg.Enabled)
	assert.InDelta(t, 11.12, seg.LengthKm, 0.05)
}

func TestFromRecord_TrustsStoredLength(t *testing.T) {
	seg, err := FromRecord(Record{
		ID:       "seg-1",
		Geometry: `[[-120.5, 38.0], [-120.5, 38.1]]`,
		LengthKm: 42,
		Enabled:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, 42.0, seg.LengthKm)
}

func TestFromRecord_BadGeometry(t *testing.T) {
	_, err := FromRecord(Record{ID: "seg-1", Geometry: "", Enabled: true})
	assert.ErrorIs(t, err, errdefs.ErrDecode)
	assert.Contains(t, err.Error(), "seg-1")
}

func TestSegmentAccessors(t *testing.T) {
	seg, err := NewSegment("seg", []geo.Point{
		{Latitude: 38.0, Longitude: -120.6},
		{Latitude: 38.05, Longitude: -120.55},
		{Latitude: 38.1, Longitude: -120.5},
	})
	require.NoError(t, err)

	assert.Equal(t, geo.Point{Latitude: 38.0, Longitude: -120.6}, seg.Start())
	assert.Equal(t, geo.Point{Latitude: 38.1, Longitude: -120.5}, seg.End())
	assert.Equal(t, seg.Start(), seg.Coordinate(EndpointStart))
	assert.Equal(t, seg.End(), seg.Coordinate(EndpointEnd))

	b := seg.Bounds()
	assert.Equal(t, 38.0, b.MinLat)
	assert.Equal(t, 38.1, b.MaxLat)
	assert.Equal(t, -120.6, b.MinLng)
	assert.Equal(t, -120.5, b.MaxLng)
}

func TestEndpointString(t *testing.T) {
	assert.Equal(t, "start", EndpointStart.String())
	assert.Equal(t, "end", EndpointEnd.String())
}
