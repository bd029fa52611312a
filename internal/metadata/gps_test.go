package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/electronjoe/photometa/internal/photo"
)

func TestToDMS(t *testing.T) {
	assert.Equal(t, DMS{Degrees: 37, Minutes: 46, MilliSeconds: 29640}, ToDMS(37.7749))
	assert.Equal(t, DMS{Degrees: 122, Minutes: 25, MilliSeconds: 9840}, ToDMS(-122.4194))
	assert.Equal(t, DMS{}, ToDMS(0))
	assert.Equal(t, DMS{Degrees: 180}, ToDMS(-180))
}

func TestToDMS_CarriesRoundedSeconds(t *testing.T) {
	// 59.99996 arc-seconds round up to a whole degree
	assert.Equal(t, DMS{Degrees: 11}, ToDMS(10.99999999))
}

func TestDMS_DecimalRoundTrip(t *testing.T) {
	for _, v := range []float64{0.000001, 1.5, 45.123456, 89.999999, 179.654321} {
		assert.InDelta(t, v, ToDMS(v).Decimal(), 1e-6, "value %v", v)
	}
}

func TestDMS_String(t *testing.T) {
	assert.Equal(t, "37 46 29.640", ToDMS(37.7749).String())
}

func TestRefs(t *testing.T) {
	assert.Equal(t, "N", LatitudeRef(0))
	assert.Equal(t, "S", LatitudeRef(-0.1))
	assert.Equal(t, "E", LongitudeRef(12))
	assert.Equal(t, "W", LongitudeRef(-12))
}

func TestGPS_CoordinateRoundTrip(t *testing.T) {
	for _, c := range []photo.GeoCoordinate{
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 64.1466, Longitude: -21.9426},
		{Latitude: -90, Longitude: 180},
	} {
		got := NewGPS(c).Coordinate()
		// 1e-5 degrees is roughly one metre
		assert.InDelta(t, c.Latitude, got.Latitude, 1e-5)
		assert.InDelta(t, c.Longitude, got.Longitude, 1e-5)
	}
}
