package metadata

import (
	"fmt"
	"math"

	"github.com/electronjoe/photometa/internal/photo"
)

// DMS is an unsigned angle in the degree/minute/second form EXIF stores as
// three rationals: Degrees/1, Minutes/1, MilliSeconds/1000.
type DMS struct {
	Degrees      uint32
	Minutes      uint32
	MilliSeconds uint32
}

// ToDMS converts the magnitude of a decimal angle. A thousandth of an
// arc-second is about 3 cm on the ground.
func ToDMS(decimal float64) DMS {
	total := uint64(math.Round(math.Abs(decimal) * 3600 * 1000))
	return DMS{
		Degrees:      uint32(total / 3_600_000),
		Minutes:      uint32(total % 3_600_000 / 60_000),
		MilliSeconds: uint32(total % 60_000),
	}
}

// Decimal returns the unsigned decimal angle.
func (d DMS) Decimal() float64 {
	return float64(d.Degrees) + float64(d.Minutes)/60 + float64(d.MilliSeconds)/1000/3600
}

// Seconds returns the arc-seconds part as a float.
func (d DMS) Seconds() float64 {
	return float64(d.MilliSeconds) / 1000
}

// String renders d as "D M S.sss", the form exiftool accepts for GPS tags.
func (d DMS) String() string {
	return fmt.Sprintf("%d %d %.3f", d.Degrees, d.Minutes, d.Seconds())
}

// LatitudeRef returns "N" for non-negative latitudes and "S" otherwise.
func LatitudeRef(lat float64) string {
	if lat < 0 {
		return "S"
	}
	return "N"
}

// LongitudeRef returns "E" for non-negative longitudes and "W" otherwise.
func LongitudeRef(lon float64) string {
	if lon < 0 {
		return "W"
	}
	return "E"
}

// Signed applies a hemisphere reference to an unsigned DMS angle.
func Signed(d DMS, ref string) float64 {
	v := d.Decimal()
	if ref == "S" || ref == "W" {
		return -v
	}
	return v
}

// GPS is a position ready to be written as EXIF GPS tags.
type GPS struct {
	Latitude     DMS
	LatitudeRef  string
	Longitude    DMS
	LongitudeRef string
}

// NewGPS converts a decimal coordinate.
func NewGPS(c photo.GeoCoordinate) GPS {
	return GPS{
		Latitude:     ToDMS(c.Latitude),
		LatitudeRef:  LatitudeRef(c.Latitude),
		Longitude:    ToDMS(c.Longitude),
		LongitudeRef: LongitudeRef(c.Longitude),
	}
}

// Coordinate converts g back to decimal degrees.
func (g GPS) Coordinate() photo.GeoCoordinate {
	return photo.GeoCoordinate{
		Latitude:  Signed(g.Latitude, g.LatitudeRef),
		Longitude: Signed(g.Longitude, g.LongitudeRef),
	}
}
