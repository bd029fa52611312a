package photo

import (
	"time"

	"github.com/electronjoe/photometa/internal/dates"
)

// GeoCoordinate is a position in decimal degrees.
type GeoCoordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether g lies inside the latitude and longitude ranges.
func (g GeoCoordinate) Valid() bool {
	return g.Latitude >= -90 && g.Latitude <= 90 && g.Longitude >= -180 && g.Longitude <= 180
}

// Record is the editable metadata of one photo. Nil fields are absent from
// the file's EXIF block.
type Record struct {
	Path     string         `json:"path"`
	Date     *dates.Date    `json:"date,omitempty"`
	Clock    *dates.Clock   `json:"clock,omitempty"`
	Caption  *string        `json:"caption,omitempty"`
	Location *GeoCoordinate `json:"location,omitempty"`
}

// Update is a partial change to a Record. Nil fields are left untouched.
type Update struct {
	Date     *dates.Date
	Caption  *string
	Location *GeoCoordinate
	// ClearLocation removes any GPS position. It is ignored when Location is set.
	ClearLocation bool
}

// IsEmpty reports whether u changes nothing.
func (u Update) IsEmpty() bool {
	return u.Date == nil && u.Caption == nil && u.Location == nil && !u.ClearLocation
}

// Merge returns u with the fields of next applied on top.
func (u Update) Merge(next Update) Update {
	if next.Date != nil {
		u.Date = next.Date
	}
	if next.Caption != nil {
		u.Caption = next.Caption
	}
	if next.Location != nil {
		u.Location = next.Location
		u.ClearLocation = false
	} else if next.ClearLocation {
		u.Location = nil
		u.ClearLocation = true
	}
	return u
}

// Apply returns r with u applied, mirroring what a successful write does.
func (r Record) Apply(u Update) Record {
	if u.Date != nil {
		d := *u.Date
		r.Date = &d
	}
	if u.Caption != nil {
		c := *u.Caption
		r.Caption = &c
	}
	if u.Location != nil {
		l := *u.Location
		r.Location = &l
	} else if u.ClearLocation {
		r.Location = nil
	}
	return r
}

// Photo is one JPEG found by Scan.
type Photo struct {
	FilePath string
	Size     int64
	ModTime  time.Time
	Metadata Record
}
