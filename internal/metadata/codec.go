package metadata

import (
	"context"
	"errors"
)

// errNotJPEG is wrapped by codecs for content they cannot parse.
var errNotJPEG = errors.New("not a jpeg stream")

// errBadExif is wrapped by codecs when the EXIF block cannot be decoded.
var errBadExif = errors.New("unreadable exif block")

// Changes is the tag-level edit a Codec applies to one JPEG file. Nil
// fields are left as they are on disk.
type Changes struct {
	// DateTime is an EXIF "YYYY:MM:DD HH:MM:SS" value written to
	// DateTimeOriginal, DateTime and DateTimeDigitized.
	DateTime *string
	// Caption is written to ImageDescription and UserComment.
	Caption *string
	// Location replaces the GPS position.
	Location *GPS
	// ClearLocation removes all GPS tags. Ignored when Location is set.
	ClearLocation bool
}

// IsEmpty reports whether c would leave the file untouched.
func (c Changes) IsEmpty() bool {
	return c.DateTime == nil && c.Caption == nil && c.Location == nil && !c.ClearLocation
}

// Codec rewrites EXIF tags of the JPEG file at path in place. The Store
// only ever hands a codec a private temporary copy.
type Codec interface {
	Apply(ctx context.Context, path string, c Changes) error
}
