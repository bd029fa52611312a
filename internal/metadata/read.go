package metadata

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/rwcarlsen/goexif/exif"
	"go.uber.org/zap"

	"github.com/electronjoe/photometa/internal/dates"
	"github.com/electronjoe/photometa/internal/photo"
)

// Date tags in lookup order.
var dateFields = []exif.FieldName{exif.DateTimeOriginal, exif.DateTime, exif.DateTimeDigitized}

// Read returns the metadata record of the JPEG at path. Missing or
// malformed individual tags are reported as absent fields; a file without
// any EXIF segment yields an empty record.
func (s *Store) Read(path string) (photo.Record, error) {
	rec := photo.Record{Path: path}

	f, err := os.Open(path)
	if err != nil {
		return rec, ioError("read", path, err)
	}
	defer f.Close()

	if err := checkJPEG(f); err != nil {
		return rec, formatError("read", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return rec, ioError("read", path, err)
	}

	x, err := exif.Decode(f)
	if err != nil {
		s.logger.Debug("no usable exif", zap.String("path", path), zap.Error(err))
		return rec, nil
	}

	for _, name := range dateFields {
		v, ok := stringTag(x, name)
		if !ok {
			continue
		}
		d, c, err := dates.ParseEXIF(v)
		if err != nil {
			s.logger.Debug("bad date tag", zap.String("path", path), zap.String("tag", string(name)), zap.String("value", v))
			continue
		}
		rec.Date, rec.Clock = &d, &c
		break
	}

	if v, ok := stringTag(x, exif.ImageDescription); ok {
		rec.Caption = &v
	} else if v, ok := userComment(x); ok {
		rec.Caption = &v
	}

	if lat, lon, err := x.LatLong(); err == nil {
		c := photo.GeoCoordinate{Latitude: lat, Longitude: lon}
		if c.Valid() {
			rec.Location = &c
		} else {
			s.logger.Debug("gps out of range", zap.String("path", path), zap.Float64("lat", lat), zap.Float64("lon", lon))
		}
	}
	return rec, nil
}

// checkJPEG decodes only the image header.
func checkJPEG(r io.Reader) error {
	_, format, err := image.DecodeConfig(r)
	if err != nil {
		return err
	}
	if format != "jpeg" {
		return fmt.Errorf("%s image", format)
	}
	return nil
}

// stringTag returns a non-empty ASCII tag value with trailing NULs and
// padding removed.
func stringTag(x *exif.Exif, name exif.FieldName) (string, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return "", false
	}
	v, err := tag.StringVal()
	if err != nil {
		return "", false
	}
	v = strings.TrimRight(v, "\x00 ")
	return v, v != ""
}

// UserComment character set markers.
const (
	commentASCII   = "ASCII\x00\x00\x00"
	commentUnicode = "UNICODE\x00"
)

var commentPrefixes = [][]byte{
	[]byte(commentASCII),
	[]byte(commentUnicode),
	// Written by some libraries in place of the UNICODE marker.
	[]byte("Unicode\x00"),
	[]byte("JIS\x00\x00\x00\x00\x00"),
	make([]byte, 8),
}

// userComment decodes the UserComment tag. Its first 8 bytes name the
// character set; only text that is valid UTF-8 afterwards is returned.
func userComment(x *exif.Exif) (string, bool) {
	tag, err := x.Get(exif.UserComment)
	if err != nil {
		return "", false
	}
	raw := tag.Val
	if len(raw) < 8 {
		return "", false
	}
	known := false
	for _, p := range commentPrefixes {
		if bytes.Equal(raw[:8], p) {
			known = true
			break
		}
	}
	if !known {
		return "", false
	}
	body := bytes.TrimRight(raw[8:], "\x00 ")
	if len(body) == 0 || !utf8.Valid(body) {
		return "", false
	}
	return string(body), true
}
