package metadata

import (
	"context"
	"fmt"
	"os"

	"github.com/barasher/go-exiftool"
)

// ExiftoolCodec writes tags through a long-running exiftool process.
type ExiftoolCodec struct {
	et *exiftool.Exiftool
}

// NewExiftoolCodec starts exiftool. An empty binaryPath looks it up on
// PATH.
func NewExiftoolCodec(binaryPath string) (*ExiftoolCodec, error) {
	var opts []func(*exiftool.Exiftool) error
	if binaryPath != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(binaryPath))
	}
	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	return &ExiftoolCodec{et: et}, nil
}

// Close stops the exiftool process.
func (c *ExiftoolCodec) Close() error {
	return c.et.Close()
}

// Apply rewrites the tags named by ch in the file at path.
func (c *ExiftoolCodec) Apply(ctx context.Context, path string, ch Changes) error {
	if ch.IsEmpty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fm := exiftool.EmptyFileMetadata()
	fm.File = path
	if ch.DateTime != nil {
		fm.SetString("DateTimeOriginal", *ch.DateTime)
		fm.SetString("ModifyDate", *ch.DateTime)
		fm.SetString("CreateDate", *ch.DateTime)
	}
	if ch.Caption != nil {
		fm.SetString("ImageDescription", *ch.Caption)
		fm.SetString("UserComment", *ch.Caption)
	}
	switch {
	case ch.Location != nil:
		fm.SetString("GPSLatitude", ch.Location.Latitude.String())
		fm.SetString("GPSLatitudeRef", ch.Location.LatitudeRef)
		fm.SetString("GPSLongitude", ch.Location.Longitude.String())
		fm.SetString("GPSLongitudeRef", ch.Location.LongitudeRef)
	case ch.ClearLocation:
		fm.SetString("GPS:All", "")
	}

	mds := []exiftool.FileMetadata{fm}
	c.et.WriteMetadata(mds)
	// exiftool keeps a copy unless told to overwrite in place.
	os.Remove(path + "_original")
	if mds[0].Err != nil {
		return fmt.Errorf("exiftool write: %w", mds[0].Err)
	}
	return nil
}
