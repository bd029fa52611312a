package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	exifv3 "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
)

// Tag ids written without the standard encoders.
const (
	gpsIfdPointer  = 0x8825
	userCommentTag = 0x9286
)

// NativeCodec edits EXIF segments in-process.
type NativeCodec struct{}

// NewNativeCodec returns the pure Go codec.
func NewNativeCodec() *NativeCodec {
	return &NativeCodec{}
}

// Apply rewrites the tags named by c in the file at path.
func (NativeCodec) Apply(ctx context.Context, path string, c Changes) error {
	if c.IsEmpty() {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read jpeg: %w", err)
	}

	mc, err := jpegstructure.NewJpegMediaParser().ParseBytes(data)
	if err != nil {
		return fmt.Errorf("%w: %v", errNotJPEG, err)
	}
	sl, ok := mc.(*jpegstructure.SegmentList)
	if !ok {
		return fmt.Errorf("%w: unexpected media context %T", errNotJPEG, mc)
	}

	rootIb, err := rootBuilder(sl)
	if err != nil {
		return err
	}
	if err := setTags(rootIb, c); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := sl.SetExif(rootIb); err != nil {
		return fmt.Errorf("set exif: %w", err)
	}
	var buf bytes.Buffer
	if err := sl.Write(&buf); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("open jpeg: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("write jpeg: %w", err)
	}
	return f.Close()
}

// rootBuilder loads the existing EXIF tree, or starts an empty one.
func rootBuilder(sl *jpegstructure.SegmentList) (*exifv3.IfdBuilder, error) {
	_, _, err := sl.FindExif()
	if err == nil {
		rootIb, err := sl.ConstructExifBuilder()
		if err != nil {
			return nil, fmt.Errorf("load exif: %w: %v", errBadExif, err)
		}
		return rootIb, nil
	}
	if !errors.Is(err, exifv3.ErrNoExif) {
		return nil, fmt.Errorf("find exif: %w: %v", errBadExif, err)
	}

	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("ifd mapping: %w", err)
	}
	ti := exifv3.NewTagIndex()
	return exifv3.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder), nil
}

func setTags(rootIb *exifv3.IfdBuilder, c Changes) error {
	if c.DateTime != nil {
		if err := rootIb.SetStandardWithName("DateTime", *c.DateTime); err != nil {
			return fmt.Errorf("set DateTime: %w", err)
		}
		exifIb, err := exifv3.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
		if err != nil {
			return fmt.Errorf("exif ifd: %w", err)
		}
		for _, name := range []string{"DateTimeOriginal", "DateTimeDigitized"} {
			if err := exifIb.SetStandardWithName(name, *c.DateTime); err != nil {
				return fmt.Errorf("set %s: %w", name, err)
			}
		}
	}

	if c.Caption != nil {
		if err := rootIb.SetStandardWithName("ImageDescription", *c.Caption); err != nil {
			return fmt.Errorf("set ImageDescription: %w", err)
		}
		exifIb, err := exifv3.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
		if err != nil {
			return fmt.Errorf("exif ifd: %w", err)
		}
		bt := exifv3.NewBuilderTag(
			exifIb.IfdIdentity().UnindexedString(),
			userCommentTag,
			exifcommon.TypeUndefined,
			exifv3.NewIfdBuilderTagValueFromBytes(userCommentBytes(*c.Caption)),
			exifcommon.EncodeDefaultByteOrder)
		if err := exifIb.Set(bt); err != nil {
			return fmt.Errorf("set UserComment: %w", err)
		}
	}

	switch {
	case c.Location != nil:
		gpsIb, err := exifv3.GetOrCreateIbFromRootIb(rootIb, "IFD/GPSInfo")
		if err != nil {
			return fmt.Errorf("gps ifd: %w", err)
		}
		values := []struct {
			name  string
			value interface{}
		}{
			{"GPSLatitudeRef", c.Location.LatitudeRef},
			{"GPSLatitude", rationals(c.Location.Latitude)},
			{"GPSLongitudeRef", c.Location.LongitudeRef},
			{"GPSLongitude", rationals(c.Location.Longitude)},
		}
		for _, v := range values {
			if err := gpsIb.SetStandardWithName(v.name, v.value); err != nil {
				return fmt.Errorf("set %s: %w", v.name, err)
			}
		}
	case c.ClearLocation:
		if _, err := rootIb.DeleteAll(gpsIfdPointer); err != nil {
			return fmt.Errorf("remove gps: %w", err)
		}
	}
	return nil
}

func rationals(d DMS) []exifcommon.Rational {
	return []exifcommon.Rational{
		{Numerator: d.Degrees, Denominator: 1},
		{Numerator: d.Minutes, Denominator: 1},
		{Numerator: d.MilliSeconds, Denominator: 1000},
	}
}

// userCommentBytes prefixes ASCII captions with the ASCII marker and
// anything else with the UNICODE marker followed by UTF-8.
func userCommentBytes(caption string) []byte {
	marker := commentASCII
	for i := 0; i < len(caption); i++ {
		if caption[i] >= utf8.RuneSelf {
			marker = commentUnicode
			break
		}
	}
	return append([]byte(marker), caption...)
}
