package metadata

import (
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// Position returns the decimal latitude and longitude of a photograph. Each
// value is nil unless both its coordinate and its reference are present and
// the coordinate has three components.
func Position(x *exif.Exif) (lat, lon *float64) {
	lat = coordinate(x, exif.GPSLatitude, exif.GPSLatitudeRef, "S")
	lon = coordinate(x, exif.GPSLongitude, exif.GPSLongitudeRef, "W")
	return lat, lon
}

func coordinate(x *exif.Exif, valueField, refField exif.FieldName, negative string) *float64 {
	value, err := x.Get(valueField)
	if err != nil {
		return nil
	}
	ref, err := x.Get(refField)
	if err != nil {
		return nil
	}

	dms, ok := tagDMS(value)
	if !ok {
		return nil
	}

	deg := Degrees(dms[0], dms[1], dms[2])
	if NormalizeRef(tagString(ref)) == negative {
		deg = -deg
	}
	return &deg
}

// Degrees converts degrees, minutes and seconds to decimal degrees.
func Degrees(d, m, s float64) float64 {
	return d + m/60.0 + s/3600.0
}

// Rational converts a numerator/denominator pair to a float, treating a zero
// denominator as 0.
func Rational(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// NormalizeRef upper-cases a GPS reference and strips padding, so "s\x00" and
// "S" compare equal.
func NormalizeRef(ref string) string {
	return strings.ToUpper(strings.TrimSpace(strings.Trim(ref, "\x00")))
}

// tagDMS reads a three-component coordinate. Components may be rationals or
// plain integers.
func tagDMS(tag *tiff.Tag) ([3]float64, bool) {
	var out [3]float64
	if tag.Count != 3 {
		return out, false
	}
	for i := 0; i < 3; i++ {
		v, ok := tagNumber(tag, i)
		if !ok {
			return out, false
		}
		out[i] = v
	}
	return out, true
}

func tagNumber(tag *tiff.Tag, i int) (float64, bool) {
	switch tag.Format() {
	case tiff.RatVal:
		num, den, err := tag.Rat2(i)
		if err != nil {
			return 0, false
		}
		return Rational(num, den), true
	case tiff.IntVal:
		v, err := tag.Int64(i)
		if err != nil {
			return 0, false
		}
		return float64(v), true
	case tiff.FloatVal:
		v, err := tag.Float(i)
		if err != nil {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

// tagString returns an ASCII tag as text, falling back to the raw bytes for
// writers that store references as BYTE or UNDEFINED.
func tagString(tag *tiff.Tag) string {
	if s, err := tag.StringVal(); err == nil {
		return s
	}
	return string(tag.Val)
}
