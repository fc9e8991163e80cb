// Package metadata - Capture time and GPS position from photograph EXIF headers.
package metadata

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/kato-seigou/Detection5Invasive/table"
	"github.com/kato-seigou/Detection5Invasive/util"
)

// Output columns.
const (
	ColImagePath        = "image_path"
	ColDateTimeOriginal = "DateTimeOriginal"
	ColLatitude         = "Latitude"
	ColLongitude        = "Longitude"
)

// Columns is the schema of a metadata table.
var Columns = []string{ColImagePath, ColDateTimeOriginal, ColLatitude, ColLongitude}

// Extensions are the still-image extensions read, compared in lower case.
var Extensions = []string{".jpg", ".jpeg", ".tiff", ".bmp", ".gif"}

// TimeFields are tried in order; the first one that parses is used.
var TimeFields = []exif.FieldName{exif.DateTimeOriginal, exif.DateTime, exif.DateTimeDigitized}

// TimeLayouts are the accepted timestamp layouts, in order.
var TimeLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
}

// Record is the metadata of one photograph. Nil fields were not present or
// could not be parsed.
type Record struct {
	ImagePath        string
	DateTimeOriginal *time.Time
	Latitude         *float64
	Longitude        *float64
}

// Records is the metadata of a folder of photographs.
type Records []Record

// Extractor reads metadata records from a folder of photographs.
type Extractor struct {
	logger golog.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(logger golog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract reads one record for every still image directly inside dir.
//
// Missing EXIF data, GPS fields or timestamps leave the corresponding fields
// nil; they never fail the record.
//
// Arguments:
//   - dir: The folder of original photographs.
//
// Returns:
//   - Records: One record per image, in directory order.
//   - error: An error if the folder does not exist or cannot be listed.
func (e *Extractor) Extract(dir string) (Records, error) {
	if !util.Exists(dir) {
		return nil, errors.Errorf("folder not found: %s", dir)
	}
	paths, err := util.ListFiles(dir, util.ExtensionFold(Extensions...))
	if err != nil {
		return nil, err
	}

	records := make(Records, 0, len(paths))
	for _, p := range paths {
		records = append(records, e.ReadFile(p))
	}
	e.logger.Infow("metadata extracted", "folder", dir, "images", len(records))
	return records, nil
}

// ReadFile reads the record of a single photograph.
func (e *Extractor) ReadFile(path string) Record {
	rec := Record{ImagePath: NormalizeName(filepath.Base(path))}

	x, err := ReadEXIF(path)
	if err != nil {
		e.logger.Infow("no exif data", "path", path, "error", err)
		return rec
	}

	rec.DateTimeOriginal = CaptureTime(x)
	rec.Latitude, rec.Longitude = Position(x)
	return rec
}

// ReadEXIF decodes the EXIF block of a JPEG or TIFF file.
func ReadEXIF(path string) (*exif.Exif, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if x == nil {
		if err == nil {
			err = errors.New("empty exif block")
		}
		return nil, errors.Wrapf(err, "failed to decode exif of %s", path)
	}
	// Non-critical errors leave a partially decoded block that is still usable.
	return x, nil
}

// CaptureTime returns the first timestamp field that parses, or nil.
func CaptureTime(x *exif.Exif) *time.Time {
	for _, field := range TimeFields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		if ts, ok := ParseTime(tagString(tag)); ok {
			return &ts
		}
	}
	return nil
}

// ParseTime parses a zone-less timestamp against TimeLayouts.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	for _, layout := range TimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// NormalizeName rewrites an upper-case .JPG suffix to .jpg so metadata rows
// join with detection rows.
func NormalizeName(name string) string {
	return strings.ReplaceAll(name, ".JPG", ".jpg")
}

// Table converts the records to a table with Columns.
func (rs Records) Table() *table.Table {
	t := table.New(Columns...)
	for _, r := range rs {
		row := map[string]any{ColImagePath: r.ImagePath}
		if r.DateTimeOriginal != nil {
			row[ColDateTimeOriginal] = *r.DateTimeOriginal
		}
		if r.Latitude != nil {
			row[ColLatitude] = *r.Latitude
		}
		if r.Longitude != nil {
			row[ColLongitude] = *r.Longitude
		}
		t.Append(Columns, row)
	}
	return t
}
