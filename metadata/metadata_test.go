package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kato-seigou/Detection5Invasive/test/exiftest"
)

func TestDegrees(t *testing.T) {
	assert.InDelta(t, 10.5, Degrees(10, 30, 0), 1e-9)
	assert.InDelta(t, 35.6762, Degrees(35, 40, 34.32), 1e-4)
	assert.Equal(t, 0.0, Rational(5, 0))
	assert.Equal(t, 2.5, Rational(5, 2))
}

func TestNormalizeRef(t *testing.T) {
	assert.Equal(t, "S", NormalizeRef("s\x00"))
	assert.Equal(t, "W", NormalizeRef(" W "))
	assert.Equal(t, "N", NormalizeRef("N"))
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)
	for _, s := range []string{"2024:07:01 09:30:00", "2024-07-01 09:30:00", "2024/07/01 09:30:00\x00"} {
		got, ok := ParseTime(s)
		require.True(t, ok, s)
		assert.True(t, want.Equal(got), s)
	}
	_, ok := ParseTime("yesterday")
	assert.False(t, ok)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "IMG_0001.jpg", NormalizeName("IMG_0001.JPG"))
	assert.Equal(t, "a.jpeg", NormalizeName("a.jpeg"))
}

func TestReadFileWithGPS(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "IMG_0001.JPG")
	writeFile(t, path, jpegWith(t, exiftest.Block{
		DateTimeOriginal: "2024:07:01 09:30:00",
		Lat:              exiftest.DMS(10, 30, 0),
		LatRef:           "S",
		Lon:              exiftest.DMS(139, 45, 36),
		LonRef:           "E",
	}, 32, 16))

	rec := NewExtractor(golog.NewTestLogger(t)).ReadFile(path)
	assert.Equal(t, "IMG_0001.jpg", rec.ImagePath)
	require.NotNil(t, rec.DateTimeOriginal)
	assert.Equal(t, "2024-07-01 09:30:00", rec.DateTimeOriginal.Format("2006-01-02 15:04:05"))
	require.NotNil(t, rec.Latitude)
	require.NotNil(t, rec.Longitude)
	assert.InDelta(t, -10.5, *rec.Latitude, 1e-9)
	assert.InDelta(t, 139.76, *rec.Longitude, 1e-9)
}

func TestReadFileFallbacks(t *testing.T) {
	logger := golog.NewTestLogger(t)
	dir := t.TempDir()

	t.Run("falls back to DateTime", func(t *testing.T) {
		path := filepath.Join(dir, "dt.jpg")
		writeFile(t, path, jpegWith(t, exiftest.Block{DateTime: "2023-05-06 07:08:09"}, 8, 8))
		rec := NewExtractor(logger).ReadFile(path)
		require.NotNil(t, rec.DateTimeOriginal)
		assert.Equal(t, 2023, rec.DateTimeOriginal.Year())
		assert.Nil(t, rec.Latitude)
		assert.Nil(t, rec.Longitude)
	})

	t.Run("byte refs and zero denominators", func(t *testing.T) {
		path := filepath.Join(dir, "bytes.jpg")
		writeFile(t, path, jpegWith(t, exiftest.Block{
			Lat:        []exiftest.Rational{{10, 1}, {30, 0}, {0, 1}},
			LatRef:     "n",
			Lon:        exiftest.DMS(20, 0, 0),
			LonRef:     "W",
			RefAsBytes: true,
		}, 8, 8))
		rec := NewExtractor(logger).ReadFile(path)
		assert.Nil(t, rec.DateTimeOriginal)
		require.NotNil(t, rec.Latitude)
		require.NotNil(t, rec.Longitude)
		assert.InDelta(t, 10.0, *rec.Latitude, 1e-9)
		assert.InDelta(t, -20.0, *rec.Longitude, 1e-9)
	})

	t.Run("missing ref gives no coordinate", func(t *testing.T) {
		path := filepath.Join(dir, "noref.jpg")
		writeFile(t, path, jpegWith(t, exiftest.Block{
			Lat: exiftest.DMS(10, 0, 0),
			Lon: exiftest.DMS(20, 0, 0),
		}, 8, 8))
		rec := NewExtractor(logger).ReadFile(path)
		assert.Nil(t, rec.Latitude)
		assert.Nil(t, rec.Longitude)
	})

	t.Run("no exif at all", func(t *testing.T) {
		path := filepath.Join(dir, "plain.jpg")
		writeFile(t, path, []byte("not an image"))
		rec := NewExtractor(logger).ReadFile(path)
		assert.Equal(t, "plain.jpg", rec.ImagePath)
		assert.Nil(t, rec.DateTimeOriginal)
		assert.Nil(t, rec.Latitude)
	})
}

func TestExtractFolder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "A.JPG"), jpegWith(t, exiftest.Block{DateTimeOriginal: "2024:07:01 09:30:00"}, 8, 8))
	writeFile(t, filepath.Join(dir, "raw.tiff"), exiftest.Block{
		Lat: exiftest.DMS(1, 0, 0), LatRef: "N",
		Lon: exiftest.DMS(2, 0, 0), LonRef: "E",
	}.TIFF())
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("skip me"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755))

	records, err := NewExtractor(golog.NewTestLogger(t)).Extract(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)

	tbl := records.Table()
	assert.Equal(t, Columns, tbl.Columns)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "A.jpg", tbl.Get(0, ColImagePath))
	assert.IsType(t, time.Time{}, tbl.Get(0, ColDateTimeOriginal))
	assert.Nil(t, tbl.Get(0, ColLatitude))
	assert.Equal(t, "raw.tiff", tbl.Get(1, ColImagePath))
	assert.InDelta(t, 1.0, tbl.Get(1, ColLatitude), 1e-9)
	assert.InDelta(t, 2.0, tbl.Get(1, ColLongitude), 1e-9)
}

func TestExtractMissingFolder(t *testing.T) {
	_, err := NewExtractor(golog.NewTestLogger(t)).Extract(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
