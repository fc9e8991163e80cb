package table

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendFillsMissing(t *testing.T) {
	tb := New("image_path")
	tb.Append([]string{"image_path", "joon"}, map[string]any{"image_path": "a.jpg", "joon": 2})
	tb.Append([]string{"image_path", "france"}, map[string]any{"image_path": "b.jpg", "france": 1})

	assert.Equal(t, []string{"image_path", "joon", "france"}, tb.Columns)
	assert.Equal(t, 2, tb.Len())
	assert.Nil(t, tb.Get(0, "france"))
	assert.Nil(t, tb.Get(1, "joon"))
	assert.Equal(t, 1, tb.Get(1, "france"))
	assert.Nil(t, tb.Get(0, "missing"))
}

func TestInnerJoin(t *testing.T) {
	left := New("image_path", "Latitude")
	left.Append(left.Columns, map[string]any{"image_path": "b.jpg", "Latitude": 1.5})
	left.Append(left.Columns, map[string]any{"image_path": "a.jpg", "Latitude": nil})
	left.Append(left.Columns, map[string]any{"image_path": "only-left.jpg"})

	right := New("image_path", "joon")
	right.Append(right.Columns, map[string]any{"image_path": "a.jpg", "joon": 3})
	right.Append(right.Columns, map[string]any{"image_path": "b.jpg", "joon": 4})
	right.Append(right.Columns, map[string]any{"image_path": "only-right.jpg", "joon": 9})

	joined, err := InnerJoin(left, right, "image_path")
	require.NoError(t, err)

	assert.Equal(t, []string{"image_path", "Latitude", "joon"}, joined.Columns)
	require.Equal(t, 2, joined.Len())
	// Left order is preserved.
	assert.Equal(t, "b.jpg", joined.Get(0, "image_path"))
	assert.Equal(t, 4, joined.Get(0, "joon"))
	assert.Equal(t, "a.jpg", joined.Get(1, "image_path"))
	assert.Equal(t, 3, joined.Get(1, "joon"))
}

func TestInnerJoinErrors(t *testing.T) {
	_, err := InnerJoin(New("x"), New("image_path"), "image_path")
	assert.Error(t, err)

	_, err = InnerJoin(New("image_path", "v"), New("image_path", "v"), "image_path")
	assert.Error(t, err)
}

func TestRenderCSV(t *testing.T) {
	ts := time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)
	tb := New("image_path", "DateTimeOriginal", "Latitude", "joon")
	tb.Append(tb.Columns, map[string]any{"image_path": "a.jpg", "DateTimeOriginal": ts, "Latitude": -10.5, "joon": 2})
	tb.Append(tb.Columns, map[string]any{"image_path": "b.jpg", "joon": 0})

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, tb, FormatCSV))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "image_path,DateTimeOriginal,Latitude,joon", lines[0])
	assert.Equal(t, "a.jpg,2024-07-01 09:30:00,-10.5,2", lines[1])
	assert.Equal(t, "b.jpg,,,0", lines[2])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("markdown")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestFormatCell(t *testing.T) {
	var missing *float64
	lat := -35.5
	taken := time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		cell any
		want string
	}{
		{"nil", nil, ""},
		{"nil float pointer", missing, ""},
		{"float pointer", &lat, "-35.5"},
		{"int", 3, "3"},
		{"time", taken, taken.Format(TimeLayout)},
		{"int64", int64(7), "7"},
		{"float32", float32(0.5), "0.5"},
		{"bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCell(tt.cell))
		})
	}
}
