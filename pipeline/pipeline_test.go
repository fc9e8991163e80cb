package pipeline

import (
	"context"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kato-seigou/Detection5Invasive/common"
	"github.com/kato-seigou/Detection5Invasive/config"
	"github.com/kato-seigou/Detection5Invasive/inference"
	"github.com/kato-seigou/Detection5Invasive/metadata"
	"github.com/kato-seigou/Detection5Invasive/test"
	"github.com/kato-seigou/Detection5Invasive/test/exiftest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewParams(t *testing.T) {
	p, err := NewParams(5, 42, 0.25)
	require.NoError(t, err)
	assert.Equal(t, Params{Number: 5, Seed: 42, Confidence: 0.25}, p)

	p, err = NewParams([]int{3, 9}, "7", "0.5")
	require.NoError(t, err)
	assert.Equal(t, Params{Number: 3, Seed: 7, Confidence: 0.5}, p)

	p, err = NewParams([]any{"4"}, int64(1), float32(1))
	require.NoError(t, err)
	assert.Equal(t, 4, p.Number)

	tests := []struct {
		name                string
		number, seed, conf any
	}{
		{"number not numeric", "five", 42, 0.25},
		{"number empty slice", []int{}, 42, 0.25},
		{"number zero", 0, 42, 0.25},
		{"seed not numeric", 5, "abc", 0.25},
		{"conf not numeric", 5, 42, "high"},
		{"conf above one", 5, 42, 1.5},
		{"conf negative", 5, 42, -0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParams(tt.number, tt.seed, tt.conf)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Input = "photos"
	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("process", SplitDirName), opts.TileDir())
	assert.Equal(t, 5, opts.Params.Number)
	assert.InDelta(t, 0.25, opts.Params.Confidence, 1e-6)

	cfg.Number = 0
	_, err = OptionsFromConfig(cfg)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// writeSurvey writes two 1280x640 photographs. A1 has a yellow flower patch
// in each of its tiles and carries capture time and S/W GPS in its EXIF
// header; B2 has foliage only.
func writeSurvey(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gen := test.NewMockPhotoGenerator(1280, 640)
	require.NoError(t, gen.WriteJPEGWithEXIF(filepath.Join(dir, "A1.jpg"), exiftest.Block{
		DateTimeOriginal: "2024:07:01 09:30:00",
		Lat:              exiftest.DMS(35, 40, 30),
		LatRef:           "S",
		Lon:              exiftest.DMS(139, 45, 36),
		LonRef:           "W",
	}, test.Green,
		test.Patch{Rect: image.Rect(100, 100, 300, 300), Color: test.Yellow},
		test.Patch{Rect: image.Rect(800, 100, 1000, 300), Color: test.Yellow}))
	require.NoError(t, gen.WriteJPEG(filepath.Join(dir, "B2.jpg"), test.Green))
	return dir
}

func surveyOptions(t *testing.T, input string, det inference.Detector) Options {
	t.Helper()
	return Options{
		Input:          input,
		Process:        filepath.Join(t.TempDir(), "process"),
		Params:         Params{Number: 5, Seed: 42, Confidence: 0.25},
		MinColorPixels: 1,
		Open:           func() (inference.Detector, error) { return det, nil },
	}
}

func TestRunEndToEnd(t *testing.T) {
	input := writeSurvey(t)
	det := &test.MockDetector{
		ClassNames: []string{"france", "joon"},
		Boxes: map[string][]common.BoundingBox{
			"A1_1.jpg": {test.Box(0), test.Box(1)},
			"A1_2.jpg": {test.Box(1)},
		},
	}
	opts := surveyOptions(t, input, det)

	out, err := Run(context.Background(), opts, golog.NewTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, append(append([]string{}, metadata.Columns...), "france", "joon"), out.Columns)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "A1.jpg", out.Get(0, metadata.ColImagePath))

	taken, ok := out.Get(0, metadata.ColDateTimeOriginal).(time.Time)
	require.True(t, ok)
	assert.True(t, time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC).Equal(taken))
	assert.InDelta(t, -35.675, out.Get(0, metadata.ColLatitude), 1e-9)
	assert.InDelta(t, -139.76, out.Get(0, metadata.ColLongitude), 1e-9)

	assert.Equal(t, 1, out.Get(0, "france"))
	assert.Equal(t, 2, out.Get(0, "joon"))

	assert.ElementsMatch(t, []string{
		filepath.Join(opts.TileDir(), "A1_1.jpg"),
		filepath.Join(opts.TileDir(), "A1_2.jpg"),
	}, det.Calls())
	assert.FileExists(t, filepath.Join(opts.TileDir(), "B2_2.jpg"))
	assert.True(t, det.Closed())
}

func TestRunNoFlowers(t *testing.T) {
	dir := t.TempDir()
	gen := test.NewMockPhotoGenerator(640, 640)
	require.NoError(t, gen.WriteJPEG(filepath.Join(dir, "C3.jpg"), test.Green))

	det := &test.MockDetector{ClassNames: []string{"france"}}
	out, err := Run(context.Background(), surveyOptions(t, dir, det), golog.NewTestLogger(t))
	require.NoError(t, err)
	assert.True(t, out.Empty())
	assert.Equal(t, metadata.Columns, out.Columns)
	assert.Empty(t, det.Calls())
}

func TestRunMergeFailure(t *testing.T) {
	input := writeSurvey(t)
	det := &test.MockDetector{
		ClassNames: []string{"france", metadata.ColLatitude},
		Boxes:      map[string][]common.BoundingBox{"A1_1.jpg": {test.Box(0)}},
	}
	out, err := Run(context.Background(), surveyOptions(t, input, det), golog.NewTestLogger(t))
	require.NoError(t, err)
	assert.True(t, out.Empty())
	assert.Equal(t, append(append([]string{}, metadata.Columns...), "france"), out.Columns)
}

func TestRunModelLoadFailure(t *testing.T) {
	opts := surveyOptions(t, writeSurvey(t), nil)
	opts.Open = func() (inference.Detector, error) { return nil, errors.New("missing model") }

	out, err := Run(context.Background(), opts, golog.NewTestLogger(t))
	require.NoError(t, err)
	assert.True(t, out.Empty())
	assert.Equal(t, metadata.Columns, out.Columns)
}

func TestRunInvalidArguments(t *testing.T) {
	opts := surveyOptions(t, writeSurvey(t), &test.MockDetector{})
	opts.Params.Number = 0
	_, err := Run(context.Background(), opts, golog.NewTestLogger(t))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	opts = surveyOptions(t, filepath.Join(t.TempDir(), "missing"), &test.MockDetector{})
	_, err = Run(context.Background(), opts, golog.NewTestLogger(t))
	assert.Error(t, err)
}
