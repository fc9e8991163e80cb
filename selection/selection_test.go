package selection

import (
	"image/color"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/edaniels/golog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kato-seigou/Detection5Invasive/images"
)

var (
	flowerYellow = color.RGBA{R: 255, G: 200, B: 0, A: 255}
	leafGreen    = color.RGBA{G: 128, A: 255}
)

func TestTileID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		ok   bool
	}{
		{"DSC01_3.jpg", "DSC01", true},
		{"IMG_0001_12.jpg", "IMG_0001", true},
		{"a_b_c_1.jpg", "a_b_c", true},
		{"DSC01_3.JPG", "", false},
		{"DSC01.jpg", "", false},
		{"DSC-01_3.jpg", "", false},
		{"DSC01_x.jpg", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := TileID(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestGroupByID(t *testing.T) {
	groups := GroupByID([]string{
		"/t/B_1.jpg", "/t/A_1.jpg", "/t/B_2.jpg", "/t/readme.jpg", "/t/A_2.jpg",
	})
	require.Len(t, groups, 2)
	assert.Equal(t, "B", groups[0].ID)
	assert.Equal(t, []string{"/t/B_1.jpg", "/t/B_2.jpg"}, groups[0].Paths)
	assert.Equal(t, "A", groups[1].ID)
	assert.Equal(t, []string{"/t/A_1.jpg", "/t/A_2.jpg"}, groups[1].Paths)
}

func TestSample(t *testing.T) {
	paths := []string{"a", "b", "c", "d", "e", "f"}

	first := Sample(rand.New(rand.NewSource(42)), paths, 3)
	second := Sample(rand.New(rand.NewSource(42)), paths, 3)
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)

	seen := map[string]bool{}
	for _, p := range first {
		assert.False(t, seen[p], "duplicate %s", p)
		seen[p] = true
		assert.Contains(t, paths, p)
	}

	// Input is not reordered.
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, paths)

	all := Sample(rand.New(rand.NewSource(1)), paths, 10)
	assert.ElementsMatch(t, paths, all)

	assert.Empty(t, Sample(rand.New(rand.NewSource(1)), nil, 3))
	assert.Empty(t, Sample(rand.New(rand.NewSource(1)), paths, 0))
}

func writeTile(t *testing.T, dir, name string, c color.Color) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(imaging.New(32, 32, c), path))
	return path
}

func TestSelect(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 6; i++ {
		writeTile(t, dir, images.TileName("FLOWER", i), flowerYellow)
	}
	writeTile(t, dir, images.TileName("FLOWER", 7), leafGreen)
	writeTile(t, dir, images.TileName("WHITE", 1), color.White)
	writeTile(t, dir, images.TileName("WHITE", 2), leafGreen)
	for i := 1; i <= 3; i++ {
		writeTile(t, dir, images.TileName("LEAVES", i), leafGreen)
	}
	writeTile(t, dir, "stray.jpg", flowerYellow)

	s := NewSelector(golog.NewTestLogger(t), DefaultColorFilter())

	selected, err := s.Select(dir, 3, 42)
	require.NoError(t, err)
	require.Len(t, selected, 4)

	perGroup := map[string]int{}
	for _, p := range selected {
		id, ok := TileID(filepath.Base(p))
		require.True(t, ok)
		perGroup[id]++
	}
	assert.Equal(t, map[string]int{"FLOWER": 3, "WHITE": 1}, perGroup)
	assert.NotContains(t, selected, filepath.Join(dir, "FLOWER_7.jpg"))
	assert.Contains(t, selected, filepath.Join(dir, "WHITE_1.jpg"))

	again, err := s.Select(dir, 3, 42)
	require.NoError(t, err)
	assert.Equal(t, selected, again)
}

func TestColorFilterMinPixels(t *testing.T) {
	dir := t.TempDir()
	yellow := writeTile(t, dir, "Y_1.jpg", flowerYellow)
	green := writeTile(t, dir, "G_1.jpg", leafGreen)
	logger := golog.NewTestLogger(t)

	f := ColorFilter{Ranges: images.FlowerRanges}
	assert.Equal(t, []string{yellow}, f.Filter(logger, []string{yellow, green}))

	f.MinPixels = 32*32 + 1
	assert.Empty(t, f.Filter(logger, []string{yellow, green}))
}

func TestSelectMissingFolder(t *testing.T) {
	s := NewSelector(golog.NewTestLogger(t), DefaultColorFilter())
	_, err := s.Select(filepath.Join(t.TempDir(), "missing"), 3, 42)
	assert.Error(t, err)
}
