package common

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundingBoxIoU(t *testing.T) {
	a := BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100}
	b := BoundingBox{X1: 50, Y1: 50, X2: 150, Y2: 150}
	c := BoundingBox{X1: 200, Y1: 200, X2: 210, Y2: 210}

	assert.Equal(t, float32(2500), a.Intersection(&b))
	assert.Equal(t, float32(17500), a.Union(&b))
	assert.InDelta(t, 0.142857, a.IoU(&b), 1e-5)
	assert.Equal(t, float32(0), a.IoU(&c))
	assert.Equal(t, float32(1), a.IoU(&a))

	empty := BoundingBox{}
	assert.Equal(t, float32(0), empty.IoU(&empty))
}

func TestBoundingBoxToRect(t *testing.T) {
	b := BoundingBox{X1: 20.7, Y1: 30.2, X2: 10.1, Y2: 5.9}
	assert.Equal(t, image.Rect(10, 5, 20, 30), b.ToRect())
}
