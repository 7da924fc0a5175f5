package segment

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphaMask(t *testing.T) {
	layer := image.NewNRGBA(image.Rect(10, 10, 14, 12))
	layer.SetNRGBA(10, 10, color.NRGBA{R: 0, G: 0, B: 0, A: 255})
	layer.SetNRGBA(13, 11, color.NRGBA{R: 255, G: 0, B: 0, A: 128})

	mask := AlphaMask(layer)
	require.Equal(t, image.Rect(0, 0, 4, 2), mask.Bounds())
	assert.Equal(t, uint8(255), mask.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(128), mask.GrayAt(3, 1).Y)
	assert.Equal(t, uint8(0), mask.GrayAt(1, 0).Y)
}

func TestAlphaMask_OpaqueImage(t *testing.T) {
	mask := AlphaMask(solid(3, 3, red))
	for _, v := range mask.Pix {
		assert.Equal(t, uint8(255), v)
	}
}

func TestBinarize(t *testing.T) {
	mask, err := Binarize(Scores{Width: 3, Height: 2, Values: []float64{0, 0.49, 0.5, 1, 0.9, 0.1}})
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0, 255, 255, 255, 0}, mask.Pix)
}

func TestBinarize_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		scores Scores
	}{
		{name: "empty", scores: Scores{}},
		{name: "short", scores: Scores{Width: 2, Height: 2, Values: []float64{1, 0, 1}}},
		{name: "negative", scores: Scores{Width: -1, Height: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Binarize(tt.scores)
			assert.Error(t, err)
		})
	}
}

func TestFitMask(t *testing.T) {
	small := grayMask(10, 10, image.Rect(0, 0, 5, 10))

	same, err := fitMask(small, image.Pt(10, 10))
	require.NoError(t, err)
	assert.Same(t, small, same)

	big, err := fitMask(small, image.Pt(20, 20))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 20, 20), big.Bounds())
	assert.Equal(t, uint8(255), big.GrayAt(2, 10).Y)
	assert.Equal(t, uint8(0), big.GrayAt(17, 10).Y)
	for _, v := range big.Pix {
		assert.Contains(t, []uint8{0, 255}, v)
	}

	_, err = fitMask(small, image.Pt(0, 5))
	assert.Error(t, err)
}

func TestMaskStats(t *testing.T) {
	assert.Equal(t, Stats{}, MaskStats(nil))
	assert.Equal(t, Stats{}, MaskStats(image.NewGray(image.Rect(0, 0, 5, 5))))

	stats := MaskStats(grayMask(10, 10, image.Rect(2, 3, 6, 8)))
	assert.Equal(t, image.Rect(2, 3, 6, 8), stats.BBox)
	assert.InDelta(t, 0.2, stats.Coverage, 1e-9)
}

func TestCoverageLayer(t *testing.T) {
	assert.Nil(t, CoverageLayer(nil))

	t.Run("gray mask becomes alpha", func(t *testing.T) {
		gray := image.NewGray(image.Rect(5, 5, 9, 9))
		gray.SetGray(6, 7, color.Gray{Y: 255})
		gray.SetGray(7, 7, color.Gray{Y: 100})

		layer := CoverageLayer(gray)
		require.IsType(t, &image.Alpha{}, layer)
		assert.Equal(t, image.Rect(0, 0, 4, 4), layer.Bounds())

		mask := AlphaMask(layer)
		assert.Equal(t, uint8(255), mask.GrayAt(1, 2).Y)
		assert.Equal(t, uint8(100), mask.GrayAt(2, 2).Y)
		assert.Equal(t, uint8(0), mask.GrayAt(0, 0).Y)
	})

	t.Run("transparent layer kept", func(t *testing.T) {
		layer := paintLayer(4, 4, image.Rect(1, 1, 2, 2))
		assert.Same(t, layer, CoverageLayer(layer))
	})
}
