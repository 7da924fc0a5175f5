package segment

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// scoreThreshold splits model scores into background and foreground.
const scoreThreshold = 0.5

// Scores is a raw model mask: Width*Height row-major values in [0,1].
type Scores struct {
	Width  int
	Height int
	Values []float64
}

func (s Scores) validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("empty mask %dx%d", s.Width, s.Height)
	}
	if len(s.Values) != s.Width*s.Height {
		return fmt.Errorf("mask has %d values, want %dx%d", len(s.Values), s.Width, s.Height)
	}
	return nil
}

// AlphaMask returns the alpha channel of a paint layer as a mask anchored at (0,0).
// Partially painted pixels keep their coverage value.
func AlphaMask(layer image.Image) *image.Gray {
	b := layer.Bounds()
	mask := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, a := layer.At(x, y).RGBA()
			mask.Pix[(y-b.Min.Y)*mask.Stride+(x-b.Min.X)] = uint8(a >> 8)
		}
	}
	return mask
}

// Binarize maps scores to a strict 0/255 mask.
func Binarize(s Scores) (*image.Gray, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	mask := image.NewGray(image.Rect(0, 0, s.Width, s.Height))
	for i, v := range s.Values {
		if v >= scoreThreshold {
			mask.Pix[i] = 255
		}
	}
	return mask, nil
}

// fitMask resizes mask to size with nearest-neighbour sampling and
// re-binarizes it. Masks already at size are returned as is.
func fitMask(mask *image.Gray, size image.Point) (*image.Gray, error) {
	if mask.Bounds().Size() == size {
		return mask, nil
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, errors.New("cannot fit mask to an empty image")
	}

	resized := resize.Resize(uint(size.X), uint(size.Y), mask, resize.NearestNeighbor)
	b := resized.Bounds()
	out := image.NewGray(image.Rect(0, 0, size.X, size.Y))
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			r, _, _, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if r>>8 >= 128 {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out, nil
}

// Stats summarises a mask for logs and responses.
type Stats struct {
	BBox     image.Rectangle
	Coverage float64
}

// MaskStats returns the bounding box of non-zero pixels and the mean coverage.
func MaskStats(mask *image.Gray) Stats {
	if mask == nil {
		return Stats{}
	}
	b := mask.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := mask.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			v := mask.Pix[row+x-b.Min.X]
			if v == 0 {
				continue
			}
			sum += uint64(v)
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
		}
	}
	if sum == 0 {
		return Stats{}
	}
	return Stats{
		BBox:     image.Rect(minX, minY, maxX+1, maxY+1),
		Coverage: float64(sum) / 255 / float64(b.Dx()*b.Dy()),
	}
}

// CoverageLayer turns an uploaded mask file into a paint layer. Images that
// carry transparency are used as they are. Fully opaque images (grayscale
// masks, black-and-white PNGs) have their luminance moved into alpha, so
// white means painted.
func CoverageLayer(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
		return img
	}

	b := img.Bounds()
	layer := image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			layer.SetAlpha(x-b.Min.X, y-b.Min.Y, color.Alpha{A: g.Y})
		}
	}
	return layer
}
