package segment

import (
	"context"
	"errors"
	"image"
	"image/color"
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// paintLayer returns a transparent w x h layer with the given rectangles painted opaque.
func paintLayer(w, h int, rects ...image.Rectangle) *image.NRGBA {
	layer := image.NewNRGBA(image.Rect(0, 0, w, h))
	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				layer.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
	return layer
}

func grayMask(w, h int, rects ...image.Rectangle) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return mask
}

func filledGray(w, h int, v uint8) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for i := range mask.Pix {
		mask.Pix[i] = v
	}
	return mask
}

// fakePredictor returns a fixed result and records the points it was asked about.
type fakePredictor struct {
	scores Scores
	err    error
	calls  [][]Point
}

func (f *fakePredictor) Predict(_ context.Context, _ image.Image, points []Point) (Scores, error) {
	f.calls = append(f.calls, points)
	return f.scores, f.err
}

// rectScores builds a w x h score grid with 1 inside r.
func rectScores(w, h int, r image.Rectangle) Scores {
	s := Scores{Width: w, Height: h, Values: make([]float64, w*h)}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			s.Values[y*w+x] = 1
		}
	}
	return s
}

type panicPredictor struct{}

func (panicPredictor) Predict(context.Context, image.Image, []Point) (Scores, error) {
	panic("model exploded")
}

var errBoom = errors.New("boom")

// panicImage has valid bounds but panics on pixel access.
type panicImage struct{ rect image.Rectangle }

func (p panicImage) ColorModel() color.Model { return color.NRGBAModel }
func (p panicImage) Bounds() image.Rectangle { return p.rect }
func (p panicImage) At(int, int) color.Color { panic("pixel read exploded") }
