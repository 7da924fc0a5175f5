package segment

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Composite resizes replacement to the size of original with bilinear
// sampling and blends it over original: mask 255 takes the replacement
// pixel, 0 keeps the original, values in between interpolate linearly.
// The result is a new image anchored at (0,0).
func Composite(original, replacement image.Image, mask *image.Gray) (*image.NRGBA, error) {
	if original == nil || replacement == nil || mask == nil {
		return nil, fmt.Errorf("%w: nil input", ErrCompositing)
	}

	size := original.Bounds().Size()
	if got := mask.Bounds().Size(); got != size {
		return nil, fmt.Errorf("%w: mask is %dx%d, image is %dx%d", ErrCompositing, got.X, got.Y, size.X, size.Y)
	}

	base := toNRGBA(original)
	over := resizeTo(replacement, size)

	out := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	mb := mask.Bounds()
	for y := 0; y < size.Y; y++ {
		mrow := mask.PixOffset(mb.Min.X, mb.Min.Y+y)
		for x := 0; x < size.X; x++ {
			m := uint32(mask.Pix[mrow+x])
			i := y*out.Stride + x*4
			switch m {
			case 0:
				copy(out.Pix[i:i+4], base.Pix[i:i+4])
			case 255:
				copy(out.Pix[i:i+4], over.Pix[i:i+4])
			default:
				for c := 0; c < 4; c++ {
					o, r := uint32(base.Pix[i+c]), uint32(over.Pix[i+c])
					out.Pix[i+c] = uint8((o*(255-m) + r*m + 127) / 255)
				}
			}
		}
	}
	return out, nil
}

// resizeTo returns img as an NRGBA of exactly size. Images already at size are only copied.
func resizeTo(img image.Image, size image.Point) *image.NRGBA {
	if img.Bounds().Size() == size {
		return toNRGBA(img)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// toNRGBA copies img into a fresh NRGBA anchored at (0,0).
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
