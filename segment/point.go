package segment

import (
	"encoding/binary"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Point is a prompt coordinate in the original image's pixel space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// ExtractPoints returns one prompt point per external foreground contour of mask,
// in the order the contours are found. Any non-zero pixel is foreground.
// The centroid is used when the contour encloses area, the contour's first
// vertex otherwise (single pixels and one-pixel lines).
func ExtractPoints(mask *image.Gray) ([]Point, error) {
	if mask == nil || mask.Bounds().Empty() {
		return nil, nil
	}

	src, err := grayToMat(mask)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = src.Close()
	}()

	contours := gocv.FindContours(src, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	points := make([]Point, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		vertices := contours.At(i).ToPoints()
		if len(vertices) == 0 {
			continue
		}

		p, err := contourPoint(vertices)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

func contourPoint(vertices []image.Point) (Point, error) {
	m, err := contourMoments(vertices)
	if err != nil {
		return Point{}, err
	}
	if m00 := m["m00"]; m00 != 0 {
		return Point{X: m["m10"] / m00, Y: m["m01"] / m00}, nil
	}
	return Point{X: float64(vertices[0].X), Y: float64(vertices[0].Y)}, nil
}

// contourMoments computes the polygon moments of a contour. The vertices are
// packed into an Nx1 two-channel int32 matrix, which OpenCV treats as a point set.
func contourMoments(vertices []image.Point) (map[string]float64, error) {
	data := make([]byte, len(vertices)*8)
	for i, v := range vertices {
		binary.LittleEndian.PutUint32(data[i*8:], uint32(int32(v.X)))
		binary.LittleEndian.PutUint32(data[i*8+4:], uint32(int32(v.Y)))
	}

	mat, err := gocv.NewMatFromBytes(len(vertices), 1, gocv.MatTypeCV32SC2, data)
	if err != nil {
		return nil, fmt.Errorf("contour matrix: %w", err)
	}
	defer func() {
		_ = mat.Close()
	}()

	return gocv.Moments(mat, false), nil
}

// grayToMat copies mask into a single-channel 8-bit matrix with a packed stride.
func grayToMat(mask *image.Gray) (gocv.Mat, error) {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()

	data := make([]byte, w*h)
	for y := 0; y < h; y++ {
		row := mask.PixOffset(b.Min.X, b.Min.Y+y)
		copy(data[y*w:(y+1)*w], mask.Pix[row:row+w])
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("mask matrix: %w", err)
	}
	return mat, nil
}
