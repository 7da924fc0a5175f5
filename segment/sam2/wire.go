package sam2

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chaos-io/maskswap/segment"
)

type loadReq struct {
	Weights string `json:"weights"`
}

type loadResp struct {
	Weights string `json:"weights"`
	Device  string `json:"device"`
	Error   string `json:"error"`
}

type predictReq struct {
	Weights string       `json:"weights"`
	Image   string       `json:"image"`
	Points  [][2]float64 `json:"points"`
	Labels  []int        `json:"labels"`
}

// predictResp carries N masks of H rows by W values each.
type predictResp struct {
	Masks [][][]score `json:"masks"`
	Error string      `json:"error"`
}

// score accepts a number or a boolean. null is rejected rather than read as 0.
type score float64

func (s *score) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errors.New("mask value is null")
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*s = 1
		} else {
			*s = 0
		}
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("mask value %s is neither number nor boolean", string(data))
	}
	*s = score(f)
	return nil
}

// first squeezes the response down to its first mask.
func (r *predictResp) first() (segment.Scores, error) {
	if len(r.Masks) == 0 {
		return segment.Scores{}, errors.New("sam2: model returned no masks")
	}

	rows := r.Masks[0]
	if len(rows) == 0 || len(rows[0]) == 0 {
		return segment.Scores{}, errors.New("sam2: model returned an empty mask")
	}

	h, w := len(rows), len(rows[0])
	values := make([]float64, 0, w*h)
	for y, row := range rows {
		if len(row) != w {
			return segment.Scores{}, fmt.Errorf("sam2: mask row %d has %d values, want %d", y, len(row), w)
		}
		for _, v := range row {
			values = append(values, float64(v))
		}
	}
	return segment.Scores{Width: w, Height: h, Values: values}, nil
}
