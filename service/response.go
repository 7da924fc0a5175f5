package service

import (
	"encoding/base64"
	"fmt"
	"image"
	"time"

	"github.com/chaos-io/maskswap/model"
	"github.com/chaos-io/maskswap/segment"
	"github.com/chaos-io/maskswap/util"
)

// BuildResponse converts an outcome into the API shape. Absent images stay null.
func BuildResponse(md5 string, out segment.Outcome) (*model.SegmentResponse, error) {
	resp := &model.SegmentResponse{
		Success:  out.OK(),
		Severity: string(out.Message.Severity),
		Message:  out.Message.Text,
		Markdown: out.Message.Markdown(),
	}

	result := &model.SegmentResult{
		MD5:       md5,
		Provider:  out.Provider,
		Timestamp: time.Now().Unix(),
	}

	var err error
	if out.DrawnMask != nil {
		if result.DrawnMask, err = encodeBase64PNG(out.DrawnMask); err != nil {
			return nil, fmt.Errorf("encode drawn mask: %w", err)
		}
	}
	if out.RefinedMask != nil {
		if result.RefinedMask, err = encodeBase64PNG(out.RefinedMask); err != nil {
			return nil, fmt.Errorf("encode refined mask: %w", err)
		}
		stats := segment.MaskStats(out.RefinedMask)
		result.BoundingBox = model.BBox{
			X:      stats.BBox.Min.X,
			Y:      stats.BBox.Min.Y,
			Width:  stats.BBox.Dx(),
			Height: stats.BBox.Dy(),
		}
		result.Coverage = stats.Coverage
	}
	if out.Result != nil {
		if result.Result, err = encodeBase64PNG(out.Result); err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		result.Width, result.Height = out.Result.Bounds().Dx(), out.Result.Bounds().Dy()
	}
	for _, p := range out.Points {
		result.Points = append(result.Points, model.Point{X: p.X, Y: p.Y})
	}

	resp.Data = result
	return resp, nil
}

// FailureResponse reports a request that never produced an outcome, such as
// an undecodable upload or a full queue. Every image slot is null.
func FailureResponse(md5 string, msg segment.Message) *model.SegmentResponse {
	return &model.SegmentResponse{
		Success:  false,
		Severity: string(msg.Severity),
		Message:  msg.Text,
		Markdown: msg.Markdown(),
		Data: &model.SegmentResult{
			MD5:       md5,
			Timestamp: time.Now().Unix(),
		},
	}
}

func encodeBase64PNG(img image.Image) (*string, error) {
	data, err := util.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	s := base64.StdEncoding.EncodeToString(data)
	return &s, nil
}
