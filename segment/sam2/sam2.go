package sam2

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/chaos-io/maskswap/segment"
	"github.com/chaos-io/maskswap/util"
	nhttp "github.com/chaos-io/maskswap/util/http"
	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

const (
	DefaultWeights = "sam2.1_t.pt"
	// DefaultMaxSide matches the model's input resolution.
	DefaultMaxSide = 1024

	loadPath    = "/api/load"
	predictPath = "/api/predict"

	labelForeground = 1
)

type Options struct {
	Endpoint string
	Weights  string
	Timeout  time.Duration
	MaxSide  int
}

// Client talks to a SAM2 inference service over HTTP.
type Client struct {
	opts Options
	cli  nhttp.IClient
}

var _ segment.Predictor = (*Client)(nil)

func NewClient(opts Options, cli nhttp.IClient) *Client {
	if opts.Weights == "" {
		opts.Weights = DefaultWeights
	}
	if opts.MaxSide <= 0 {
		opts.MaxSide = DefaultMaxSide
	}
	opts.Endpoint = strings.TrimRight(opts.Endpoint, "/")
	if cli == nil {
		cli = nhttp.NewHTTPClient()
	}
	return &Client{opts: opts, cli: cli}
}

// Load asks the service to load the configured weights and returns a ready client.
func Load(ctx context.Context, opts Options, cli nhttp.IClient) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("sam2: endpoint is not configured")
	}
	c := NewClient(opts, cli)

	resp := &loadResp{}
	err := c.cli.DoHTTPRequest(ctx, &nhttp.RequestParam{
		RequestURI: c.opts.Endpoint + loadPath,
		Method:     "POST",
		Header:     map[string]string{"Content-Type": "application/json"},
		Body:       &loadReq{Weights: c.opts.Weights},
		Response:   resp,
		Timeout:    c.opts.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("sam2: load %s: %w", c.opts.Weights, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("sam2: load %s: %s", c.opts.Weights, resp.Error)
	}

	util.Logger.Info("sam2 weights loaded",
		zap.String("endpoint", c.opts.Endpoint),
		zap.String("weights", c.opts.Weights),
		zap.String("device", resp.Device))
	return c, nil
}

// Predict submits img and points as one prompt set and returns the first mask.
// Images larger than MaxSide are downscaled first, so the returned mask may be
// smaller than img.
func (c *Client) Predict(ctx context.Context, img image.Image, points []segment.Point) (segment.Scores, error) {
	scaled, scale := resizeWithinMax(img, c.opts.MaxSide)

	data, err := util.EncodePNG(scaled)
	if err != nil {
		return segment.Scores{}, fmt.Errorf("encode image: %w", err)
	}

	req := &predictReq{
		Weights: c.opts.Weights,
		Image:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
		Points:  make([][2]float64, len(points)),
		Labels:  make([]int, len(points)),
	}
	for i, p := range points {
		req.Points[i] = [2]float64{p.X * scale, p.Y * scale}
		req.Labels[i] = labelForeground
	}

	resp := &predictResp{}
	err = c.cli.DoHTTPRequest(ctx, &nhttp.RequestParam{
		RequestURI: c.opts.Endpoint + predictPath,
		Method:     "POST",
		Header:     map[string]string{"Content-Type": "application/json"},
		Body:       req,
		Response:   resp,
		Timeout:    c.opts.Timeout,
	})
	if err != nil {
		return segment.Scores{}, fmt.Errorf("do request: %w", err)
	}
	if resp.Error != "" {
		return segment.Scores{}, fmt.Errorf("sam2: %s", resp.Error)
	}

	util.Logger.Debug("sam2 prediction received",
		zap.Int("masks", len(resp.Masks)),
		zap.Int("points", len(points)),
		zap.Float64("scale", scale))

	return resp.first()
}

// resizeWithinMax shrinks img so its longest side is at most maxSide and
// returns the applied scale factor.
func resizeWithinMax(img image.Image, maxSide int) (image.Image, float64) {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if longest <= maxSide {
		return img, 1
	}

	scale := float64(maxSide) / float64(longest)
	newW := max(1, int(float64(b.Dx())*scale))
	newH := max(1, int(float64(b.Dy())*scale))
	return resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3), scale
}
