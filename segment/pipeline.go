package segment

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/chaos-io/maskswap/util"
	"go.uber.org/zap"
)

// EditorValue is what the drawing surface hands over. The surface commits to
// one convention: the alpha channel of Layers[0] encodes paint coverage over
// Background, pixel for pixel. Other layers are ignored.
type EditorValue struct {
	Background image.Image
	Layers     []image.Image
}

// MaskLayer returns layer 0, or nil when nothing was painted.
func (e EditorValue) MaskLayer() image.Image {
	if len(e.Layers) == 0 {
		return nil
	}
	return e.Layers[0]
}

// Outcome is the four-tuple handed to the presentation layer.
// On failure the images are nil, except Result on ErrEmptyPrompt,
// which carries the original image so something can still be shown.
type Outcome struct {
	DrawnMask   *image.Gray
	RefinedMask *image.Gray
	Result      image.Image
	Message     Message

	Provider string
	Points   []Point
	Err      error
}

// OK reports whether all three images were produced.
func (o Outcome) OK() bool { return o.Err == nil }

func failure(kind error, msg Message, cause error) Outcome {
	err := kind
	switch {
	case errors.Is(cause, kind):
		err = cause
	case cause != nil:
		err = fmt.Errorf("%w: %w", kind, cause)
	}
	return Outcome{Message: msg, Err: err}
}

// Pipeline turns a rough drawn mask into a refined mask and composites the
// replacement image through it. It holds no per-request state.
type Pipeline struct {
	provider Provider
}

func NewPipeline(provider Provider) *Pipeline {
	if provider == nil {
		provider = NewFallbackProvider(nil)
	}
	return &Pipeline{provider: provider}
}

// Provider is the variant selected at construction.
func (p *Pipeline) Provider() Provider { return p.provider }

// Run validates the inputs and executes extraction, refinement and compositing,
// stopping at the first failing stage. It never panics; every failure is
// reported through the returned Outcome.
func (p *Pipeline) Run(ctx context.Context, editor EditorValue, replacement image.Image) (out Outcome) {
	original := editor.Background
	if original == nil || replacement == nil {
		return failure(ErrMissingInput, errorf(textMissingInput), nil)
	}

	// stage is the failure kind a panic is reported under.
	stage := ErrProviderFailure
	defer func() {
		if r := recover(); r != nil {
			util.Logger.Error("segmentation panicked", zap.Any("panic", r), zap.NamedError("stage", stage))
			err := fmt.Errorf("%v", r)
			out = failure(stage, errorf("Segmentation error: %v", err), err)
		}
	}()

	start := time.Now()

	var drawn *image.Gray
	if layer := editor.MaskLayer(); layer != nil {
		drawn = AlphaMask(layer)
	}

	points, err := ExtractPoints(drawn)
	if err != nil {
		util.Logger.Error("failed to extract prompt points", zap.Error(err))
		return failure(ErrProviderFailure, errorf("Segmentation error: %v", err), err)
	}
	if len(points) == 0 {
		out = failure(ErrEmptyPrompt, errorf(textEmptyPrompt), nil)
		out.Result = original
		return out
	}
	util.Logger.Debug("prompt points extracted", zap.Int("count", len(points)))

	refined, msg, err := p.provider.Refine(ctx, original, points, drawn)
	if err != nil {
		util.Logger.Error("segmentation failed", zap.String("provider", p.provider.Name()), zap.Error(err))
		return failure(ErrProviderFailure, errorf("Segmentation error: %v", err), err)
	}

	stage = ErrCompositing
	result, err := Composite(original, replacement, refined)
	if err != nil {
		util.Logger.Error("compositing failed", zap.Error(err))
		return failure(ErrCompositing, errorf("Segmentation error: %v", err), err)
	}

	stats := MaskStats(refined)
	util.Logger.Info("segmentation completed",
		zap.String("provider", p.provider.Name()),
		zap.Int("points", len(points)),
		zap.Float64("coverage", stats.Coverage),
		zap.Duration("cost", time.Since(start)))

	return Outcome{
		DrawnMask:   drawn,
		RefinedMask: refined,
		Result:      result,
		Message:     msg,
		Provider:    p.provider.Name(),
		Points:      points,
	}
}
