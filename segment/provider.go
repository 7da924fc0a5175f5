package segment

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/chaos-io/maskswap/util"
	"go.uber.org/zap"
)

// Predictor is a promptable segmentation model: one prompt set in, one mask out.
type Predictor interface {
	Predict(ctx context.Context, img image.Image, points []Point) (Scores, error)
}

// Loader brings up a Predictor once at process start.
type Loader func(ctx context.Context) (Predictor, error)

// Provider refines a drawn mask into a segmentation mask of the original image.
type Provider interface {
	Refine(ctx context.Context, original image.Image, points []Point, drawn *image.Gray) (*image.Gray, Message, error)
	Name() string
}

const (
	ProviderModel    = "sam2"
	ProviderFallback = "fallback"
)

// SelectProvider runs load once and returns a ModelProvider when it succeeds,
// a FallbackProvider otherwise. The choice is fixed for the provider's lifetime.
func SelectProvider(ctx context.Context, load Loader) Provider {
	if load == nil {
		return NewFallbackProvider(errors.New("no model loader configured"))
	}

	predictor, err := load(ctx)
	if err == nil && predictor == nil {
		err = errors.New("model loader returned no predictor")
	}
	if err != nil {
		util.Logger.Warn("failed to load segmentation model, falling back to drawn masks", zap.Error(err))
		return NewFallbackProvider(err)
	}

	util.Logger.Info("segmentation model loaded")
	return NewModelProvider(predictor)
}

// ModelProvider asks a Predictor for the mask and normalises its output.
type ModelProvider struct {
	predictor Predictor
}

func NewModelProvider(p Predictor) *ModelProvider {
	return &ModelProvider{predictor: p}
}

func (p *ModelProvider) Name() string { return ProviderModel }

// Refine returns a strict 0/255 mask the size of original. Prediction and
// decoding errors are returned to the caller; this provider never falls back.
func (p *ModelProvider) Refine(ctx context.Context, original image.Image, points []Point, _ *image.Gray) (*image.Gray, Message, error) {
	if len(points) == 0 {
		return nil, Message{}, errors.New("no prompt points")
	}

	scores, err := p.predictor.Predict(ctx, original, points)
	if err != nil {
		return nil, Message{}, fmt.Errorf("predict: %w", err)
	}

	mask, err := Binarize(scores)
	if err != nil {
		return nil, Message{}, fmt.Errorf("decode model mask: %w", err)
	}

	size := original.Bounds().Size()
	if mask.Bounds().Size() != size {
		util.Logger.Warn("model mask size differs from image, resizing",
			zap.Int("mask_width", scores.Width),
			zap.Int("mask_height", scores.Height),
			zap.Int("width", size.X),
			zap.Int("height", size.Y))

		if mask, err = fitMask(mask, size); err != nil {
			return nil, Message{}, fmt.Errorf("resize model mask: %w", err)
		}
	}

	return mask, successf(textModelOK), nil
}

// FallbackProvider stands in when the model could not be loaded: the drawn
// mask is returned unchanged with a warning.
type FallbackProvider struct {
	reason error
}

func NewFallbackProvider(reason error) *FallbackProvider {
	return &FallbackProvider{reason: reason}
}

func (p *FallbackProvider) Name() string { return ProviderFallback }

// Reason is the error that made the model unavailable.
func (p *FallbackProvider) Reason() error { return p.reason }

func (p *FallbackProvider) Refine(_ context.Context, _ image.Image, _ []Point, drawn *image.Gray) (*image.Gray, Message, error) {
	return drawn, warningf(textModelMissing), nil
}
