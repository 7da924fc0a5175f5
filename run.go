package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/chaos-io/maskswap/segment"
	"github.com/chaos-io/maskswap/util"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	drawnMaskFile   = "drawn_mask.png"
	refinedMaskFile = "refined_mask.png"
	resultFile      = "result.png"
	metaFile        = "meta.yaml"
)

// runMeta is the sidecar written next to the images of one run.
type runMeta struct {
	ID        string          `yaml:"id"`
	Provider  string          `yaml:"provider"`
	Success   bool            `yaml:"success"`
	Message   segment.Message `yaml:"message"`
	Error     string          `yaml:"error,omitempty"`
	Inputs    runInputs       `yaml:"inputs"`
	Points    []segment.Point `yaml:"points,omitempty"`
	BBox      []int           `yaml:"bbox,omitempty"`
	Coverage  float64         `yaml:"coverage"`
	Files     []string        `yaml:"files"`
	CreatedAt time.Time       `yaml:"created_at"`
}

type runInputs struct {
	Original    string `yaml:"original"`
	Mask        string `yaml:"mask,omitempty"`
	Replacement string `yaml:"replacement"`
}

var errRunFailed = errors.New("segmentation failed")

func runCmd(args []string) error {
	fs, configPath := newFlagSet("run")
	var in runInputs
	fs.StringVar(&in.Original, "original", "", "original image path or URL")
	fs.StringVar(&in.Mask, "mask", "", "drawn mask layer (transparent PNG or grayscale mask)")
	fs.StringVar(&in.Replacement, "replacement", "", "replacement image path or URL")
	outDir := fs.String("out", "", "output directory (defaults to output.dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := setup(*configPath)
	if err != nil {
		return err
	}
	if *outDir == "" {
		*outDir = cfg.Output.Dir
	}

	editor, replacement, err := loadInputs(in)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pipeline := newPipeline(ctx, cfg)

	done := util.Trace("run")
	out := pipeline.Run(ctx, editor, replacement)
	done()

	fmt.Println(out.Message.Markdown())

	dir := filepath.Join(*outDir, ksuid.New().String())
	if err := writeOutcome(dir, in, out); err != nil {
		return err
	}
	util.Logger.Info("outputs written", zap.String("dir", dir))

	if !out.OK() {
		return fmt.Errorf("%w: %w", errRunFailed, out.Err)
	}
	return nil
}

// loadInputs loads whatever inputs were given. Missing ones stay nil and
// are reported by the pipeline.
func loadInputs(in runInputs) (segment.EditorValue, image.Image, error) {
	var editor segment.EditorValue
	load := func(location string) (image.Image, error) {
		if location == "" {
			return nil, nil
		}
		img, err := util.LoadImage(location)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", location, err)
		}
		return img, nil
	}

	var err error
	if editor.Background, err = load(in.Original); err != nil {
		return editor, nil, err
	}
	mask, err := load(in.Mask)
	if err != nil {
		return editor, nil, err
	}
	if layer := segment.CoverageLayer(mask); layer != nil {
		editor.Layers = []image.Image{layer}
	}
	replacement, err := load(in.Replacement)
	if err != nil {
		return editor, nil, err
	}
	return editor, replacement, nil
}

func writeOutcome(dir string, in runInputs, out segment.Outcome) error {
	meta := runMeta{
		ID:        filepath.Base(dir),
		Provider:  out.Provider,
		Success:   out.OK(),
		Message:   out.Message,
		Inputs:    in,
		Points:    out.Points,
		CreatedAt: time.Now(),
	}
	if out.Err != nil {
		meta.Error = out.Err.Error()
	}
	if out.RefinedMask != nil {
		stats := segment.MaskStats(out.RefinedMask)
		meta.BBox = []int{stats.BBox.Min.X, stats.BBox.Min.Y, stats.BBox.Dx(), stats.BBox.Dy()}
		meta.Coverage = stats.Coverage
	}

	images := []struct {
		name string
		img  image.Image
	}{
		{drawnMaskFile, grayOrNil(out.DrawnMask)},
		{refinedMaskFile, grayOrNil(out.RefinedMask)},
		{resultFile, out.Result},
	}
	for _, it := range images {
		if it.img == nil {
			continue
		}
		if err := util.SavePNG(filepath.Join(dir, it.name), it.img); err != nil {
			return fmt.Errorf("failed to save %s: %w", it.name, err)
		}
		meta.Files = append(meta.Files, it.name)
	}

	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, metaFile), data, 0o644)
}

// grayOrNil keeps a nil *image.Gray from turning into a non-nil image.Image.
func grayOrNil(m *image.Gray) image.Image {
	if m == nil {
		return nil
	}
	return m
}
