package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"wastevision-service/internal/domain/waste"
	"wastevision-service/internal/inference"
	"wastevision-service/internal/preprocess"
	"wastevision-service/internal/render"
	"wastevision-service/internal/storage"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrDecode       = errors.New("cannot identify image file")
)

const (
	CustomModelFormat = "ONNX (converted Keras classifier)"
	CustomModelNote   = "Whole-image classification - assigns the entire image to one category"
)

type IdentifyOptions struct {
	Detect          inference.DetectOptions
	CustomModelPath string
}

type IdentifyService struct {
	artifacts  *storage.ArtifactStore
	enhancer   *preprocess.Enhancer
	classifier *ClassifierAdapter
	detector   *DetectorAdapter
	renderer   *render.Renderer
	opts       IdentifyOptions
	now        func() time.Time
	log        zerolog.Logger
}

// NewIdentifyService wires the identify pipeline. A nil enhancer disables
// preprocessing; a nil classifier reports the custom model as not loaded.
func NewIdentifyService(
	artifacts *storage.ArtifactStore,
	enhancer *preprocess.Enhancer,
	classifier *ClassifierAdapter,
	detector *DetectorAdapter,
	renderer *render.Renderer,
	opts IdentifyOptions,
	log zerolog.Logger,
) *IdentifyService {
	return &IdentifyService{
		artifacts:  artifacts,
		enhancer:   enhancer,
		classifier: classifier,
		detector:   detector,
		renderer:   renderer,
		opts:       opts,
		now:        time.Now,
		log:        log,
	}
}

func (s *IdentifyService) CustomModelLoaded() bool {
	return s.classifier != nil
}

func (s *IdentifyService) PreprocessingEnabled() bool {
	return s.enhancer != nil
}

func (s *IdentifyService) DetectOptions() inference.DetectOptions {
	return s.opts.Detect
}

func (s *IdentifyService) Identify(ctx context.Context, filename string, data []byte) (*waste.IdentifyResult, error) {
	saved, err := s.artifacts.Save(filename, data, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}
	s.log.Info().
		Str("file", filename).
		Str("saved_file", saved).
		Int("bytes", len(data)).
		Msg("upload saved")

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	s.log.Debug().
		Str("format", format).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("image decoded")

	if s.enhancer != nil {
		img = s.enhancer.Enhance(img)
	}

	result := &waste.IdentifyResult{
		SavedFile:            saved,
		PreprocessingApplied: s.enhancer != nil,
	}

	result.CustomModel, err = s.runCustom(ctx, img)
	if err != nil {
		return nil, err
	}

	result.DefaultModel, err = s.runDefault(ctx, img)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("saved_file", saved).
		Int("custom_detections", result.CustomModel.TotalDetections).
		Int("default_detections", result.DefaultModel.TotalDetections).
		Msg("identify completed")
	return result, nil
}

func (s *IdentifyService) runCustom(ctx context.Context, img image.Image) (waste.ModelResult, error) {
	if s.classifier == nil {
		return waste.ModelResult{
			Error:       "Model not loaded",
			Detections:  []waste.Detection{},
			Percentages: map[waste.Category]float64{},
			Solution:    fmt.Sprintf("Place your ONNX classifier at %s", s.opts.CustomModelPath),
		}, nil
	}

	analysis := s.classifier.Classify(ctx, img)
	uri, err := render.DataURI(s.renderer.Banner(img, analysis.Detections))
	if err != nil {
		return waste.ModelResult{}, fmt.Errorf("failed to render custom model image: %w", err)
	}
	return waste.ModelResult{
		Detections:      analysis.Detections,
		Percentages:     analysis.Percentages,
		TotalDetections: analysis.Total,
		Image:           uri,
		ModelFormat:     CustomModelFormat,
		Note:            CustomModelNote,
	}, nil
}

func (s *IdentifyService) runDefault(ctx context.Context, img image.Image) (waste.ModelResult, error) {
	analysis, err := s.detector.Detect(ctx, img, s.opts.Detect)
	if err != nil {
		s.log.Error().Err(err).Msg("object detection failed")
		return waste.ModelResult{}, fmt.Errorf("object detection failed: %w", err)
	}

	uri, err := render.DataURI(s.renderer.Boxes(img, analysis.Detections))
	if err != nil {
		return waste.ModelResult{}, fmt.Errorf("failed to render default model image: %w", err)
	}
	return waste.ModelResult{
		Detections:      analysis.Detections,
		Percentages:     analysis.Percentages,
		TotalDetections: analysis.Total,
		Image:           uri,
	}, nil
}
