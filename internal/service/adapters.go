package service

import (
	"context"
	"image"

	"github.com/rs/zerolog"

	"wastevision-service/internal/domain/waste"
	"wastevision-service/internal/inference"
)

type ImageClassifier interface {
	Classify(ctx context.Context, img image.Image) ([]float32, error)
}

type ObjectDetector interface {
	Detect(ctx context.Context, img image.Image, opts inference.DetectOptions) ([]inference.Object, error)
}

// Analysis is one model's contribution to an identify response.
type Analysis struct {
	Detections  []waste.Detection
	Percentages map[waste.Category]float64
	Total       int
}

func emptyAnalysis() Analysis {
	return Analysis{
		Detections:  []waste.Detection{},
		Percentages: map[waste.Category]float64{},
	}
}

// ClassifierAdapter turns a whole-image probability vector into a single
// detection. It never fails: errors are logged and produce an empty analysis.
type ClassifierAdapter struct {
	model ImageClassifier
	log   zerolog.Logger
}

func NewClassifierAdapter(model ImageClassifier, log zerolog.Logger) *ClassifierAdapter {
	return &ClassifierAdapter{model: model, log: log}
}

func (a *ClassifierAdapter) Classify(ctx context.Context, img image.Image) Analysis {
	probs, err := a.model.Classify(ctx, img)
	if err != nil {
		a.log.Error().Err(err).Msg("classification failed")
		return emptyAnalysis()
	}
	if len(probs) == 0 {
		a.log.Error().Msg("classifier returned no scores")
		return emptyAnalysis()
	}

	best := 0
	all := make(map[string]float64, len(probs))
	for i, p := range probs {
		all[waste.ClassName(i)] = float64(p)
		if p > probs[best] {
			best = i
		}
	}
	category := waste.ClassCategory(best)
	confidence := float64(probs[best])

	a.log.Info().
		Str("type", string(category)).
		Int("class", best).
		Float64("confidence", confidence).
		Msg("classification complete")

	return Analysis{
		Detections: []waste.Detection{{
			Item:             string(category),
			Type:             category,
			Confidence:       confidence,
			AllProbabilities: all,
		}},
		Percentages: map[waste.Category]float64{category: 100},
		Total:       1,
	}
}

// DetectorAdapter maps generic object labels onto waste categories.
type DetectorAdapter struct {
	model ObjectDetector
	log   zerolog.Logger
}

func NewDetectorAdapter(model ObjectDetector, log zerolog.Logger) *DetectorAdapter {
	return &DetectorAdapter{model: model, log: log}
}

func (a *DetectorAdapter) Detect(ctx context.Context, img image.Image, opts inference.DetectOptions) (Analysis, error) {
	objects, err := a.model.Detect(ctx, img, opts)
	if err != nil {
		return Analysis{}, err
	}
	if opts.MaxDetections > 0 && len(objects) > opts.MaxDetections {
		objects = objects[:opts.MaxDetections]
	}

	tally := waste.NewTally()
	detections := make([]waste.Detection, 0, len(objects))
	for _, obj := range objects {
		category := waste.LabelCategory(obj.Label)
		tally.Add(category)
		detections = append(detections, waste.Detection{
			Item:       obj.Label,
			Type:       category,
			Confidence: obj.Confidence,
			BoundingBox: &waste.BoundingBox{
				XMin: obj.Box.XMin,
				YMin: obj.Box.YMin,
				XMax: obj.Box.XMax,
				YMax: obj.Box.YMax,
			},
		})
		a.log.Debug().
			Str("item", obj.Label).
			Str("type", string(category)).
			Float64("confidence", obj.Confidence).
			Msg("detection")
	}

	return Analysis{
		Detections:  detections,
		Percentages: tally.Percentages(),
		Total:       tally.Total(),
	}, nil
}
