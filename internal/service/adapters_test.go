package service

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastevision-service/internal/domain/waste"
	"wastevision-service/internal/inference"
)

type fakeClassifier struct {
	probs []float32
	err   error
	calls int
}

func (f *fakeClassifier) Classify(ctx context.Context, img image.Image) ([]float32, error) {
	f.calls++
	return f.probs, f.err
}

type fakeDetector struct {
	objects  []inference.Object
	err      error
	lastOpts inference.DetectOptions
	lastSize image.Point
}

func (f *fakeDetector) Detect(ctx context.Context, img image.Image, opts inference.DetectOptions) ([]inference.Object, error) {
	f.lastOpts = opts
	f.lastSize = img.Bounds().Size()
	return f.objects, f.err
}

func object(label string, conf float64) inference.Object {
	return inference.Object{Label: label, Confidence: conf, Box: inference.Box{XMin: 1, YMin: 2, XMax: 30, YMax: 40}}
}

func TestClassifierAdapter_MapsEveryClassIndex(t *testing.T) {
	for idx, want := range waste.Classes() {
		probs := []float32{0.1, 0.1, 0.1, 0.1}
		probs[idx] = 0.7

		a := NewClassifierAdapter(&fakeClassifier{probs: probs}, zerolog.Nop())
		res := a.Classify(context.Background(), image.NewNRGBA(image.Rect(0, 0, 8, 8)))

		require.Len(t, res.Detections, 1)
		det := res.Detections[0]
		assert.Equal(t, want, det.Type)
		assert.Equal(t, string(want), det.Item)
		assert.InDelta(t, 0.7, det.Confidence, 1e-6)
		assert.Nil(t, det.BoundingBox)
		assert.Len(t, det.AllProbabilities, 4)
		assert.Equal(t, map[waste.Category]float64{want: 100}, res.Percentages)
		assert.Equal(t, 1, res.Total)
	}
}

func TestClassifierAdapter_OutOfTableIndex(t *testing.T) {
	a := NewClassifierAdapter(&fakeClassifier{probs: []float32{0.1, 0.1, 0.1, 0.1, 0.6}}, zerolog.Nop())
	res := a.Classify(context.Background(), image.NewNRGBA(image.Rect(0, 0, 8, 8)))

	require.Len(t, res.Detections, 1)
	assert.Equal(t, waste.Unknown, res.Detections[0].Type)
	assert.Contains(t, res.Detections[0].AllProbabilities, "class_4")
	assert.Contains(t, res.Detections[0].AllProbabilities, "hazardous")
}

func TestClassifierAdapter_FailureIsEmptyResult(t *testing.T) {
	for name, model := range map[string]*fakeClassifier{
		"error":  {err: errors.New("session closed")},
		"no out": {probs: []float32{}},
	} {
		res := NewClassifierAdapter(model, zerolog.Nop()).Classify(context.Background(), image.NewNRGBA(image.Rect(0, 0, 1, 1)))
		assert.Empty(t, res.Detections, name)
		assert.NotNil(t, res.Detections, name)
		assert.Empty(t, res.Percentages, name)
		assert.Zero(t, res.Total, name)
	}
}

func TestDetectorAdapter_MapsLabels(t *testing.T) {
	model := &fakeDetector{objects: []inference.Object{
		object("bottle", 0.9),
		object("banana", 0.8),
		object("laptop", 0.7),
		object("flux capacitor", 0.6),
		object("cup", 0.5),
		object("person", 0.4),
		object("apple", 0.35),
	}}
	a := NewDetectorAdapter(model, zerolog.Nop())
	opts := inference.DetectOptions{Confidence: 0.3, IoU: 0.45, MaxDetections: 100}

	res, err := a.Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 10, 10)), opts)
	require.NoError(t, err)
	assert.Equal(t, opts, model.lastOpts)

	require.Len(t, res.Detections, 7)
	for i, det := range res.Detections {
		assert.Equal(t, waste.LabelCategory(model.objects[i].Label), det.Type)
		assert.Equal(t, model.objects[i].Label, det.Item)
		require.NotNil(t, det.BoundingBox)
	}
	assert.Equal(t, waste.Unknown, res.Detections[3].Type)
	assert.Equal(t, &waste.BoundingBox{XMin: 1, YMin: 2, XMax: 30, YMax: 40}, res.Detections[0].BoundingBox)

	assert.Equal(t, 7, res.Total)
	var sum float64
	for _, p := range res.Percentages {
		sum += p
	}
	assert.InDelta(t, 100.0, sum, 0.1)
	assert.Equal(t, 28.57, res.Percentages[waste.Recyclable])
}

func TestDetectorAdapter_CapsDetections(t *testing.T) {
	model := &fakeDetector{objects: []inference.Object{object("cup", 0.9), object("cup", 0.8), object("cup", 0.7)}}
	res, err := NewDetectorAdapter(model, zerolog.Nop()).
		Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 1, 1)), inference.DetectOptions{MaxDetections: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, map[waste.Category]float64{waste.Recyclable: 100}, res.Percentages)
}

func TestDetectorAdapter_NoDetections(t *testing.T) {
	res, err := NewDetectorAdapter(&fakeDetector{}, zerolog.Nop()).
		Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 1, 1)), inference.DetectOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.NotNil(t, res.Detections)
	assert.NotNil(t, res.Percentages)
	assert.Empty(t, res.Percentages)
}

func TestDetectorAdapter_PropagatesError(t *testing.T) {
	_, err := NewDetectorAdapter(&fakeDetector{err: context.DeadlineExceeded}, zerolog.Nop()).
		Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 1, 1)), inference.DetectOptions{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDetectorAdapter_EveryTableLabel(t *testing.T) {
	labels := waste.Labels()
	model := &fakeDetector{}
	for _, l := range labels {
		model.objects = append(model.objects, object(l, 0.5))
	}

	res, err := NewDetectorAdapter(model, zerolog.Nop()).
		Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 1, 1)), inference.DetectOptions{})
	require.NoError(t, err)
	require.Len(t, res.Detections, len(labels))
	for i, det := range res.Detections {
		assert.Equal(t, waste.LabelCategory(labels[i]), det.Type, labels[i])
		assert.NotEqual(t, waste.Unknown, det.Type, labels[i])
	}
}
