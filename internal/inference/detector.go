package inference

import (
	"context"
	"fmt"
	"image"
	"sort"

	"github.com/rs/zerolog"
)

// DetectOptions are passed with every call so that concurrent requests never
// share threshold state.
type DetectOptions struct {
	Confidence    float64
	IoU           float64
	MaxDetections int
}

type Box struct {
	XMin, YMin, XMax, YMax float64
}

func (b Box) area() float64 {
	w, h := b.XMax-b.XMin, b.YMax-b.YMin
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Object is one detector candidate in original-image pixel coordinates.
type Object struct {
	ClassID    int
	Label      string
	Confidence float64
	Box        Box
}

type DetectorConfig struct {
	ModelPath string
	InputSize int
	PoolSize  int
	Labels    []string
}

// Detector runs a YOLO-family ONNX model. Confidence filtering, NMS and the
// detection cap happen here, mirroring what the model hub wrapper does.
type Detector struct {
	pool      *sessionPool
	io        modelIO
	inputSize int
	labels    []string
	log       zerolog.Logger
}

func NewDetector(cfg DetectorConfig, log zerolog.Logger) (*Detector, error) {
	io, err := inspectModel(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("detector model %s: %w", cfg.ModelPath, err)
	}
	if len(io.inputShape) != 4 {
		return nil, fmt.Errorf("detector expects 4D input, got %v", io.inputShape)
	}
	if len(io.outputShape) != 3 {
		return nil, fmt.Errorf("detector expects 3D output, got %v", io.outputShape)
	}

	size := cfg.InputSize
	if h := int(io.inputShape[2]); h > 0 {
		size = h
	}
	if size <= 0 {
		size = 640
	}
	labels := cfg.Labels
	if len(labels) == 0 {
		labels = cocoLabels
	}

	pool, err := newSessionPool(cfg.ModelPath, io, cfg.PoolSize)
	if err != nil {
		return nil, err
	}
	d := &Detector{pool: pool, io: io, inputSize: size, labels: labels, log: log}
	if err := pool.warmUp(context.Background(), io.inputShape.FlattenedSize()); err != nil {
		pool.close()
		return nil, fmt.Errorf("detector warm-up: %w", err)
	}

	log.Info().
		Str("model", cfg.ModelPath).
		Int("input_size", size).
		Int("pool_size", len(pool.all)).
		Msg("detector loaded")
	return d, nil
}

func (d *Detector) Detect(ctx context.Context, img image.Image, opts DetectOptions) ([]Object, error) {
	padded, lb := letterboxImage(img, d.inputSize)
	input := packPixels(padded, d.inputSize, d.inputSize, layoutNCHW)

	output, err := d.pool.infer(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("detector inference: %w", err)
	}

	candidates := decodeOutput(output, d.io.outputShape, d.labels, opts.Confidence)
	for i := range candidates {
		candidates[i].Box = lb.project(candidates[i].Box)
	}
	objects := nonMaxSuppression(candidates, opts.IoU, opts.MaxDetections)

	d.log.Debug().
		Int("candidates", len(candidates)).
		Int("detections", len(objects)).
		Msg("detector finished")
	return objects, nil
}

func (d *Detector) Close() {
	d.pool.close()
}

// decodeOutput turns raw YOLO output into candidates above minConf, with
// boxes in model input pixels. Two layouts are understood:
//   - [1, N, 5+C]: cx, cy, w, h, objectness, class scores (YOLOv5)
//   - [1, 4+C, N]: cx, cy, w, h, class scores (YOLOv8 and later)
func decodeOutput(out []float32, shape []int64, labels []string, minConf float64) []Object {
	if len(shape) != 3 {
		return nil
	}
	rows, cols := int(shape[1]), int(shape[2])
	if rows*cols > len(out) {
		return nil
	}

	var transposed bool
	switch {
	case cols == 5+len(labels):
	case rows == 4+len(labels):
		transposed = true
	default:
		transposed = rows < cols
	}
	var n, attrs, classOffset int
	if transposed {
		n, attrs, classOffset = cols, rows, 4
	} else {
		n, attrs, classOffset = rows, cols, 5
	}
	numClasses := attrs - classOffset
	if numClasses <= 0 {
		return nil
	}

	at := func(i, j int) float64 {
		if transposed {
			return float64(out[j*n+i])
		}
		return float64(out[i*attrs+j])
	}

	var objects []Object
	for i := 0; i < n; i++ {
		objectness := 1.0
		if !transposed {
			objectness = at(i, 4)
			if objectness < minConf {
				continue
			}
		}

		classID, best := 0, 0.0
		for c := 0; c < numClasses; c++ {
			if s := at(i, classOffset+c); s > best {
				best, classID = s, c
			}
		}
		conf := objectness * best
		if conf < minConf {
			continue
		}

		cx, cy, w, h := at(i, 0), at(i, 1), at(i, 2), at(i, 3)
		objects = append(objects, Object{
			ClassID:    classID,
			Label:      labelFor(labels, classID),
			Confidence: conf,
			Box:        Box{XMin: cx - w/2, YMin: cy - h/2, XMax: cx + w/2, YMax: cy + h/2},
		})
	}
	return objects
}

func labelFor(labels []string, id int) string {
	if id >= 0 && id < len(labels) {
		return labels[id]
	}
	return fmt.Sprintf("class_%d", id)
}

// nonMaxSuppression keeps the highest-confidence box of every overlapping
// same-class group and caps the result at maxDet (0 means no cap).
func nonMaxSuppression(objects []Object, iouThreshold float64, maxDet int) []Object {
	sorted := make([]Object, len(objects))
	copy(sorted, objects)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	suppressed := make([]bool, len(sorted))
	kept := make([]Object, 0, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		if maxDet > 0 && len(kept) >= maxDet {
			break
		}
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] || sorted[j].ClassID != sorted[i].ClassID {
				continue
			}
			if iou(sorted[i].Box, sorted[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

func iou(a, b Box) float64 {
	inter := Box{
		XMin: max(a.XMin, b.XMin),
		YMin: max(a.YMin, b.YMin),
		XMax: min(a.XMax, b.XMax),
		YMax: min(a.YMax, b.YMax),
	}.area()
	union := a.area() + b.area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
