package inference

import (
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog"
)

type ClassifierConfig struct {
	ModelPath string
	InputSize int
	PoolSize  int
}

// Classifier runs a whole-image ONNX classifier exported from Keras, so its
// input is NHWC with pixels in [0,1] and its output is one probability per class.
type Classifier struct {
	pool   *sessionPool
	io     modelIO
	width  int
	height int
	layout layout
	log    zerolog.Logger
}

func NewClassifier(cfg ClassifierConfig, log zerolog.Logger) (*Classifier, error) {
	io, err := inspectModel(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("classifier model %s: %w", cfg.ModelPath, err)
	}
	if len(io.inputShape) != 4 {
		return nil, fmt.Errorf("classifier expects 4D input, got %v", io.inputShape)
	}

	c := &Classifier{io: io, layout: layoutNHWC, log: log}
	c.height, c.width = int(io.inputShape[1]), int(io.inputShape[2])
	// Channels-first exports have 3 in position 1.
	if io.inputShape[1] == 3 && io.inputShape[3] != 3 {
		c.layout = layoutNCHW
		c.height, c.width = int(io.inputShape[2]), int(io.inputShape[3])
	}
	if c.height <= 1 || c.width <= 1 {
		c.height, c.width = cfg.InputSize, cfg.InputSize
	}

	pool, err := newSessionPool(cfg.ModelPath, io, cfg.PoolSize)
	if err != nil {
		return nil, err
	}
	c.pool = pool

	log.Info().
		Str("model", cfg.ModelPath).
		Int("width", c.width).
		Int("height", c.height).
		Int("pool_size", len(pool.all)).
		Msg("classifier loaded")
	return c, nil
}

// Classify returns the model's probability vector for img.
func (c *Classifier) Classify(ctx context.Context, img image.Image) ([]float32, error) {
	input := packImage(img, c.width, c.height, c.layout)
	out, err := c.pool.infer(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("classifier inference: %w", err)
	}
	return out, nil
}

func (c *Classifier) Close() {
	c.pool.close()
}
