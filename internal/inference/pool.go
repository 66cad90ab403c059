package inference

import (
	"context"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// session owns a model session bound to fixed input and output tensors, so a
// single session must never run two inferences at once.
type session struct {
	run    *ort.AdvancedSession
	input  *ort.Tensor[float32]
	output *ort.Tensor[float32]
}

func (s *session) infer(input []float32) ([]float32, error) {
	copy(s.input.GetData(), input)
	if err := s.run.Run(); err != nil {
		return nil, err
	}
	out := s.output.GetData()
	res := make([]float32, len(out))
	copy(res, out)
	return res, nil
}

func (s *session) destroy() {
	if s.run != nil {
		_ = s.run.Destroy()
	}
	if s.input != nil {
		_ = s.input.Destroy()
	}
	if s.output != nil {
		_ = s.output.Destroy()
	}
}

// sessionPool hands out sessions to concurrent requests. Callers wait for a
// free session instead of serializing on one global lock.
type sessionPool struct {
	sessions chan *session
	all      []*session
}

func newSessionPool(path string, io modelIO, size int) (*sessionPool, error) {
	if size < 1 {
		size = 1
	}
	p := &sessionPool{sessions: make(chan *session, size)}
	for i := 0; i < size; i++ {
		s, err := newSession(path, io)
		if err != nil {
			p.close()
			return nil, fmt.Errorf("create session %d: %w", i, err)
		}
		p.all = append(p.all, s)
		p.sessions <- s
	}
	return p, nil
}

func newSession(path string, io modelIO) (*session, error) {
	input, err := ort.NewTensor(io.inputShape, make([]float32, io.inputShape.FlattenedSize()))
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](io.outputShape)
	if err != nil {
		_ = input.Destroy()
		return nil, fmt.Errorf("output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer options.Destroy()
	_ = options.SetIntraOpNumThreads(1)
	_ = options.SetInterOpNumThreads(1)

	run, err := ort.NewAdvancedSession(path,
		[]string{io.inputName},
		[]string{io.outputName},
		[]ort.Value{input},
		[]ort.Value{output},
		options,
	)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, fmt.Errorf("session: %w", err)
	}
	return &session{run: run, input: input, output: output}, nil
}

func (p *sessionPool) infer(ctx context.Context, input []float32) ([]float32, error) {
	var s *session
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case s = <-p.sessions:
	}
	defer func() { p.sessions <- s }()
	return s.infer(input)
}

// warmUp pushes one zero-filled inference through the pool per session.
func (p *sessionPool) warmUp(ctx context.Context, inputSize int64) error {
	zeros := make([]float32, inputSize)
	for range p.all {
		if _, err := p.infer(ctx, zeros); err != nil {
			return err
		}
	}
	return nil
}

func (p *sessionPool) close() {
	for _, s := range p.all {
		s.destroy()
	}
	p.all = nil
}
