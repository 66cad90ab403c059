package inference

import (
	"fmt"
	"os"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"
)

// InitRuntime loads the ONNX Runtime shared library once per process.
// An empty path picks the platform default from ./third_party.
func InitRuntime(libraryPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath == "" {
		libraryPath = defaultLibraryPath()
	}
	if _, err := os.Stat(libraryPath); err != nil {
		return fmt.Errorf("onnxruntime library: %w", err)
	}
	ort.SetSharedLibraryPath(libraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("init onnxruntime: %w", err)
	}
	return nil
}

func ShutdownRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

func defaultLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.dylib"
		}
		return "./third_party/onnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}

// modelIO describes the single input and output of a model file.
type modelIO struct {
	inputName   string
	outputName  string
	inputShape  ort.Shape
	outputShape ort.Shape
}

func inspectModel(path string) (modelIO, error) {
	if _, err := os.Stat(path); err != nil {
		return modelIO{}, err
	}
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return modelIO{}, fmt.Errorf("io info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return modelIO{}, fmt.Errorf("unexpected io (in:%d out:%d)", len(inputs), len(outputs))
	}
	return modelIO{
		inputName:   inputs[0].Name,
		outputName:  outputs[0].Name,
		inputShape:  fixedShape(inputs[0].Dimensions),
		outputShape: fixedShape(outputs[0].Dimensions),
	}, nil
}

// fixedShape replaces dynamic dimensions (batch) with 1.
func fixedShape(dims ort.Shape) ort.Shape {
	out := make(ort.Shape, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		out[i] = d
	}
	return out
}
