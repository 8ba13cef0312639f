package onnx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider"
)

// Config selects the model and the onnxruntime shared library.
type Config struct {
	ModelPath string
	// LibraryPath overrides the onnxruntime shared library location
	LibraryPath string
	NumThreads  int
}

var (
	ErrModelNotFound = errors.New("onnx model not found")
	ErrNotFloatInput = errors.New("onnx model input is not float32")

	envMu sync.Mutex
)

// Embedder runs an embedding model in-process with ONNX Runtime. One session
// is shared, so Embed calls are serialized.
type Embedder struct {
	info provider.ModelInfo

	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func NewEmbedder(cfg Config) (*Embedder, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelNotFound, cfg.ModelPath, err)
	}
	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("read model io info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("unexpected model io (in:%d out:%d)", len(inputs), len(outputs))
	}
	in, out := inputs[0], outputs[0]

	e := &Embedder{
		info: provider.ModelInfo{
			InputShape:  []int64(in.Dimensions),
			InputType:   elementType(in.DataType),
			OutputShape: []int64(out.Dimensions),
		},
	}

	// A non-float input is reported through ModelInfo so session
	// initialization fails with a model shape error instead of here.
	if e.info.InputType != provider.ElementFloat32 {
		return e, nil
	}

	if err := e.createSession(cfg, in, out); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Embedder) createSession(cfg Config, in, out ort.InputOutputInfo) error {
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(fixedShape(in.Dimensions)...))
	if err != nil {
		return fmt.Errorf("create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(fixedShape(out.Dimensions)...))
	if err != nil {
		_ = input.Destroy()
		return fmt.Errorf("create output tensor: %w", err)
	}

	var opts *ort.SessionOptions
	if cfg.NumThreads > 0 {
		opts, err = ort.NewSessionOptions()
		if err != nil {
			_ = input.Destroy()
			_ = output.Destroy()
			return fmt.Errorf("session options: %w", err)
		}
		defer func() { _ = opts.Destroy() }()
		_ = opts.SetIntraOpNumThreads(cfg.NumThreads)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{in.Name},
		[]string{out.Name},
		[]ort.Value{input},
		[]ort.Value{output},
		opts,
	)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return fmt.Errorf("create embedder session: %w", err)
	}

	e.session, e.input, e.output = session, input, output
	return nil
}

func (e *Embedder) ModelInfo(_ context.Context) (provider.ModelInfo, error) {
	return e.info, nil
}

func (e *Embedder) Embed(ctx context.Context, tensor []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.ErrInference.WithError(err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, domain.ErrInference.WithError(fmt.Errorf("no active session"))
	}

	inputData := e.input.GetData()
	if len(tensor) != len(inputData) {
		return nil, domain.ErrInference.WithError(
			fmt.Errorf("tensor has %d values, model expects %d", len(tensor), len(inputData)))
	}
	copy(inputData, tensor)

	if err := e.session.Run(); err != nil {
		return nil, domain.ErrInference.WithError(fmt.Errorf("run embedding: %w", err))
	}

	outputData := e.output.GetData()
	embedding := make([]float32, len(outputData))
	copy(embedding, outputData)
	return embedding, nil
}

func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	if e.session != nil {
		errs = append(errs, e.session.Destroy())
		e.session = nil
	}
	if e.input != nil {
		errs = append(errs, e.input.Destroy())
		e.input = nil
	}
	if e.output != nil {
		errs = append(errs, e.output.Destroy())
		e.output = nil
	}
	return errors.Join(errs...)
}

func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("init onnxruntime: %w", err)
	}
	return nil
}

// fixedShape pins dynamic dimensions (batch) to 1.
func fixedShape(dims ort.Shape) []int64 {
	out := make([]int64, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		out[i] = d
	}
	return out
}

func elementType(t ort.TensorElementDataType) provider.ElementType {
	switch t {
	case ort.TensorElementDataTypeFloat:
		return provider.ElementFloat32
	case ort.TensorElementDataTypeFloat16:
		return provider.ElementFloat16
	case ort.TensorElementDataTypeUint8:
		return provider.ElementUint8
	case ort.TensorElementDataTypeInt8:
		return provider.ElementInt8
	default:
		return provider.ElementUnknown
	}
}

var _ provider.Embedder = (*Embedder)(nil)
