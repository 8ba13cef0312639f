package tfserving

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider"
)

// Embedder implements provider.Embedder against a model server.
type Embedder struct {
	client    *Client
	signature string

	mu   sync.Mutex
	info *provider.ModelInfo
}

func NewEmbedder(config Config) *Embedder {
	if config.Signature == "" {
		config.Signature = DefaultConfig().Signature
	}
	return &Embedder{
		client:    NewClient(config),
		signature: config.Signature,
	}
}

// ModelInfo reads the serving signature once and caches it.
func (e *Embedder) ModelInfo(ctx context.Context) (provider.ModelInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.info != nil {
		return *e.info, nil
	}

	meta, err := e.client.Metadata(ctx)
	if err != nil {
		return provider.ModelInfo{}, fmt.Errorf("model metadata: %w", err)
	}

	sig, ok := meta.Metadata.SignatureDef.SignatureDef[e.signature]
	if !ok {
		return provider.ModelInfo{}, fmt.Errorf("%w: %q", ErrSignatureNotFound, e.signature)
	}
	in, ok := firstTensor(sig.Inputs)
	if !ok {
		return provider.ModelInfo{}, fmt.Errorf("%w: signature %q has no inputs", ErrInvalidResponse, e.signature)
	}
	out, ok := firstTensor(sig.Outputs)
	if !ok {
		return provider.ModelInfo{}, fmt.Errorf("%w: signature %q has no outputs", ErrInvalidResponse, e.signature)
	}

	inShape, err := shape(in.TensorShape)
	if err != nil {
		return provider.ModelInfo{}, err
	}
	outShape, err := shape(out.TensorShape)
	if err != nil {
		return provider.ModelInfo{}, err
	}

	info := provider.ModelInfo{
		InputShape:  inShape,
		InputType:   elementType(in.DType),
		OutputShape: outShape,
	}
	e.info = &info
	return info, nil
}

// Embed sends one instance shaped like the model input (without the batch dimension).
func (e *Embedder) Embed(ctx context.Context, tensor []float32) ([]float32, error) {
	if len(tensor) == 0 {
		return nil, domain.ErrInference.WithError(fmt.Errorf("empty tensor"))
	}

	info, err := e.ModelInfo(ctx)
	if err != nil {
		return nil, domain.ErrInference.WithError(err)
	}

	dims := make([]int, 0, len(info.InputShape))
	size := 1
	for _, d := range info.InputShape[min(1, len(info.InputShape)):] {
		dims = append(dims, int(d))
		size *= int(d)
	}
	if size != len(tensor) {
		return nil, domain.ErrInference.WithError(fmt.Errorf("tensor has %d values, model expects %v", len(tensor), dims))
	}

	resp, err := e.client.Predict(ctx, []any{reshape(tensor, dims)})
	if err != nil {
		return nil, domain.ErrInference.WithError(err)
	}
	if len(resp.Predictions) == 0 || len(resp.Predictions[0]) == 0 {
		return nil, domain.ErrInference.WithError(ErrEmptyPrediction)
	}

	return resp.Predictions[0], nil
}

func (e *Embedder) Close() error {
	e.client.httpClient.CloseIdleConnections()
	return nil
}

// firstTensor picks the alphabetically first tensor so multi-input
// signatures resolve deterministically.
func firstTensor(tensors map[string]TensorInfo) (TensorInfo, bool) {
	if len(tensors) == 0 {
		return TensorInfo{}, false
	}
	keys := make([]string, 0, len(tensors))
	for k := range tensors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return tensors[keys[0]], true
}

func shape(ts TensorShape) ([]int64, error) {
	if ts.UnknownRank {
		return nil, fmt.Errorf("%w: tensor has unknown rank", ErrInvalidResponse)
	}
	out := make([]int64, len(ts.Dim))
	for i, d := range ts.Dim {
		v, err := d.Size.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: dim %d: %v", ErrInvalidResponse, i, err)
		}
		out[i] = v
	}
	return out, nil
}

func elementType(dtype string) provider.ElementType {
	switch dtype {
	case "DT_FLOAT":
		return provider.ElementFloat32
	case "DT_HALF":
		return provider.ElementFloat16
	case "DT_UINT8":
		return provider.ElementUint8
	case "DT_INT8":
		return provider.ElementInt8
	default:
		return provider.ElementUnknown
	}
}

// reshape nests a flat row-major buffer into dims for the JSON row format.
func reshape(data []float32, dims []int) any {
	if len(dims) <= 1 {
		return data
	}
	n := dims[0]
	step := len(data) / n
	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = reshape(data[i*step:(i+1)*step], dims[1:])
	}
	return out
}

var _ provider.Embedder = (*Embedder)(nil)
