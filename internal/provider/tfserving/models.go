package tfserving

import "encoding/json"

// MetadataResponse from GET /v1/models/{name}/metadata
type MetadataResponse struct {
	ModelSpec struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"model_spec"`
	Metadata struct {
		SignatureDef struct {
			SignatureDef map[string]SignatureDef `json:"signature_def"`
		} `json:"signature_def"`
	} `json:"metadata"`
}

type SignatureDef struct {
	Inputs     map[string]TensorInfo `json:"inputs"`
	Outputs    map[string]TensorInfo `json:"outputs"`
	MethodName string                `json:"method_name"`
}

type TensorInfo struct {
	DType       string      `json:"dtype"` // "DT_FLOAT", "DT_UINT8", ...
	TensorShape TensorShape `json:"tensor_shape"`
	Name        string      `json:"name"`
}

type TensorShape struct {
	Dim []Dim `json:"dim"`
	// UnknownRank is set for fully dynamic shapes
	UnknownRank bool `json:"unknown_rank"`
}

// Dim sizes arrive as JSON strings ("-1", "160").
type Dim struct {
	Size json.Number `json:"size"`
	Name string      `json:"name"`
}

// PredictRequest for POST /v1/models/{name}:predict
type PredictRequest struct {
	SignatureName string `json:"signature_name,omitempty"`
	Instances     []any  `json:"instances"`
}

// PredictResponse from POST /v1/models/{name}:predict
type PredictResponse struct {
	Predictions [][]float32 `json:"predictions"`
}
