package domain

import (
	"encoding/binary"
	"fmt"
	"math"
)

const float32Size = 4

// EncodeEmbedding serializes an embedding as native-endian IEEE-754 float32
// values with no header or length prefix.
func EncodeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*float32Size)
	for i, v := range embedding {
		binary.NativeEndian.PutUint32(buf[i*float32Size:], math.Float32bits(v))
	}
	return buf
}

// DecodeEmbedding is the inverse of EncodeEmbedding.
func DecodeEmbedding(data []byte) ([]float32, error) {
	if len(data)%float32Size != 0 {
		return nil, fmt.Errorf("decode embedding: length %d is not a multiple of %d", len(data), float32Size)
	}
	out := make([]float32, len(data)/float32Size)
	for i := range out {
		out[i] = math.Float32frombits(binary.NativeEndian.Uint32(data[i*float32Size:]))
	}
	return out, nil
}
