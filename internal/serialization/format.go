package serialization

import (
	"time"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// Format constants.
const (
	MagicBytes        = "BORN"
	FormatVersionV1   = 1    // v1: magic, version, flags, header size; no checksum
	FormatVersionV2   = 2    // v2: 64-byte fixed header with SHA-256 checksum
	HeaderAlignment   = 64   // Tensor data starts on a 64-byte boundary
	FixedHeaderSizeV1 = 20   // magic + version + flags + header size
	FixedHeaderSizeV2 = 64   // v2 fixed header size (0x40 bytes)
	ChecksumSize      = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffsetV2  = 0x20 // Checksum offset in v2 fixed header
)

// FormatVersion is the version written by this package.
const FormatVersion = FormatVersionV2

// Data type string constants for serialization.
const (
	DTypeFloat32 = "float32"
	DTypeFloat64 = "float64"
)

// Flags for the .born format.
const (
	FlagHasMetadata uint32 = 1 << 2 // bit 2: custom metadata included
)

// Version is written into every header as the producing library version.
const Version = "0.3.0"

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion int               `json:"format_version"` // Version of the .born format
	BornVersion   string            `json:"born_version"`   // Version of the library that wrote the file
	ModelType     string            `json:"model_type"`     // Type of model (e.g., "ShuffleNetV2")
	CreatedAt     time.Time         `json:"created_at"`     // When the file was created
	Tensors       []TensorMeta      `json:"tensors"`        // Tensor metadata
	Metadata      map[string]string `json:"metadata"`       // Custom metadata
}

// TensorMeta describes a tensor in the .born file.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g., "stage_2.unit_1.0.weight")
	DType  string `json:"dtype"`  // Data type (e.g., "float32")
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Offset in the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// Tensor returns the metadata of the named tensor.
func (h *Header) Tensor(name string) (TensorMeta, bool) {
	for _, meta := range h.Tensors {
		if meta.Name == name {
			return meta, true
		}
	}
	return TensorMeta{}, false
}

// dtypeToString converts tensor.DataType to string representation.
func dtypeToString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return DTypeFloat32
	case tensor.Float64:
		return DTypeFloat64
	default:
		return "unknown"
	}
}

// stringToDtype converts string representation to tensor.DataType.
func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case DTypeFloat32:
		return tensor.Float32, true
	case DTypeFloat64:
		return tensor.Float64, true
	default:
		return 0, false
	}
}

// alignedDataOffset returns where tensor data starts after a header ending at pos.
func alignedDataOffset(pos int64) int64 {
	return pos + (HeaderAlignment-pos%HeaderAlignment)%HeaderAlignment
}
