package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// SafeTensors format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header, space padded to 8 bytes]
// [tensor data: raw bytes]

// SafeTensorsDType represents a SafeTensors data type.
type SafeTensorsDType string

// SafeTensors dtypes. Only F32 and F64 can be loaded.
const (
	SafeTensorsF16  SafeTensorsDType = "F16"
	SafeTensorsBF16 SafeTensorsDType = "BF16"
	SafeTensorsF32  SafeTensorsDType = "F32"
	SafeTensorsF64  SafeTensorsDType = "F64"
)

// MetadataModelType is the SafeTensors metadata key holding the model type.
const MetadataModelType = "model_type"

const safeTensorsMetadataKey = "__metadata__"

// ErrSafeTensors is returned for malformed SafeTensors files.
var ErrSafeTensors = errors.New("invalid safetensors file")

// SafeTensorInfo describes a tensor in SafeTensors format.
type SafeTensorInfo struct {
	DType       SafeTensorsDType `json:"dtype"`
	Shape       []int            `json:"shape"`
	DataOffsets [2]int64         `json:"data_offsets"` // [start, end)
}

// SafeTensorsHeader is the JSON header in SafeTensors format.
type SafeTensorsHeader struct {
	Metadata map[string]string
	Tensors  map[string]SafeTensorInfo
}

// UnmarshalJSON splits the flat header object into metadata and tensors.
func (h *SafeTensorsHeader) UnmarshalJSON(data []byte) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return err
	}

	if metadataRaw, ok := rawMap[safeTensorsMetadataKey]; ok {
		if err := json.Unmarshal(metadataRaw, &h.Metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	h.Tensors = make(map[string]SafeTensorInfo, len(rawMap))
	for key, value := range rawMap {
		if key == safeTensorsMetadataKey {
			continue
		}
		var info SafeTensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		h.Tensors[key] = info
	}
	return nil
}

// MarshalJSON writes metadata and tensors as one flat object.
func (h SafeTensorsHeader) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(h.Tensors)+1)
	if len(h.Metadata) > 0 {
		flat[safeTensorsMetadataKey] = h.Metadata
	}
	for name, info := range h.Tensors {
		flat[name] = info
	}
	return json.Marshal(flat)
}

// metas converts the tensor table to TensorMeta for offset validation.
func (h *SafeTensorsHeader) metas() []TensorMeta {
	metas := make([]TensorMeta, 0, len(h.Tensors))
	for name, info := range h.Tensors {
		metas = append(metas, TensorMeta{
			Name:   name,
			DType:  string(info.DType),
			Shape:  info.Shape,
			Offset: info.DataOffsets[0],
			Size:   info.DataOffsets[1] - info.DataOffsets[0],
		})
	}
	return metas
}

// SafeTensorsReader reads SafeTensors format files.
type SafeTensorsReader struct {
	file       *os.File
	header     SafeTensorsHeader
	dataOffset int64 // Offset where tensor data starts
}

// NewSafeTensorsReader opens path and validates the header against the file size.
func NewSafeTensorsReader(path string) (*SafeTensorsReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r, err := newSafeTensorsReader(file)
	if err != nil {
		_ = file.Close() // Best effort close on error
		return nil, err
	}
	return r, nil
}

func newSafeTensorsReader(file *os.File) (*SafeTensorsReader, error) {
	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var header SafeTensorsHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("%w: header JSON: %v", ErrSafeTensors, err)
	}

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	dataOffset := int64(8 + headerSize) //nolint:gosec // G115: bounded by MaxHeaderSize
	if err := ValidateTensorOffsets(header.metas(), info.Size()-dataOffset); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSafeTensors, err)
	}

	return &SafeTensorsReader{file: file, header: header, dataOffset: dataOffset}, nil
}

// Close closes the SafeTensors file.
func (r *SafeTensorsReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Metadata returns the metadata map from the header.
func (r *SafeTensorsReader) Metadata() map[string]string {
	return r.header.Metadata
}

// TensorNames returns the names of all tensors in name order.
func (r *SafeTensorsReader) TensorNames() []string {
	names := make([]string, 0, len(r.header.Tensors))
	for name := range r.header.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TensorInfo returns information about a specific tensor.
func (r *SafeTensorsReader) TensorInfo(name string) (SafeTensorInfo, error) {
	info, ok := r.header.Tensors[name]
	if !ok {
		return SafeTensorInfo{}, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	return info, nil
}

// LoadTensor loads a F32 or F64 tensor.
func (r *SafeTensorsReader) LoadTensor(name string) (*tensor.RawTensor, error) {
	if r.file == nil {
		return nil, fmt.Errorf("reader is closed")
	}
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	var dtype string
	switch info.DType {
	case SafeTensorsF32:
		dtype = DTypeFloat32
	case SafeTensorsF64:
		dtype = DTypeFloat64
	default:
		return nil, fmt.Errorf("%w: tensor %s has dtype %s", ErrInvalidDType, name, info.DType)
	}

	size := info.DataOffsets[1] - info.DataOffsets[0]
	data := make([]byte, size)
	if _, err := r.file.ReadAt(data, r.dataOffset+info.DataOffsets[0]); err != nil {
		return nil, fmt.Errorf("failed to read tensor %s: %w", name, err)
	}
	return tensorFromBytes(TensorMeta{Name: name, DType: dtype, Shape: info.Shape, Size: size}, data)
}

// ReadStateDict reads all tensors into a state dictionary.
func (r *SafeTensorsReader) ReadStateDict() (map[string]*tensor.RawTensor, error) {
	stateDict := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for _, name := range r.TensorNames() {
		raw, err := r.LoadTensor(name)
		if err != nil {
			return nil, err
		}
		stateDict[name] = raw
	}
	return stateDict, nil
}

// WriteSafeTensors encodes stateDict to w in SafeTensors format. Tensors are
// laid out in name order.
func WriteSafeTensors(w io.Writer, stateDict map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := SafeTensorsHeader{Metadata: metadata, Tensors: make(map[string]SafeTensorInfo, len(names))}
	var offset int64
	for _, name := range names {
		raw := stateDict[name]
		dtype := SafeTensorsF32
		if raw.DType() == tensor.Float64 {
			dtype = SafeTensorsF64
		}
		size := int64(raw.ByteSize())
		header.Tensors[name] = SafeTensorInfo{
			DType:       dtype,
			Shape:       []int(raw.Shape().Clone()),
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if pad := (8 - len(headerJSON)%8) % 8; pad > 0 {
		headerJSON = append(headerJSON, bytes.Repeat([]byte{' '}, pad)...)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, name := range names {
		if _, err := w.Write(stateDict[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}
	return nil
}

// SaveSafeTensors writes stateDict to path in SafeTensors format.
func SaveSafeTensors(path string, stateDict map[string]*tensor.RawTensor, metadata map[string]string) (err error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()
	return WriteSafeTensors(file, stateDict, metadata)
}

// LoadSafeTensors reads every tensor and the metadata of a SafeTensors file.
func LoadSafeTensors(path string) (map[string]*tensor.RawTensor, map[string]string, error) {
	r, err := NewSafeTensorsReader(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = r.Close() }()

	stateDict, err := r.ReadStateDict()
	if err != nil {
		return nil, nil, err
	}
	return stateDict, r.Metadata(), nil
}
