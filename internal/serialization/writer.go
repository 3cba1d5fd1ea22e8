package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// BornWriter writes models in .born format.
type BornWriter struct {
	file   *os.File
	closed bool
}

// NewBornWriter creates a new .born file writer.
func NewBornWriter(path string) (*BornWriter, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &BornWriter{file: file}, nil
}

// WriteStateDict writes a state dictionary to the .born file.
func (w *BornWriter) WriteStateDict(stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	return WriteTo(w.file, stateDict, modelType, metadata)
}

// Close closes the writer and the underlying file.
func (w *BornWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// SaveFile writes stateDict to path in .born format.
func SaveFile(path string, stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) (err error) {
	w, err := NewBornWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()
	return w.WriteStateDict(stateDict, modelType, metadata)
}

// WriteTo encodes a state dictionary to w using format v2.
func WriteTo(w io.Writer, stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	header := Header{
		FormatVersion: FormatVersionV2,
		BornVersion:   Version,
		ModelType:     modelType,
		CreatedAt:     time.Now().UTC(),
		Metadata:      metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}
	return encode(w, stateDict, header)
}

// encode writes the fixed header, JSON header, padding and tensor data.
func encode(w io.Writer, stateDict map[string]*tensor.RawTensor, header Header) error {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	// Lay tensors out back to back in name order.
	var offset int64
	header.Tensors = make([]TensorMeta, 0, len(names))
	sections := make([]io.Reader, 0, len(names))
	for _, name := range names {
		raw := stateDict[name]
		size := int64(raw.ByteSize())
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  dtypeToString(raw.DType()),
			Shape:  []int(raw.Shape().Clone()),
			Offset: offset,
			Size:   size,
		})
		sections = append(sections, bytes.NewReader(raw.Data()))
		offset += size
	}

	checksum, err := ComputeChecksumReader(io.MultiReader(sections...))
	if err != nil {
		return fmt.Errorf("failed to compute checksum: %w", err)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	fixed := make([]byte, FixedHeaderSizeV2)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], uint32(FormatVersionV2))
	var flags uint32
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	// 0x0C-0x0F reserved
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(offset)) //nolint:gosec // G115: offset is a sum of slice lengths
	copy(fixed[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize], checksum[:])

	if _, err := w.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	end := int64(FixedHeaderSizeV2 + len(headerJSON))
	if padding := alignedDataOffset(end) - end; padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	for _, name := range names {
		if _, err := w.Write(stateDict[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}

	return nil
}
