package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// ReaderOptions configures the behavior of BornReader and ReadFrom.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// preamble is everything in a .born file before the tensor data.
type preamble struct {
	version    uint32
	flags      uint32
	header     Header
	dataOffset int64    // Offset where tensor data starts
	dataSize   int64    // Size of the data section; -1 when unknown (v1)
	checksum   [32]byte // SHA-256 checksum (v2 only)
}

// readPreamble parses the fixed header and JSON header and consumes the
// alignment padding, leaving r positioned at the first tensor byte.
func readPreamble(r io.Reader) (*preamble, error) {
	head := make([]byte, 8)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if string(head[:4]) != MagicBytes {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, string(head[:4]))
	}

	p := &preamble{version: binary.LittleEndian.Uint32(head[4:8]), dataSize: -1}
	var headerSize uint64
	var fixedSize int64

	switch p.version {
	case FormatVersionV1:
		rest := make([]byte, FixedHeaderSizeV1-8)
		if _, err := io.ReadFull(r, rest); err != nil {
			return nil, fmt.Errorf("failed to read fixed header: %w", err)
		}
		p.flags = binary.LittleEndian.Uint32(rest[0:4])
		headerSize = binary.LittleEndian.Uint64(rest[4:12])
		fixedSize = FixedHeaderSizeV1
	case FormatVersionV2:
		rest := make([]byte, FixedHeaderSizeV2-8)
		if _, err := io.ReadFull(r, rest); err != nil {
			return nil, fmt.Errorf("failed to read fixed header: %w", err)
		}
		// rest is the fixed header shifted by 8 bytes.
		p.flags = binary.LittleEndian.Uint32(rest[0:4])
		headerSize = binary.LittleEndian.Uint64(rest[8:16])
		p.dataSize = int64(binary.LittleEndian.Uint64(rest[16:24])) //nolint:gosec // G115: validated against file size below
		copy(p.checksum[:], rest[ChecksumOffsetV2-8:ChecksumOffsetV2-8+ChecksumSize])
		fixedSize = FixedHeaderSizeV2
	default:
		return nil, fmt.Errorf("%w: got %d, expected %d or %d", ErrUnsupportedVersion, p.version, FormatVersionV1, FormatVersionV2)
	}

	if headerSize > MaxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if err := json.Unmarshal(headerBytes, &p.header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	end := fixedSize + int64(headerSize) //nolint:gosec // G115: bounded by MaxHeaderSize
	p.dataOffset = alignedDataOffset(end)
	if padding := p.dataOffset - end; padding > 0 {
		if _, err := io.CopyN(io.Discard, r, padding); err != nil {
			return nil, fmt.Errorf("failed to read padding: %w", err)
		}
	}

	return p, nil
}

// tensorFromBytes builds a RawTensor from its metadata and bytes.
func tensorFromBytes(meta TensorMeta, data []byte) (*tensor.RawTensor, error) {
	dtype, ok := stringToDtype(meta.DType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDType, meta.DType)
	}
	raw, err := tensor.NewRaw(tensor.Shape(meta.Shape), dtype, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", meta.Name, err)
	}
	if len(data) != raw.ByteSize() {
		return nil, fmt.Errorf("%w: tensor %s has %d bytes, shape needs %d", ErrInvalidShape, meta.Name, len(data), raw.ByteSize())
	}
	copy(raw.Data(), data)
	return raw, nil
}

// ReadFrom decodes a complete .born stream with strict validation.
func ReadFrom(r io.Reader) (map[string]*tensor.RawTensor, Header, error) {
	return ReadFromWithOptions(r, ReaderOptions{ValidationLevel: ValidationStrict})
}

// ReadFromWithOptions decodes a complete .born stream.
func ReadFromWithOptions(r io.Reader, opts ReaderOptions) (map[string]*tensor.RawTensor, Header, error) {
	p, err := readPreamble(r)
	if err != nil {
		return nil, Header{}, err
	}

	var data []byte
	if p.dataSize >= 0 {
		data = make([]byte, p.dataSize)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, Header{}, fmt.Errorf("failed to read tensor data: %w", err)
		}
	} else if data, err = io.ReadAll(r); err != nil {
		return nil, Header{}, fmt.Errorf("failed to read tensor data: %w", err)
	}

	if err := ValidateHeader(&p.header, int64(len(data)), opts.ValidationLevel); err != nil {
		return nil, Header{}, fmt.Errorf("validation failed: %w", err)
	}
	if p.version == FormatVersionV2 && !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(data), p.checksum); err != nil {
			return nil, Header{}, err
		}
	}

	stateDict := make(map[string]*tensor.RawTensor, len(p.header.Tensors))
	for _, meta := range p.header.Tensors {
		if meta.Offset < 0 || meta.Size < 0 || meta.Offset+meta.Size > int64(len(data)) {
			return nil, Header{}, fmt.Errorf("%w: tensor %s", ErrOutOfBounds, meta.Name)
		}
		raw, err := tensorFromBytes(meta, data[meta.Offset:meta.Offset+meta.Size])
		if err != nil {
			return nil, Header{}, err
		}
		stateDict[meta.Name] = raw
	}

	return stateDict, p.header, nil
}

// BornReader reads tensors from a .born file on demand.
type BornReader struct {
	file   *os.File
	p      *preamble
	closed bool
}

// NewBornReader creates a new .born file reader with default options (strict validation).
func NewBornReader(path string) (*BornReader, error) {
	return NewBornReaderWithOptions(path, ReaderOptions{
		ValidationLevel: ValidationStrict,
	})
}

// NewBornReaderWithOptions creates a new .born file reader with custom options.
func NewBornReaderWithOptions(path string, opts ReaderOptions) (*BornReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	reader, err := newBornReader(file, opts)
	if err != nil {
		_ = file.Close() // Best effort close on error
		return nil, err
	}
	return reader, nil
}

func newBornReader(file *os.File, opts ReaderOptions) (*BornReader, error) {
	p, err := readPreamble(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	available := info.Size() - p.dataOffset
	if p.dataSize < 0 {
		p.dataSize = available
	}
	if p.dataSize > available {
		return nil, fmt.Errorf("%w: data section of %d bytes, file holds %d", ErrOutOfBounds, p.dataSize, available)
	}

	if err := ValidateHeader(&p.header, p.dataSize, opts.ValidationLevel); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if p.version == FormatVersionV2 && !opts.SkipChecksumValidation {
		sum, err := ComputeChecksumReader(io.NewSectionReader(file, p.dataOffset, p.dataSize))
		if err != nil {
			return nil, fmt.Errorf("failed to read tensor data for checksum: %w", err)
		}
		if err := ValidateChecksum(sum, p.checksum); err != nil {
			return nil, err
		}
	}

	return &BornReader{file: file, p: p}, nil
}

// Header returns the file header.
func (r *BornReader) Header() Header {
	return r.p.header
}

// Version returns the file format version.
func (r *BornReader) Version() int {
	return int(r.p.version)
}

// Metadata returns the metadata map from the header.
func (r *BornReader) Metadata() map[string]string {
	return r.p.header.Metadata
}

// TensorNames returns the names of all tensors in file order.
func (r *BornReader) TensorNames() []string {
	names := make([]string, len(r.p.header.Tensors))
	for i, meta := range r.p.header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// TensorInfo returns information about a specific tensor.
func (r *BornReader) TensorInfo(name string) (TensorMeta, error) {
	meta, ok := r.p.header.Tensor(name)
	if !ok {
		return TensorMeta{}, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	return meta, nil
}

// LoadTensor loads a single tensor from the file.
func (r *BornReader) LoadTensor(name string) (*tensor.RawTensor, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}

	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	data := make([]byte, meta.Size)
	if _, err := r.file.ReadAt(data, r.p.dataOffset+meta.Offset); err != nil {
		return nil, fmt.Errorf("failed to read tensor %s: %w", name, err)
	}
	return tensorFromBytes(meta, data)
}

// ReadStateDict reads all tensors into a state dictionary.
func (r *BornReader) ReadStateDict() (map[string]*tensor.RawTensor, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}

	stateDict := make(map[string]*tensor.RawTensor, len(r.p.header.Tensors))
	for _, meta := range r.p.header.Tensors {
		raw, err := r.LoadTensor(meta.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to load tensor %s: %w", meta.Name, err)
		}
		stateDict[meta.Name] = raw
	}

	return stateDict, nil
}

// Close closes the reader and the underlying file.
func (r *BornReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// LoadFile reads every tensor of the .born file at path.
func LoadFile(path string) (map[string]*tensor.RawTensor, Header, error) {
	r, err := NewBornReader(path)
	if err != nil {
		return nil, Header{}, err
	}
	defer func() { _ = r.Close() }()

	stateDict, err := r.ReadStateDict()
	if err != nil {
		return nil, Header{}, err
	}
	return stateDict, r.Header(), nil
}

// Encode returns stateDict encoded as a .born byte slice.
func Encode(stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTo(&buf, stateDict, modelType, metadata); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
