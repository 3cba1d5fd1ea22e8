package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/shufflenet/internal/tensor"
)

func rawFloat32(t *testing.T, shape tensor.Shape, values ...float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(raw.AsFloat32(), values)
	return raw
}

func sampleStateDict(t *testing.T) map[string]*tensor.RawTensor {
	t.Helper()
	return map[string]*tensor.RawTensor{
		"stem.conv.weight": rawFloat32(t, tensor.Shape{1, 1, 2, 3}, 1, 2, 3, 4, 5, 6),
		"stem.conv.bias":   rawFloat32(t, tensor.Shape{3}, -1, 0, 1),
		"logits.bias":      rawFloat32(t, tensor.Shape{2}, 0.5, 0.25),
	}
}

func TestChecksum_KnownVector(t *testing.T) {
	sum := ComputeChecksum(nil)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", hex.EncodeToString(sum[:]))

	fromReader, err := ComputeChecksumReader(bytes.NewReader([]byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, ComputeChecksum([]byte("abc")), fromReader)

	assert.NoError(t, ValidateChecksum(sum, sum))
	assert.ErrorIs(t, ValidateChecksum(sum, [32]byte{1}), ErrChecksumMismatch)
}

func TestSaveLoadFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.born")
	sd := sampleStateDict(t)

	require.NoError(t, SaveFile(path, sd, "ShuffleNetV2", map[string]string{"depth_multiplier": "1.0"}))

	loaded, header, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, FormatVersionV2, header.FormatVersion)
	assert.Equal(t, "ShuffleNetV2", header.ModelType)
	assert.Equal(t, Version, header.BornVersion)
	assert.Equal(t, "1.0", header.Metadata["depth_multiplier"])
	require.Len(t, loaded, len(sd))
	for name, want := range sd {
		got, ok := loaded[name]
		require.True(t, ok, name)
		assert.Equal(t, want.Shape(), got.Shape(), name)
		assert.Equal(t, want.AsFloat32(), got.AsFloat32(), name)
	}
}

func TestWriteTo_SortedAndAligned(t *testing.T) {
	data, err := Encode(sampleStateDict(t), "test", nil)
	require.NoError(t, err)

	assert.Equal(t, MagicBytes, string(data[:4]))
	assert.Equal(t, uint32(FormatVersionV2), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(data[8:12]), "no metadata flag")

	headerSize := int64(binary.LittleEndian.Uint64(data[16:24]))
	dataSize := int64(binary.LittleEndian.Uint64(data[24:32]))
	assert.Equal(t, int64((6+3+2)*4), dataSize)

	dataOffset := alignedDataOffset(FixedHeaderSizeV2 + headerSize)
	assert.Zero(t, dataOffset%HeaderAlignment)
	assert.Equal(t, dataOffset+dataSize, int64(len(data)))

	var stored [32]byte
	copy(stored[:], data[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize])
	assert.Equal(t, ComputeChecksum(data[dataOffset:]), stored)

	_, header, err := ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	names := make([]string, len(header.Tensors))
	for i, meta := range header.Tensors {
		names[i] = meta.Name
	}
	assert.Equal(t, []string{"logits.bias", "stem.conv.bias", "stem.conv.weight"}, names)
	assert.Equal(t, int64(0), header.Tensors[0].Offset)
	assert.Equal(t, int64(8), header.Tensors[1].Offset)
	assert.Equal(t, int64(20), header.Tensors[2].Offset)
}

func TestReadFrom_Float64AndScalar(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	raw.AsFloat64()[0] = 3.5

	data, err := Encode(map[string]*tensor.RawTensor{"step": raw}, "test", nil)
	require.NoError(t, err)

	sd, _, err := ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	require.Contains(t, sd, "step")
	assert.Equal(t, tensor.Float64, sd["step"].DType())
	assert.Equal(t, []float64{3.5}, sd["step"].AsFloat64())
}

func TestReadFrom_ChecksumMismatch(t *testing.T) {
	data, err := Encode(sampleStateDict(t), "test", nil)
	require.NoError(t, err)

	data[len(data)-1] ^= 0xFF
	_, _, err = ReadFrom(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	_, _, err = ReadFromWithOptions(bytes.NewReader(data), ReaderOptions{SkipChecksumValidation: true})
	assert.NoError(t, err)
}

func TestBornReader_ChecksumMismatch(t *testing.T) {
	data, err := Encode(sampleStateDict(t), "test", nil)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF

	path := filepath.Join(t.TempDir(), "corrupt.born")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = NewBornReader(path)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	r, err := NewBornReaderWithOptions(path, ReaderOptions{SkipChecksumValidation: true})
	require.NoError(t, err)
	assert.NoError(t, r.Close())
}

func TestReadFrom_BadPreamble(t *testing.T) {
	data, err := Encode(sampleStateDict(t), "test", nil)
	require.NoError(t, err)

	badMagic := bytes.Clone(data)
	copy(badMagic, "NOPE")
	_, _, err = ReadFrom(bytes.NewReader(badMagic))
	assert.ErrorIs(t, err, ErrInvalidMagic)

	badVersion := bytes.Clone(data)
	binary.LittleEndian.PutUint32(badVersion[4:8], 9)
	_, _, err = ReadFrom(bytes.NewReader(badVersion))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	hugeHeader := bytes.Clone(data)
	binary.LittleEndian.PutUint64(hugeHeader[16:24], MaxHeaderSize+1)
	_, _, err = ReadFrom(bytes.NewReader(hugeHeader))
	assert.ErrorIs(t, err, ErrHeaderTooLarge)

	_, _, err = ReadFrom(bytes.NewReader(data[:10]))
	assert.Error(t, err)
}

func TestReadFrom_V1(t *testing.T) {
	// v1 has a 20-byte fixed header and no checksum.
	headerJSON := []byte(`{"format_version":1,"model_type":"legacy","tensors":[{"name":"w","dtype":"float32","shape":[2],"offset":0,"size":8}]}`)
	var buf bytes.Buffer
	buf.WriteString(MagicBytes)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(FormatVersionV1))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0))
	_ = binary.Write(&buf, binary.LittleEndian, uint64(len(headerJSON)))
	buf.Write(headerJSON)
	end := int64(FixedHeaderSizeV1 + len(headerJSON))
	buf.Write(make([]byte, alignedDataOffset(end)-end))
	_ = binary.Write(&buf, binary.LittleEndian, []float32{1.5, -2})

	sd, header, err := ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "legacy", header.ModelType)
	assert.Equal(t, []float32{1.5, -2}, sd["w"].AsFloat32())

	path := filepath.Join(t.TempDir(), "v1.born")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	r, err := NewBornReader(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	assert.Equal(t, FormatVersionV1, r.Version())
	w, err := r.LoadTensor("w")
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2}, w.AsFloat32())
}

func TestBornReader_Lookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.born")
	require.NoError(t, SaveFile(path, sampleStateDict(t), "test", map[string]string{"k": "v"}))

	r, err := NewBornReader(path)
	require.NoError(t, err)

	assert.Equal(t, FormatVersionV2, r.Version())
	assert.Equal(t, "v", r.Metadata()["k"])
	assert.Equal(t, []string{"logits.bias", "stem.conv.bias", "stem.conv.weight"}, r.TensorNames())

	meta, err := r.TensorInfo("stem.conv.weight")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 3}, meta.Shape)
	assert.Equal(t, int64(24), meta.Size)

	_, err = r.TensorInfo("missing")
	assert.ErrorIs(t, err, ErrTensorNotFound)
	_, err = r.LoadTensor("missing")
	assert.ErrorIs(t, err, ErrTensorNotFound)

	bias, err := r.LoadTensor("stem.conv.bias")
	require.NoError(t, err)
	assert.Equal(t, []float32{-1, 0, 1}, bias.AsFloat32())

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	_, err = r.LoadTensor("stem.conv.bias")
	assert.Error(t, err)
	_, err = r.ReadStateDict()
	assert.Error(t, err)
}

func TestWriteTo_RejectsBadNames(t *testing.T) {
	for _, name := range []string{"", "../escape", "a/b", "nul\x00"} {
		sd := map[string]*tensor.RawTensor{name: rawFloat32(t, tensor.Shape{1}, 1)}
		_, err := Encode(sd, "test", nil)
		assert.ErrorIs(t, err, ErrInvalidTensorName, "%q", name)
	}
}

func TestBornWriter_Closed(t *testing.T) {
	w, err := NewBornWriter(filepath.Join(t.TempDir(), "x.born"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Error(t, w.WriteStateDict(sampleStateDict(t), "test", nil))
}

func TestNewBornReader_MissingFile(t *testing.T) {
	_, err := NewBornReader(filepath.Join(t.TempDir(), "absent.born"))
	assert.Error(t, err)
}

func TestChecksum_Errors(t *testing.T) {
	readErr := errors.New("disk gone")
	_, err := ComputeChecksumReader(iotest.ErrReader(readErr))
	assert.ErrorIs(t, err, readErr)

	stored := ComputeChecksum([]byte("weights"))
	err = ValidateChecksum(ComputeChecksum([]byte("weightz")), stored)
	require.ErrorIs(t, err, ErrChecksumMismatch)
	assert.Contains(t, err.Error(), hex.EncodeToString(stored[:4]))
}
