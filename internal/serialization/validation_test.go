package serialization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name    string
		tensors []TensorMeta
		size    int64
		want    error
	}{
		{"ok", []TensorMeta{{Name: "a", Offset: 0, Size: 8}, {Name: "b", Offset: 8, Size: 4}}, 12, nil},
		{"overlap", []TensorMeta{{Name: "a", Offset: 0, Size: 8}, {Name: "b", Offset: 4, Size: 4}}, 12, ErrOffsetOverlap},
		{"out of bounds", []TensorMeta{{Name: "a", Offset: 8, Size: 8}}, 12, ErrOutOfBounds},
		{"negative", []TensorMeta{{Name: "a", Offset: -1, Size: 4}}, 12, ErrNegativeOffset},
		{"empty", nil, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, tt.size)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateHeader_Levels(t *testing.T) {
	overlapping := &Header{Tensors: []TensorMeta{
		{Name: "a", DType: DTypeFloat32, Shape: []int{2}, Offset: 0, Size: 8},
		{Name: "b", DType: DTypeFloat32, Shape: []int{2}, Offset: 4, Size: 8},
	}}
	assert.ErrorIs(t, ValidateHeader(overlapping, 12, ValidationStrict), ErrOffsetOverlap)
	assert.NoError(t, ValidateHeader(overlapping, 12, ValidationNormal))

	badDType := &Header{Tensors: []TensorMeta{{Name: "a", DType: "int8", Shape: []int{1}, Size: 1}}}
	assert.ErrorIs(t, ValidateHeader(badDType, 1, ValidationNormal), ErrInvalidDType)
	assert.NoError(t, ValidateHeader(badDType, 1, ValidationNone))

	badSize := &Header{Tensors: []TensorMeta{{Name: "a", DType: DTypeFloat64, Shape: []int{2}, Size: 8}}}
	assert.ErrorIs(t, ValidateHeader(badSize, 8, ValidationNormal), ErrInvalidShape)

	zeroDim := &Header{Tensors: []TensorMeta{{Name: "a", DType: DTypeFloat32, Shape: []int{0}, Size: 0}}}
	assert.ErrorIs(t, ValidateHeader(zeroDim, 0, ValidationNormal), ErrInvalidShape)
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Type: "offset_overlap", Tensor: "a", Tensor2: "b", Details: "x"}
	assert.Equal(t, `offset_overlap: tensors "a" and "b": x`, err.Error())

	err = &ValidationError{Type: "invalid_name", Details: "empty tensor name"}
	assert.Equal(t, "invalid_name: empty tensor name", err.Error())
	assert.ErrorIs(t, err, ErrInvalidTensorName)

	assert.Nil(t, (&ValidationError{Type: "other"}).Unwrap())
}
