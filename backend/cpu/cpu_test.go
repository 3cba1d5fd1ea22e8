package cpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/shufflenet/backend/cpu"
	"github.com/born-ml/shufflenet/tensor"
)

func TestBackends_Agree(t *testing.T) {
	x := tensor.Randn[float32](tensor.Shape{4, 64}, cpu.New())
	w := tensor.Randn[float32](tensor.Shape{64, 32}, cpu.New())

	serial := cpu.NewWithWorkers(1)
	want := x.MatMul(w).Data()

	xs := tensor.New[float32](x.Raw().Clone(), serial)
	ws := tensor.New[float32](w.Raw().Clone(), serial)
	assert.InDeltaSlice(t, want, xs.MatMul(ws).Data(), 1e-4)
	assert.Equal(t, "CPU", serial.Name())
}
