package shufflenet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/shufflenet/internal/backend/cpu"
	"github.com/born-ml/shufflenet/internal/tensor"
)

type backendT = *cpu.CPUBackend

func fromSlice(t *testing.T, data []float32, shape ...int) *tensor.Tensor[float32, backendT] {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape), cpu.New())
	require.NoError(t, err)
	return x
}

func seq(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}

// smallConfig is the cheapest valid configuration.
func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.DepthMultiplier = DepthMultiplier05
	cfg.NumClasses = 10
	return cfg
}
