package nn

import "fmt"

// Regularizer computes a penalty term from a parameter's values.
type Regularizer interface {
	Penalty(values []float32) float64
}

// L2Regularizer penalizes the squared magnitude of the weights:
// factor * Σ w².
type L2Regularizer struct {
	Factor float32
}

// L2 returns an L2 regularizer with the given factor.
func L2(factor float32) L2Regularizer {
	return L2Regularizer{Factor: factor}
}

// Penalty implements Regularizer.
func (r L2Regularizer) Penalty(values []float32) float64 {
	var sum float64
	for _, v := range values {
		sum += float64(v) * float64(v)
	}
	return float64(r.Factor) * sum
}

// String returns a description of the regularizer.
func (r L2Regularizer) String() string {
	return fmt.Sprintf("l2(%g)", r.Factor)
}
