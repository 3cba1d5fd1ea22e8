package nn

import (
	"fmt"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// Parameter represents a named weight tensor of a layer.
//
// Trainable parameters are weights and biases. Non-trainable parameters hold
// state that is updated outside of gradient descent, such as batch norm
// moving statistics.
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	weight.SetRegularizer(nn.L2(4e-5))
//	penalty := weight.Penalty()
type Parameter[B tensor.Backend] struct {
	name        string                     // Parameter name (e.g., "weight", "bias")
	tensor      *tensor.Tensor[float32, B] // The parameter tensor
	trainable   bool
	regularizer Regularizer
}

// NewParameter creates a new trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		name:      name,
		tensor:    t,
		trainable: true,
	}
}

// NewBuffer creates a non-trainable parameter.
func NewBuffer[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// Trainable reports whether the parameter is updated by an optimizer.
func (p *Parameter[B]) Trainable() bool {
	return p.trainable
}

// NumElements returns the number of scalars in the parameter.
func (p *Parameter[B]) NumElements() int {
	return p.tensor.NumElements()
}

// Regularizer returns the attached regularizer, or nil.
func (p *Parameter[B]) Regularizer() Regularizer {
	return p.regularizer
}

// SetRegularizer attaches r to the parameter. A nil r removes it.
func (p *Parameter[B]) SetRegularizer(r Regularizer) {
	p.regularizer = r
}

// Penalty returns the regularization penalty of the current values, or 0
// when no regularizer is attached.
func (p *Parameter[B]) Penalty() float64 {
	if p.regularizer == nil {
		return 0
	}
	return p.regularizer.Penalty(p.tensor.Data())
}

// load copies raw into the parameter after validating shape and dtype.
func (p *Parameter[B]) load(raw *tensor.RawTensor) error {
	if raw.DType() != tensor.Float32 {
		return fmt.Errorf("%w: %s: expected float32, got %s", ErrDTypeMismatch, p.name, raw.DType())
	}
	if !raw.Shape().Equal(p.tensor.Shape()) {
		return fmt.Errorf("%w: %s: expected %v, got %v", ErrShapeMismatch, p.name, p.tensor.Shape(), raw.Shape())
	}
	return p.tensor.Raw().CopyFrom(raw)
}

// paramStateDict maps parameter names to their raw tensors.
func paramStateDict[B tensor.Backend](params []*Parameter[B]) map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor, len(params))
	for _, p := range params {
		stateDict[p.name] = p.tensor.Raw()
	}
	return stateDict
}

// loadParams loads every parameter from stateDict by name.
func loadParams[B tensor.Backend](params []*Parameter[B], stateDict map[string]*tensor.RawTensor) error {
	for _, p := range params {
		raw, ok := stateDict[p.name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingParameter, p.name)
		}
		if err := p.load(raw); err != nil {
			return err
		}
	}
	return nil
}
