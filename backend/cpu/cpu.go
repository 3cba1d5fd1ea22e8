// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/shufflenet/internal/backend/cpu"
	"github.com/born-ml/shufflenet/internal/parallel"
	"github.com/born-ml/shufflenet/tensor"
)

// Backend represents the CPU backend implementation.
//
// The CPU backend runs every operation in pure Go; matrix products and
// convolutions go through gonum BLAS.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend that uses every available core.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Randn[float32](tensor.Shape{1, 224, 224, 3}, backend)
func New() *Backend {
	return internalcpu.New()
}

// NewWithWorkers creates a CPU backend limited to workers goroutines.
// A value of one or less runs every kernel on the calling goroutine.
func NewWithWorkers(workers int) *Backend {
	cfg := parallel.DefaultConfig()
	cfg.NumWorkers = max(workers, 1)
	cfg.Enabled = workers > 1
	return internalcpu.NewWithConfig(cfg)
}
