// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Im2col convolutions and dense GEMM through gonum BLAS
//   - Dilated depthwise convolutions and SAME/VALID padding
//   - Float32 and Float64 support
//   - Loops split across goroutines for large batches
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/shufflenet/backend/cpu"
//	    "github.com/born-ml/shufflenet/shufflenet"
//	    "github.com/born-ml/shufflenet/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.Randn[float32](tensor.Shape{1, 224, 224, 3}, backend)
//	    probs, err := shufflenet.Classify(x, 1000, shufflenet.DefaultConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(probs.Shape())
//	}
//
// # Thread Safety
//
// The backend holds no mutable state and may be shared by goroutines.
// Tensors are not synchronized.
package cpu
