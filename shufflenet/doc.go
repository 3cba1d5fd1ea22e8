// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package shufflenet implements the ShuffleNet V2 image classifier and its
// feature-extraction backbone for channels-last float32 tensors.
//
// # Architecture
//
// The backbone is an entry stem (3x3 conv stride 2, batch norm, 2x2 max
// pool) followed by three stages. Each stage opens with a downsampling unit
// that runs two branches side by side, then applies basic units to the left
// half of every channel-shuffled concatenation. The classifier adds a 1x1
// conv, global average pooling and a softmax dense layer.
//
// # Output stride
//
// Config.OutputStride bounds the resolution reduction of the backbone.
// Once the budget is used up, later stages keep their resolution and grow
// the dilation of their depthwise convolutions instead:
//
//	cfg := shufflenet.DefaultConfig()
//	cfg.OutputStride = 16
//	features, exits, err := shufflenet.Base(x, cfg)
//	// exits has keys "4", "8" and "16"; features is [N, H/16, W/16, 464]
//
// # Weights
//
// SaveWeights and LoadWeights persist parameters in the .born format. A
// backbone can load the weights of a classifier with the same depth
// multiplier; the classification head is ignored.
package shufflenet
