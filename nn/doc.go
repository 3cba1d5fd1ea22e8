// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn exposes the channels-last layers ShuffleNet is assembled from.
//
// # Layers
//
//   - Conv2D: KxK convolution with optional bias, ReLU and L2 kernel penalty
//   - DepthwiseConv2D: per-channel KxK convolution with stride and dilation
//   - BatchNorm: normalization over the channel axis with moving statistics
//   - MaxPool2D, GlobalAvgPool2D: spatial pooling
//   - Linear: fully connected layer with optional softmax
//   - Sequential: container that applies modules in order
//
// # Example
//
//	backend := cpu.New()
//	block := nn.NewSequential[*cpu.Backend](
//	    nn.NewConv2D(nn.Conv2DConfig{
//	        InChannels: 3, OutChannels: 24, KernelSize: 3, Stride: 2,
//	        Padding: tensor.PaddingSame, UseBias: true, Activation: nn.ActivationReLU,
//	    }, backend),
//	    nn.NewBatchNorm(24, 0.997, 1e-5, backend),
//	)
//	y := block.Forward(x)
//
// # State
//
// Every layer reports its weights through Parameters. Batch norm moving
// statistics are non-trainable parameters: they are saved and restored with
// StateDict/LoadStateDict but excluded from the trainable count.
package nn
