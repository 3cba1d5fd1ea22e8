// Package serialization stores model weights in the .born binary format.
//
// The format is a fixed header, a JSON description of every tensor and the
// raw little-endian tensor bytes:
//
//	Format Structure (v2):
//	  0x00 [4 bytes: Magic "BORN"]
//	  0x04 [4 bytes: Version (uint32 LE)]
//	  0x08 [4 bytes: Flags (uint32 LE)]
//	  0x0C [4 bytes: Reserved]
//	  0x10 [8 bytes: Header Size (uint64 LE)]
//	  0x18 [8 bytes: Data Size (uint64 LE)]
//	  0x20 [32 bytes: SHA-256 of the data section]
//	  0x40 [Header: JSON metadata]
//	       [Tensor data: raw bytes, 64-byte aligned]
//
// Version 1 files (no fixed header, no checksum) are still readable.
// Tensors are written in name order, so saving the same weights twice
// yields identical data sections.
//
// Example usage:
//
//	// Save weights
//	err := serialization.SaveFile("shufflenet.born", model.StateDict(), "ShuffleNetV2", nil)
//
//	// Load weights
//	stateDict, header, err := serialization.LoadFile("shufflenet.born")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = model.LoadStateDict(stateDict)
package serialization
