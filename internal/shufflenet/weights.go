package shufflenet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/born-ml/shufflenet/internal/serialization"
	"github.com/born-ml/shufflenet/internal/tensor"
)

// Model types recorded in weight files.
const (
	ModelTypeClassifier = "ShuffleNetV2"
	ModelTypeBackbone   = "ShuffleNetV2Base"
)

// ErrIncompatibleWeights is returned when a weight file was written for a
// different architecture.
var ErrIncompatibleWeights = errors.New("shufflenet: incompatible weights")

// stateful is the subset of model methods needed to persist weights.
type stateful interface {
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// SafeTensorsExt selects the SafeTensors format in SaveWeights and
// LoadWeights. Any other extension uses the .born format.
const SafeTensorsExt = ".safetensors"

// SaveWeights writes the classifier's parameters to path.
func (c *Classifier[B]) SaveWeights(path string) error {
	return saveWeights(path, c, ModelTypeClassifier, c.Config())
}

// LoadWeights restores the classifier from a file written by SaveWeights.
func (c *Classifier[B]) LoadWeights(path string) error {
	return loadWeights(path, c, ModelTypeClassifier, c.Config())
}

// SaveWeights writes the backbone's parameters to path.
func (m *Backbone[B]) SaveWeights(path string) error {
	return saveWeights(path, m, ModelTypeBackbone, m.Config())
}

// LoadWeights restores the backbone from a file written by SaveWeights.
// Files written by a classifier are accepted; the head is ignored.
func (m *Backbone[B]) LoadWeights(path string) error {
	return loadWeights(path, m, ModelTypeBackbone, m.Config())
}

func isSafeTensors(path string) bool {
	return strings.EqualFold(filepath.Ext(path), SafeTensorsExt)
}

func saveWeights(path string, m stateful, modelType string, cfg Config) error {
	var err error
	if isSafeTensors(path) {
		metadata := cfg.Metadata()
		metadata[serialization.MetadataModelType] = modelType
		err = serialization.SaveSafeTensors(path, m.StateDict(), metadata)
	} else {
		err = serialization.SaveFile(path, m.StateDict(), modelType, cfg.Metadata())
	}
	if err != nil {
		return fmt.Errorf("shufflenet: save weights: %w", err)
	}
	return nil
}

func loadWeights(path string, m stateful, modelType string, cfg Config) error {
	var (
		stateDict map[string]*tensor.RawTensor
		fileType  string
		metadata  map[string]string
		err       error
	)
	if isSafeTensors(path) {
		stateDict, metadata, err = serialization.LoadSafeTensors(path)
		fileType = metadata[serialization.MetadataModelType]
	} else {
		var header serialization.Header
		stateDict, header, err = serialization.LoadFile(path)
		fileType, metadata = header.ModelType, header.Metadata
	}
	if err != nil {
		return fmt.Errorf("shufflenet: load weights: %w", err)
	}
	if err := checkCompatible(fileType, metadata, modelType, cfg); err != nil {
		return err
	}
	if err := m.LoadStateDict(stateDict); err != nil {
		return fmt.Errorf("shufflenet: load weights: %w", err)
	}
	return nil
}

// checkCompatible compares the architecture-defining metadata of a weight
// file against cfg. Output stride only changes dilation and is not compared.
func checkCompatible(fileType string, metadata map[string]string, modelType string, cfg Config) error {
	switch {
	case fileType == modelType:
	case fileType == ModelTypeClassifier && modelType == ModelTypeBackbone:
	default:
		return fmt.Errorf("%w: file holds %q, want %q", ErrIncompatibleWeights, fileType, modelType)
	}

	want := cfg.Metadata()
	keys := []string{"depth_multiplier", "small_backend"}
	if modelType == ModelTypeClassifier {
		keys = append(keys, "num_classes")
	}
	for _, key := range keys {
		if got, ok := metadata[key]; ok && got != want[key] {
			return fmt.Errorf("%w: %s is %s in file, %s in model", ErrIncompatibleWeights, key, got, want[key])
		}
	}
	return nil
}
