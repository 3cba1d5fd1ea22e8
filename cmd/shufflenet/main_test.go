package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/born-ml/shufflenet/shufflenet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRun_UsageAndUnknown(t *testing.T) {
	_, err := runCLI(t)
	assert.ErrorIs(t, err, flag.ErrHelp)

	_, err = runCLI(t, "train")
	assert.ErrorContains(t, err, `unknown command "train"`)
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "shufflenet "+version+" (born format v2, onnx ir 8 opset 13)\n", out)
}

func TestSummary(t *testing.T) {
	out, err := runCLI(t, "summary", "-depth", "0.5", "-os", "16", "-classes", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "ShuffleNetV2(depth_multiplier=0.5, output_stride=16, num_classes=10)")
	assert.Contains(t, out, "Total params:")

	out, err = runCLI(t, "summary", "-backbone", "-small")
	require.NoError(t, err)
	assert.Contains(t, out, "small_backend=true")
}

func TestSummary_InvalidConfig(t *testing.T) {
	_, err := runCLI(t, "summary", "-depth", "0.7")
	assert.Error(t, err)

	_, err = runCLI(t, "summary", "-os", "2")
	assert.Error(t, err)

	_, err = runCLI(t, "summary", "-classes", "0")
	assert.Error(t, err)

	_, err = runCLI(t, "summary", "-backbone", "-classes", "0")
	assert.NoError(t, err, "the backbone ignores the class count")
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte("depth_multiplier: 1.5\noutput_stride: 8\nnum_classes: 7\n"), 0o600))

	out, err := runCLI(t, "summary", "-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ShuffleNetV2(depth_multiplier=1.5, output_stride=8, num_classes=7)")

	// Flags win over the file.
	out, err = runCLI(t, "summary", "-config", path, "-os", "32")
	require.NoError(t, err)
	assert.Contains(t, out, "output_stride=32, num_classes=7")
}

func TestInfer(t *testing.T) {
	out, err := runCLI(t, "infer", "-depth", "0.5", "-classes", "4", "-size", "32", "-batch", "2", "-topk", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "sample 0: "))
	assert.Len(t, strings.Fields(strings.TrimPrefix(lines[1], "sample 1: ")), 2)

	out, err = runCLI(t, "infer", "-backbone", "-depth", "0.5", "-os", "8", "-size", "32", "-input", "zeros")
	require.NoError(t, err)
	assert.Equal(t, "features [1 4 4 192]\nexit 4 [1 8 8 24]\nexit 8 [1 4 4 48]\n", out)

	_, err = runCLI(t, "infer", "-input", "noise", "-size", "8")
	assert.ErrorContains(t, err, "unknown input")
}

func TestInitInferInspect(t *testing.T) {
	dir := t.TempDir()
	weights := filepath.Join(dir, "w.born")

	_, err := runCLI(t, "init", "-depth", "0.5", "-classes", "3", "-out", weights)
	require.NoError(t, err)

	_, err = runCLI(t, "infer", "-depth", "0.5", "-classes", "3", "-size", "16", "-weights", weights)
	require.NoError(t, err)

	_, err = runCLI(t, "infer", "-depth", "1.0", "-classes", "3", "-size", "16", "-weights", weights)
	assert.Error(t, err)

	out, err := runCLI(t, "inspect", weights)
	require.NoError(t, err)
	assert.Contains(t, out, "format: born v2")
	assert.Contains(t, out, "model: ShuffleNetV2\n")
	assert.Contains(t, out, "  depth_multiplier: 0.5\n")
}

func TestInitSafeTensors(t *testing.T) {
	weights := filepath.Join(t.TempDir(), "base.safetensors")
	_, err := runCLI(t, "init", "-backbone", "-depth", "0.5", "-out", weights)
	require.NoError(t, err)

	out, err := runCLI(t, "inspect", weights)
	require.NoError(t, err)
	assert.Contains(t, out, "format: safetensors\nmodel: ShuffleNetV2Base\n")

	_, err = runCLI(t, "infer", "-backbone", "-depth", "0.5", "-size", "16", "-weights", weights)
	require.NoError(t, err)
}

func TestExportInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.onnx")
	_, err := runCLI(t, "export", "-depth", "0.5", "-classes", "10", "-size", "32", "-out", path)
	require.NoError(t, err)

	out, err := runCLI(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "format: onnx ir 8")
	assert.Contains(t, out, "input input [batch,32,32,3]")
	assert.Contains(t, out, "Softmax")

	_, err = runCLI(t, "inspect")
	assert.Error(t, err)
}

func TestTopClasses(t *testing.T) {
	assert.Equal(t, []int{2, 0}, topClasses([]float32{0.3, 0.1, 0.6}, 2))
	assert.Equal(t, []int{2, 0, 1}, topClasses([]float32{0.3, 0.1, 0.6}, 10))
	assert.Empty(t, topClasses([]float32{0.3}, 0))
}

func TestUsageListsFormats(t *testing.T) {
	var stderr bytes.Buffer
	require.ErrorIs(t, run(nil, &stderr, &stderr), flag.ErrHelp)

	lines := strings.Split(stderr.String(), "\n")
	var initLine, inspectLine string
	for _, line := range lines {
		switch {
		case strings.HasPrefix(strings.TrimSpace(line), "init "):
			initLine = line
		case strings.HasPrefix(strings.TrimSpace(line), "inspect "):
			inspectLine = line
		}
	}
	assert.Contains(t, initLine, ".safetensors")
	assert.Contains(t, inspectLine, ".safetensors")
	assert.Contains(t, inspectLine, ".onnx")
}

func TestSmallBackendFlag(t *testing.T) {
	var m modelFlags
	fs := newFlagSet("summary", &bytes.Buffer{})
	m.register(fs)
	assert.Contains(t, fs.Lookup("small").Usage, "2x the initial depth")

	require.NoError(t, fs.Parse([]string{"-small", "-depth", "1.0"}))
	cfg, err := m.resolve(fs)
	require.NoError(t, err)
	plans, err := shufflenet.PlanStages(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2*plans[0].OutChannels, plans[len(plans)-1].OutChannels)
	assert.Equal(t, 232, plans[len(plans)-1].OutChannels)
}
