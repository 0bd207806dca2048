package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWritePlan(t *testing.T) {
	var b strings.Builder
	writePlan(&b, []int{4, 6}, []int{8, 10}, false)

	want := "py2_4_8_8\npy2_4_10_10\npy2_6_8_8\npy2_6_10_10\n" +
		"4 variants (2 warp counts x 2 tile dims)\n"
	require.Equal(t, want, b.String())
}

func TestWritePlan_WithPaths(t *testing.T) {
	var b strings.Builder
	writePlan(&b, []int{4}, []int{8}, true)

	require.Contains(t, b.String(), "py2_4_8_8\n")
	require.Contains(t, b.String(), "  py2_4_8_8/general_pipeline_alternative.glsl\n")
	require.Contains(t, b.String(), "  py2_4_8_8/py2_4_8_8.cpp\n")
}

func TestWritePlan_EmptyAxes(t *testing.T) {
	var b strings.Builder
	writePlan(&b, nil, nil, false)
	require.Equal(t, "0 variants (0 warp counts x 0 tile dims)\n", b.String())
}

func TestExpectedRegistry(t *testing.T) {
	want := "{\"py2_4_8_8\", {\"py2_4_8_8\"}},\n{\"py2_4_10_10\", {\"py2_4_10_10\"}},\n"
	require.Equal(t, want, expectedRegistry([]int{4}, []int{8, 10}))
}

func TestVerifyRegistry_Match(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alternatives.inc")
	require.NoError(t, os.WriteFile(path,
		[]byte(expectedRegistry([]int{4, 6}, []int{8})), 0o644))

	require.NoError(t, verifyRegistry(path, []int{4, 6}, []int{8}))
}

func TestVerifyRegistry_LineMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alternatives.inc")
	content := "{\"py2_4_8_8\", {\"py2_4_8_8\"}},\n{\"py2_9_9_9\", {\"py2_9_9_9\"}},\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	err := verifyRegistry(path, []int{4, 6}, []int{8})
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
}

func TestVerifyRegistry_LengthMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alternatives.inc")
	require.NoError(t, os.WriteFile(path,
		[]byte(expectedRegistry([]int{4}, []int{8})), 0o644))

	err := verifyRegistry(path, []int{4, 6}, []int{8})
	require.Error(t, err)
	require.Contains(t, err.Error(), "lines")
}

func TestVerifyRegistry_MissingFile(t *testing.T) {
	err := verifyRegistry(filepath.Join(t.TempDir(), "nope.inc"), []int{4}, []int{8})
	require.Error(t, err)
}
