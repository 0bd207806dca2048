// Package variant models one generated pipeline specialization and the
// enumeration of the full parameter space.
package variant

import (
	"fmt"
	"iter"
	"path/filepath"
)

// ShaderFileName is the shader source every variant directory contains.
const ShaderFileName = "general_pipeline_alternative.glsl"

// Variant is one (warps, tileWidth, tileHeight) combination. The current
// generator only emits square tiles, but width and height are kept
// separate because the name template and the generator interface both
// take them independently.
type Variant struct {
	Warps      int
	TileWidth  int
	TileHeight int
}

// Name derives the canonical variant name. It is a pure function of the
// three parameters; distinct tuples never collide since every parameter
// appears in the result.
func (v Variant) Name() string {
	return fmt.Sprintf("py2_%d_%d_%d", v.Warps, v.TileWidth, v.TileHeight)
}

// ShaderPath returns the variant's shader artifact path, relative to the
// generation base directory.
func (v Variant) ShaderPath() string {
	return filepath.Join(v.Name(), ShaderFileName)
}

// SourcePath returns the variant's native-source artifact path, relative
// to the generation base directory.
func (v Variant) SourcePath() string {
	name := v.Name()
	return filepath.Join(name, name+".cpp")
}

// ArtifactPaths returns both artifact paths in staging order.
func (v Variant) ArtifactPaths() []string {
	return []string{v.ShaderPath(), v.SourcePath()}
}

// Enumerate yields the cross product of warpCounts and tileDims in nested
// order: warpCounts is the outer axis, tileDims the inner, both in input
// order. Each yielded variant has TileWidth == TileHeight. Empty inputs
// yield an empty sequence. The sequence is restartable; it closes over
// nothing but its arguments.
func Enumerate(warpCounts, tileDims []int) iter.Seq[Variant] {
	return func(yield func(Variant) bool) {
		for _, warps := range warpCounts {
			for _, dim := range tileDims {
				if !yield(Variant{Warps: warps, TileWidth: dim, TileHeight: dim}) {
					return
				}
			}
		}
	}
}

// Count returns the number of variants Enumerate will yield.
func Count(warpCounts, tileDims []int) int {
	return len(warpCounts) * len(tileDims)
}

// Collect materializes the enumeration into a slice. Mostly a test and
// planning convenience; Run paths should range over Enumerate directly.
func Collect(warpCounts, tileDims []int) []Variant {
	out := make([]Variant, 0, Count(warpCounts, tileDims))
	for v := range Enumerate(warpCounts, tileDims) {
		out = append(out, v)
	}
	return out
}
