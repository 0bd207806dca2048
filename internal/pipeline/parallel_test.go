package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pyragen/internal/variant"
)

// jitterGenerator completes out of order to exercise re-sequencing.
type jitterGenerator struct {
	mu     sync.Mutex
	calls  int
	failOn map[string]error
}

func (j *jitterGenerator) Generate(ctx context.Context, v variant.Variant) error {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()

	//nolint:gosec // G404: jitter only, not security sensitive
	delay := time.Duration(rand.Intn(10)) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err, ok := j.failOn[v.Name()]; ok {
		return err
	}
	return nil
}

func TestRunParallel_RegistryStaysInEnumerationOrder(t *testing.T) {
	path := registryPath(t)
	warps := []int{4, 6, 8, 10}
	tiles := []int{8, 10, 12, 14}

	r := New(Options{
		WarpCounts:   warps,
		TileDims:     tiles,
		Generator:    &jitterGenerator{},
		RegistryPath: path,
		Workers:      4,
	})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 16, summary.Registered)

	lines := registryLines(t, path)
	expected := variant.Collect(warps, tiles)
	require.Len(t, lines, len(expected))
	for i, v := range expected {
		require.Contains(t, lines[i], v.Name(),
			"line %d must belong to variant %s despite out-of-order completion", i, v.Name())
	}
}

func TestRunParallel_MatchesSequentialOutput(t *testing.T) {
	warps := []int{4, 6, 8}
	tiles := []int{8, 16}

	seqPath := registryPath(t)
	_, err := New(Options{
		WarpCounts: warps, TileDims: tiles,
		Generator:    &stubGenerator{},
		RegistryPath: seqPath,
	}).Run(context.Background())
	require.NoError(t, err)

	parPath := registryPath(t)
	_, err = New(Options{
		WarpCounts: warps, TileDims: tiles,
		Generator:    &jitterGenerator{},
		RegistryPath: parPath,
		Workers:      3,
	}).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, readRegistry(t, seqPath), readRegistry(t, parPath),
		"worker count must not affect registry bytes")
}

func TestRunParallel_StrictFailureLeavesCleanPrefix(t *testing.T) {
	path := registryPath(t)
	warps := []int{4, 6, 8, 10}
	tiles := []int{8, 10}

	gen := &jitterGenerator{
		failOn: map[string]error{"py2_6_10_10": errors.New("generator exploded")},
	}

	r := New(Options{
		WarpCounts:   warps,
		TileDims:     tiles,
		Generator:    gen,
		RegistryPath: path,
		Workers:      4,
	})

	summary, err := r.Run(context.Background())
	require.Error(t, err)

	// The failing variant is at enumeration index 3, so at most the
	// first three entries may appear, in order, with no gaps.
	lines := registryLines(t, path)
	require.Equal(t, summary.Registered, len(lines))
	require.LessOrEqual(t, len(lines), 3)
	expected := variant.Collect(warps, tiles)
	for i := range lines {
		require.Contains(t, lines[i], expected[i].Name())
	}
}

func TestRunParallel_FireAndForgetRegistersEverything(t *testing.T) {
	path := registryPath(t)

	gen := &jitterGenerator{
		failOn: map[string]error{"py2_6_8_8": errors.New("boom")},
	}

	r := New(Options{
		WarpCounts:    []int{4, 6, 8},
		TileDims:      []int{8},
		Generator:     gen,
		RegistryPath:  path,
		Workers:       2,
		FireAndForget: true,
	})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, summary.Registered)
	require.Equal(t, 1, summary.Failed)
	require.Len(t, registryLines(t, path), 3)
}
