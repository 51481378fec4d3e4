package visualization_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blurcluster/pkg/cluster"
	"blurcluster/pkg/config"
	"blurcluster/pkg/hitmap"
	"blurcluster/pkg/visualization"
)

func runPipeline(t *testing.T, hits []hitmap.Hit) *cluster.Result {
	t.Helper()
	p, err := cluster.New(config.Default(), nil, nil)
	require.NoError(t, err)
	return p.Run(hits)
}

func TestSavePlaneWritesAllStages(t *testing.T) {
	res := runPipeline(t, []hitmap.Hit{
		{Wire: 10, PeakTime: 100, Charge: 50, Width: 2},
		{Wire: 11, PeakTime: 101, Charge: 40, Width: 2},
	})

	dir := t.TempDir()
	rec := visualization.NewRecorder(dir)
	require.True(t, rec.Enabled())
	require.NoError(t, rec.SavePlane("plane0", res))

	for _, stage := range []string{
		"plane0_stage1_unblurred.png",
		"plane0_stage2_blurred.png",
		"plane0_stage3_cell_clusters.png",
		"plane0_stage4_output_clusters.png",
	} {
		info, err := os.Stat(filepath.Join(dir, stage))
		require.NoError(t, err, stage)
		assert.Greater(t, info.Size(), int64(0), stage)
	}
}

func TestDisabledRecorderWritesNothing(t *testing.T) {
	res := runPipeline(t, []hitmap.Hit{{Wire: 10, PeakTime: 100, Charge: 50}})

	rec := visualization.NewRecorder("")
	assert.False(t, rec.Enabled())
	assert.NoError(t, rec.SavePlane("plane0", res))
}

func TestSavePlaneSkipsEmptyImage(t *testing.T) {
	res := runPipeline(t, nil)

	dir := t.TempDir()
	rec := visualization.NewRecorder(dir)
	require.NoError(t, rec.SavePlane("plane0", res))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
