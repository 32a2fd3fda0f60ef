package layout

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyhub-apps/pdftextlayer-golang/pkg/geometry"
)

func sr(index int, text string, left, top, width, height float64) geometry.ScreenRun {
	return geometry.ScreenRun{
		Index:    index,
		Text:     text,
		Left:     left,
		Top:      top,
		Width:    width,
		Height:   height,
		FontSize: height,
		StretchX: 1,
	}
}

func TestClusterEmpty(t *testing.T) {
	assert.Empty(t, ClusterIntoParagraphs(nil))
	assert.Empty(t, ClusterIntoParagraphs([]geometry.ScreenRun{}))
}

func TestClusterLineAndParagraphSplit(t *testing.T) {
	runs := []geometry.ScreenRun{
		sr(0, "a", 10, 100, 20, 10),
		sr(1, "b", 10, 110, 20, 10),
		sr(2, "c", 40, 100, 20, 10),
		sr(3, "d", 10, 140, 20, 10),
	}

	paragraphs := ClusterIntoParagraphs(runs)
	require.Len(t, paragraphs, 2)

	first := paragraphs[0]
	require.Len(t, first.Runs, 3)
	assert.Equal(t, []int{0, 2, 1}, indexes(first.Runs))

	second := paragraphs[1]
	require.Len(t, second.Runs, 1)
	assert.Equal(t, 3, second.Runs[0].Index)
}

func TestClusterSameLineOrdersLeftToRight(t *testing.T) {
	// emitted right to left with a small baseline jitter
	runs := []geometry.ScreenRun{
		sr(0, "world", 80, 103, 40, 12),
		sr(1, "hello", 10, 100, 40, 12),
		sr(2, "big", 200, 108, 30, 12),
	}

	paragraphs := ClusterIntoParagraphs(runs)
	require.Len(t, paragraphs, 1)
	assert.Equal(t, []int{1, 0, 2}, indexes(paragraphs[0].Runs))
}

func TestClusterBoundingBox(t *testing.T) {
	runs := []geometry.ScreenRun{
		sr(0, "a", 10, 100, 50, 10),
		sr(1, "b", 20, 112, 70, 10),
	}

	paragraphs := ClusterIntoParagraphs(runs)
	require.Len(t, paragraphs, 1)

	bbox := paragraphs[0].BBox
	assert.Equal(t, 6.0, bbox.X0)
	assert.Equal(t, 98.0, bbox.Y0)
	assert.Equal(t, (90.0-10.0)+8, bbox.Width())
	assert.Equal(t, (122.0-100.0)+4, bbox.Height())
}

func TestClusterCompleteness(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(60)
		runs := make([]geometry.ScreenRun, n)
		for i := range runs {
			runs[i] = sr(i, "x", rng.Float64()*500, rng.Float64()*700, 5+rng.Float64()*80, 8+rng.Float64()*10)
		}

		paragraphs := ClusterIntoParagraphs(runs)

		seen := make(map[int]int)
		total := 0
		for _, p := range paragraphs {
			require.NotEmpty(t, p.Runs)
			total += len(p.Runs)
			for _, r := range p.Runs {
				seen[r.Index]++
			}
		}
		assert.Equal(t, n, total)
		for i := 0; i < n; i++ {
			assert.Equal(t, 1, seen[i], "run %d", i)
		}
	}
}

func TestClusterTunables(t *testing.T) {
	runs := []geometry.ScreenRun{
		sr(0, "a", 10, 100, 20, 10),
		sr(1, "b", 10, 115, 20, 10),
	}

	// gap of 5 is under 0.8*10
	assert.Len(t, NewParagraphClusterer().Cluster(runs), 1)
	// a tighter ratio splits it
	assert.Len(t, NewParagraphClusterer(WithGapRatio(0.4)).Cluster(runs), 2)

	c := NewParagraphClusterer(WithPadding(Padding{}))
	p := c.Cluster(runs)
	require.Len(t, p, 1)
	assert.Equal(t, 10.0, p[0].BBox.X0)
	assert.Equal(t, 100.0, p[0].BBox.Y0)
}

func TestClusterDoesNotMutateInput(t *testing.T) {
	runs := []geometry.ScreenRun{
		sr(0, "b", 50, 100, 20, 10),
		sr(1, "a", 10, 100, 20, 10),
	}
	ClusterIntoParagraphs(runs)
	assert.Equal(t, 0, runs[0].Index)
}

func TestParagraphText(t *testing.T) {
	runs := []geometry.ScreenRun{
		sr(0, "Hello ", 10, 100, 40, 10),
		sr(1, "world", 50, 100, 40, 10),
		sr(2, "again", 10, 112, 40, 10),
	}
	runs[1].EOL = true

	paragraphs := ClusterIntoParagraphs(runs)
	require.Len(t, paragraphs, 1)
	assert.Equal(t, "Hello world\nagain", paragraphs[0].Text())
}

func indexes(runs []geometry.ScreenRun) []int {
	out := make([]int, len(runs))
	for i, r := range runs {
		out[i] = r.Index
	}
	return out
}
