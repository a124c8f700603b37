package classifier

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronoview/internal/compare"
	"chronoview/pkg/models"
)

var classifyKey = models.TargetKey{Component: "checkout", Viewport: "mobile"}

type fakeHistory struct {
	entry *models.HistoryEntry
}

func (f *fakeHistory) MostRecentSuccessful(models.TargetKey) (*models.HistoryEntry, bool) {
	if f.entry == nil {
		return nil, false
	}
	return f.entry, true
}

type fakeComparer struct {
	pct     float64
	err     error
	invoked bool
}

func (f *fakeComparer) CompareAgainst(context.Context, image.Image, string) (*compare.DiffResult, error) {
	f.invoked = true
	if f.err != nil {
		return nil, f.err
	}
	return &compare.DiffResult{Percentage: f.pct}, nil
}

func priorEntry() *models.HistoryEntry {
	return &models.HistoryEntry{Key: classifyKey, Status: models.StatusMatch, TestRasterRef: "/artifacts/prior.png"}
}

func testRaster() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 1, 1))
}

func TestClassify_WithinNoiseThresholdIsMatch(t *testing.T) {
	comparer := &fakeComparer{}
	c := New(DefaultConfig(), &fakeHistory{entry: priorEntry()}, comparer)

	outcome := c.Classify(context.Background(), classifyKey, testRaster(), 3.8)

	assert.Equal(t, models.StatusMatch, outcome.Status)
	assert.Equal(t, 3.8, outcome.PrimaryDiffPct)
	assert.Nil(t, outcome.SecondaryDiffPct)
	assert.False(t, comparer.invoked, "secondary pass must not run for matches")
}

func TestClassify_ThresholdBoundaryIsInclusive(t *testing.T) {
	c := New(DefaultConfig(), &fakeHistory{}, &fakeComparer{})

	outcome := c.Classify(context.Background(), classifyKey, testRaster(), 4.0)

	assert.Equal(t, models.StatusMatch, outcome.Status)
}

func TestClassify_NoHistoryIsSignificant(t *testing.T) {
	comparer := &fakeComparer{}
	c := New(DefaultConfig(), &fakeHistory{}, comparer)

	outcome := c.Classify(context.Background(), classifyKey, testRaster(), 5.0)

	assert.Equal(t, models.StatusSignificant, outcome.Status)
	assert.Nil(t, outcome.SecondaryDiffPct)
	assert.False(t, comparer.invoked)
}

func TestClassify_DriftExplainsDeviation(t *testing.T) {
	comparer := &fakeComparer{pct: 0.5}
	c := New(DefaultConfig(), &fakeHistory{entry: priorEntry()}, comparer)

	outcome := c.Classify(context.Background(), classifyKey, testRaster(), 5.0)

	assert.Equal(t, models.StatusNoise, outcome.Status)
	require.NotNil(t, outcome.SecondaryDiffPct)
	assert.Equal(t, 0.5, *outcome.SecondaryDiffPct)
	assert.True(t, comparer.invoked)
}

func TestClassify_DiffersFromRecentCaptureToo(t *testing.T) {
	comparer := &fakeComparer{pct: 3.0}
	c := New(DefaultConfig(), &fakeHistory{entry: priorEntry()}, comparer)

	outcome := c.Classify(context.Background(), classifyKey, testRaster(), 5.0)

	assert.Equal(t, models.StatusSignificant, outcome.Status)
	require.NotNil(t, outcome.SecondaryDiffPct)
	assert.Equal(t, 3.0, *outcome.SecondaryDiffPct)
}

func TestClassify_SecondaryErrorShortCircuits(t *testing.T) {
	comparer := &fakeComparer{err: assert.AnError}
	c := New(DefaultConfig(), &fakeHistory{entry: priorEntry()}, comparer)

	outcome := c.Classify(context.Background(), classifyKey, testRaster(), 5.0)

	assert.Equal(t, models.StatusError, outcome.Status)
	assert.ErrorIs(t, outcome.Err, assert.AnError)
	assert.Equal(t, 5.0, outcome.PrimaryDiffPct, "the computed primary percentage is preserved")
	assert.Nil(t, outcome.SecondaryDiffPct)
}
