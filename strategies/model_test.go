package strategies

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rustyeddy/backtester/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModelYAML = `
classes: [BUY, SELL, HOLD]
feature_count: 4
weights:
  - [10, 0, 0, 0]
  - [-10, 0, 0, 0]
  - [0, 0, 0, 0]
bias: [-11, 11, 0]
symbol: EURUSD
`

func writeModel(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestModelPredict(t *testing.T) {
	m, err := LoadModel("m", writeModel(t, testModelYAML))
	require.NoError(t, err)
	ctx := context.Background()

	// close 2.0: logits BUY=9, SELL=-9, HOLD=0
	sig, err := m.Predict(ctx, snapshotAt(t0, map[string]float64{"EURUSD": 2.0}))
	require.NoError(t, err)
	assert.Equal(t, market.Buy, sig.Action)
	assert.Equal(t, "EURUSD", sig.Symbol)
	assert.Greater(t, sig.Confidence, 0.99)

	// close 0.5: logits BUY=-6, SELL=6, HOLD=0
	sig, err = m.Predict(ctx, snapshotAt(t0, map[string]float64{"EURUSD": 0.5}))
	require.NoError(t, err)
	assert.Equal(t, market.Sell, sig.Action)

	// close 1.1: logits BUY=0, SELL=0, HOLD=0 => first max wins
	sig, err = m.Predict(ctx, snapshotAt(t0, map[string]float64{"EURUSD": 1.1}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, sig.Confidence, 1e-6)

	// symbol not in snapshot
	sig, err = m.Predict(ctx, snapshotAt(t0, map[string]float64{"GBPUSD": 2.0}))
	require.NoError(t, err)
	assert.Equal(t, market.Hold, sig.Action)
}

func TestModelFeatures(t *testing.T) {
	m := &Model{FeatureCount: 10, Weights: make([][]float64, 3), Classes: []string{"BUY", "SELL", "HOLD"}}
	snap := market.Snapshot{
		"GBPUSD": market.Quote{Open: 1.0, High: 1.5, Low: 0.5, Close: 1.2, Volume: 7},
		"EURUSD": market.Quote{Open: 2.0, High: 2.5, Low: 1.5, Close: 2.2, Volume: 3},
	}

	x := m.Features(snap)
	require.Len(t, x, 10)
	assert.InDeltaSlice(t, []float64{2.2, 3, 1.0, 0.2, 1.2, 7, 1.0, 0.2, 0, 0}, x, 1e-9)

	m.FeatureCount = 3
	assert.InDeltaSlice(t, []float64{2.2, 3, 1.0}, m.Features(snap), 1e-9)
}

func TestModelProbabilitiesSumToOne(t *testing.T) {
	m := &Model{
		Weights: [][]float64{{1000}, {-1000}, {0}},
		Bias:    []float64{0, 0, 0},
	}
	p := m.Probabilities([]float64{5})
	var sum float64
	for _, v := range p {
		assert.False(t, math.IsNaN(v))
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestLoadModelErrors(t *testing.T) {
	_, err := LoadModel("m", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadModel("m", writeModel(t, "feature_count: 0\n"))
	assert.Error(t, err)

	_, err = LoadModel("m", writeModel(t, "feature_count: 2\nweights: [[1, 2]]\n"))
	assert.Error(t, err)

	_, err = LoadModel("m", writeModel(t, "classes: [UP, DOWN]\nfeature_count: 1\nweights: [[1], [2]]\n"))
	assert.Error(t, err)

	_, err = LoadModel("m", writeModel(t, "feature_count: 1\nweights: [[1], [2], [3]]\nbias: [1]\n"))
	assert.Error(t, err)
}

func TestLoadModelJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	body := `{"feature_count": 1, "weights": [[1], [-1], [0]]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	m, err := LoadModel("j", path)
	require.NoError(t, err)
	assert.Equal(t, []string{"BUY", "SELL", "HOLD"}, m.Classes)
	assert.Equal(t, []float64{0, 0, 0}, m.Bias)
}
