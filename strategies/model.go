package strategies

import (
	"context"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/backtester/market"
)

// Model is a softmax-linear classifier over snapshot features. Features are
// taken per symbol in sorted order as close, volume, high-low, close-open,
// then cut or zero padded to FeatureCount.
//
// A model file is YAML (or JSON):
//
//	classes: [BUY, SELL, HOLD]
//	feature_count: 4
//	weights:
//	  - [0.5, 0, 1, 2]
//	  - [-0.5, 0, -1, -2]
//	  - [0, 0, 0, 0]
//	bias: [0, 0, 0.1]
//	symbol: EURUSD
type Model struct {
	ID           string      `yaml:"-"`
	Classes      []string    `yaml:"classes"`
	FeatureCount int         `yaml:"feature_count"`
	Weights      [][]float64 `yaml:"weights"`
	Bias         []float64   `yaml:"bias"`
	Symbol       string      `yaml:"symbol"`

	actions []market.Action
}

// LoadModel reads and validates a model file.
func LoadModel(id, path string) (*Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m Model
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	m.ID = id
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks the shapes and resolves class names to actions.
func (m *Model) Validate() error {
	if len(m.Classes) == 0 {
		m.Classes = []string{"BUY", "SELL", "HOLD"}
	}
	if m.FeatureCount <= 0 {
		return fmt.Errorf("feature_count must be positive")
	}
	if len(m.Weights) != len(m.Classes) {
		return fmt.Errorf("weights has %d rows, want %d", len(m.Weights), len(m.Classes))
	}
	for i, row := range m.Weights {
		if len(row) != m.FeatureCount {
			return fmt.Errorf("weights row %d has %d columns, want %d", i, len(row), m.FeatureCount)
		}
	}
	if len(m.Bias) == 0 {
		m.Bias = make([]float64, len(m.Classes))
	}
	if len(m.Bias) != len(m.Classes) {
		return fmt.Errorf("bias has %d entries, want %d", len(m.Bias), len(m.Classes))
	}

	m.actions = make([]market.Action, len(m.Classes))
	for i, c := range m.Classes {
		a, err := market.ParseAction(c)
		if err != nil {
			return err
		}
		m.actions[i] = a
	}
	m.Symbol = market.NormalizeSymbol(m.Symbol)
	return nil
}

func (m *Model) Name() string { return m.ID }

func (m *Model) Predict(ctx context.Context, snap market.Snapshot) (market.Signal, error) {
	if len(snap) == 0 {
		return market.HoldSignal(), nil
	}
	symbol := m.Symbol
	if symbol == "" {
		symbol = snap.Symbols()[0]
	}
	if _, ok := snap[symbol]; !ok {
		return market.HoldSignal(), nil
	}

	probs := m.Probabilities(m.Features(snap))
	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return market.Signal{
		Symbol:     symbol,
		Action:     m.actions[best],
		Confidence: probs[best],
		Reason:     m.Classes[best],
	}, nil
}

// Features flattens the snapshot into the model's input vector.
func (m *Model) Features(snap market.Snapshot) []float64 {
	x := make([]float64, 0, 4*len(snap))
	for _, sym := range snap.Symbols() {
		if m.Symbol != "" && sym != m.Symbol {
			continue
		}
		q := snap[sym]
		x = append(x, q.Close, q.Volume, q.High-q.Low, q.Close-q.Open)
	}
	if len(x) >= m.FeatureCount {
		return x[:m.FeatureCount]
	}
	return append(x, make([]float64, m.FeatureCount-len(x))...)
}

// Probabilities applies the linear layer and a softmax.
func (m *Model) Probabilities(x []float64) []float64 {
	logits := make([]float64, len(m.Weights))
	maxLogit := math.Inf(-1)
	for i, row := range m.Weights {
		z := m.Bias[i]
		for j, w := range row {
			z += w * x[j]
		}
		logits[i] = z
		maxLogit = math.Max(maxLogit, z)
	}

	var sum float64
	for i, z := range logits {
		logits[i] = math.Exp(z - maxLogit)
		sum += logits[i]
	}
	for i := range logits {
		logits[i] /= sum
	}
	return logits
}
