package strategies

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rustyeddy/backtester/market"
)

// DefaultSubprocessTimeout bounds a single prediction by an external program.
const DefaultSubprocessTimeout = 5 * time.Second

// Subprocess runs an external program once per prediction. The program gets
//
//	{"market_data": {...snapshot...}, "parameters": {...}}
//
// on stdin and must print {"signal": "BUY|SELL|HOLD", "confidence": 0.8}
// (optionally "symbol" and "quantity") on stdout.
type Subprocess struct {
	ID      string
	Path    string
	Args    []string
	Params  Params
	Timeout time.Duration
}

type subprocessInput struct {
	MarketData market.Snapshot `json:"market_data"`
	Parameters Params          `json:"parameters"`
}

type subprocessOutput struct {
	Signal     string  `json:"signal"`
	Confidence float64 `json:"confidence"`
	Symbol     string  `json:"symbol"`
	Quantity   float64 `json:"quantity"`
}

func NewSubprocess(id, path string, params Params) *Subprocess {
	return &Subprocess{
		ID:      id,
		Path:    path,
		Params:  params,
		Timeout: DefaultSubprocessTimeout,
	}
}

func (s *Subprocess) Name() string { return s.ID }

func (s *Subprocess) Predict(ctx context.Context, snap market.Snapshot) (market.Signal, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultSubprocessTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	in, err := json.Marshal(subprocessInput{MarketData: snap, Parameters: s.Params})
	if err != nil {
		return market.Signal{}, fmt.Errorf("%s: encode input: %w", s.ID, err)
	}

	cmd := exec.CommandContext(ctx, s.Path, s.Args...)
	cmd.Stdin = bytes.NewReader(in)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return market.Signal{}, fmt.Errorf("%s: timed out after %s", s.ID, timeout)
		}
		return market.Signal{}, fmt.Errorf("%s: %w: %s", s.ID, err, strings.TrimSpace(stderr.String()))
	}

	var out subprocessOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return market.Signal{}, fmt.Errorf("%s: decode output: %w", s.ID, err)
	}
	action, err := market.ParseAction(out.Signal)
	if err != nil {
		return market.Signal{}, fmt.Errorf("%s: %w", s.ID, err)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return market.Signal{}, fmt.Errorf("%s: confidence %v out of range", s.ID, out.Confidence)
	}

	return market.Signal{
		Symbol:     market.NormalizeSymbol(out.Symbol),
		Action:     action,
		Confidence: out.Confidence,
		Quantity:   out.Quantity,
	}, nil
}
