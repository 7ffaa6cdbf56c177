package ml

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/regforecast/backend/internal/domain"
	"github.com/regforecast/backend/pkg/utils"
)

// NeuralConfig holds the architecture and optimizer settings of NeuralTrainer
type NeuralConfig struct {
	Hidden       []int
	Epochs       int
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	// Seed fixes weight initialization; zero seeds from the clock
	Seed int64
}

// DefaultNeuralConfig returns the 64/32 ReLU network trained with Adam(0.01) for 500 epochs
func DefaultNeuralConfig() NeuralConfig {
	return NeuralConfig{
		Hidden:       []int{64, 32},
		Epochs:       500,
		LearningRate: 0.01,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
	}
}

// NeuralTrainer fits a feed-forward regression network with full-batch Adam
type NeuralTrainer struct {
	cfg NeuralConfig
}

// NewNeuralTrainer creates a trainer, filling unset fields from DefaultNeuralConfig
func NewNeuralTrainer(cfg NeuralConfig) *NeuralTrainer {
	def := DefaultNeuralConfig()
	if len(cfg.Hidden) == 0 {
		cfg.Hidden = def.Hidden
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = def.Epochs
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.Beta1 <= 0 {
		cfg.Beta1 = def.Beta1
	}
	if cfg.Beta2 <= 0 {
		cfg.Beta2 = def.Beta2
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = def.Epsilon
	}
	return &NeuralTrainer{cfg: cfg}
}

// Name identifies the backend
func (t *NeuralTrainer) Name() string { return "neural" }

// Train fits the network on samples and returns the model with its final epoch loss
func (t *NeuralTrainer) Train(ctx context.Context, samples []domain.Sample) (*TrainedModel, error) {
	ts, err := prepare(samples)
	if err != nil {
		return nil, fmt.Errorf("neural: failed to prepare samples: %w", err)
	}

	seed := t.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	net := newNetwork(t.cfg.Hidden, rand.New(rand.NewSource(seed)))
	params, grads := net.params()
	opt := newAdam(t.cfg.LearningRate, t.cfg.Beta1, t.cfg.Beta2, t.cfg.Epsilon, params)

	n := float64(len(ts.xs))
	var loss float64
	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		net.zeroGrad()
		loss = 0
		for i, x := range ts.xs {
			diff := net.forward(x) - ts.ys[i]
			loss += diff * diff
			net.backward(2 * diff / n)
		}
		loss /= n

		if !utils.IsFinite(loss) {
			return nil, fmt.Errorf("%w: loss %v at epoch %d", domain.ErrDivergence, loss, epoch+1)
		}
		opt.update(params, grads)
	}

	if !net.finite() {
		return nil, fmt.Errorf("%w: non-finite weights after epoch %d", domain.ErrDivergence, t.cfg.Epochs)
	}

	return &TrainedModel{
		Regressor:     net,
		YearParams:    ts.yearParams,
		ValueParams:   ts.valueParams,
		TrainingError: loss,
		Backend:       t.Name(),
	}, nil
}
