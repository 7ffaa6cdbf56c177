package ml

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/regforecast/backend/pkg/utils"
)

// denseLayer is a fully connected layer with optional ReLU activation.
// weights is out x in; gradients share its shape.
type denseLayer struct {
	in, out int
	relu    bool
	weights *mat.Dense
	biases  *mat.VecDense
	gradW   *mat.Dense
	gradB   *mat.VecDense
	delta   *mat.VecDense
}

func newDenseLayer(in, out int, relu bool, rng *rand.Rand) *denseLayer {
	// Glorot uniform, zero biases
	limit := math.Sqrt(6 / float64(in+out))
	w := make([]float64, in*out)
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * limit
	}
	return &denseLayer{
		in:      in,
		out:     out,
		relu:    relu,
		weights: mat.NewDense(out, in, w),
		biases:  mat.NewVecDense(out, nil),
		gradW:   mat.NewDense(out, in, nil),
		gradB:   mat.NewVecDense(out, nil),
		delta:   mat.NewVecDense(out, nil),
	}
}

func (l *denseLayer) forward(input, output *mat.VecDense) {
	output.MulVec(l.weights, input)
	output.AddVec(output, l.biases)
	if !l.relu {
		return
	}
	for o := 0; o < l.out; o++ {
		if output.AtVec(o) < 0 {
			output.SetVec(o, 0)
		}
	}
}

// backward accumulates parameter gradients from dOut (gradient w.r.t. the
// activated output) and writes the gradient w.r.t. the input into dIn.
func (l *denseLayer) backward(input, output, dOut, dIn *mat.VecDense) {
	for o := 0; o < l.out; o++ {
		g := dOut.AtVec(o)
		if l.relu && output.AtVec(o) <= 0 {
			g = 0
		}
		l.delta.SetVec(o, g)
	}
	l.gradB.AddVec(l.gradB, l.delta)
	l.gradW.RankOne(l.gradW, 1, l.delta, input)
	dIn.MulVec(l.weights.T(), l.delta)
}

func (l *denseLayer) zeroGrad() {
	l.gradW.Zero()
	l.gradB.Zero()
}

// network is a feed-forward stack of dense layers with scalar input and output
type network struct {
	layers []*denseLayer
	acts   []*mat.VecDense // acts[k] is the input of layers[k]; the last entry is the output
	deltas []*mat.VecDense
}

func newNetwork(hidden []int, rng *rand.Rand) *network {
	sizes := append([]int{1}, hidden...)
	sizes = append(sizes, 1)

	n := &network{}
	for k := 0; k < len(sizes)-1; k++ {
		relu := k < len(sizes)-2
		n.layers = append(n.layers, newDenseLayer(sizes[k], sizes[k+1], relu, rng))
	}
	for _, s := range sizes {
		n.acts = append(n.acts, mat.NewVecDense(s, nil))
		n.deltas = append(n.deltas, mat.NewVecDense(s, nil))
	}
	return n
}

// forward runs x through the network using the shared training buffers
func (n *network) forward(x float64) float64 {
	n.acts[0].SetVec(0, x)
	for k, l := range n.layers {
		l.forward(n.acts[k], n.acts[k+1])
	}
	return n.acts[len(n.acts)-1].AtVec(0)
}

// backward propagates dLoss/dOutput and accumulates gradients for the
// activations left by the preceding forward call.
func (n *network) backward(dOutput float64) {
	last := len(n.acts) - 1
	n.deltas[last].SetVec(0, dOutput)
	for k := len(n.layers) - 1; k >= 0; k-- {
		n.layers[k].backward(n.acts[k], n.acts[k+1], n.deltas[k+1], n.deltas[k])
	}
}

func (n *network) zeroGrad() {
	for _, l := range n.layers {
		l.zeroGrad()
	}
}

// params returns the backing storage of every parameter paired index-wise
// with its gradient. Updating the slices updates the layers in place.
func (n *network) params() (params, grads [][]float64) {
	for _, l := range n.layers {
		params = append(params, l.weights.RawMatrix().Data, l.biases.RawVector().Data)
		grads = append(grads, l.gradW.RawMatrix().Data, l.gradB.RawVector().Data)
	}
	return params, grads
}

func (n *network) finite() bool {
	params, _ := n.params()
	for _, p := range params {
		for _, w := range p {
			if !utils.IsFinite(w) {
				return false
			}
		}
	}
	return true
}

// Predict evaluates the network with private buffers; safe for concurrent use
// once training has finished.
func (n *network) Predict(x float64) float64 {
	in := mat.NewVecDense(1, []float64{x})
	for _, l := range n.layers {
		out := mat.NewVecDense(l.out, nil)
		l.forward(in, out)
		in = out
	}
	return in.AtVec(0)
}

// adam is the Adam optimizer over a fixed set of parameter slices
type adam struct {
	lr, beta1, beta2, eps float64
	step                  int
	m, v                  [][]float64
}

func newAdam(lr, beta1, beta2, eps float64, params [][]float64) *adam {
	a := &adam{lr: lr, beta1: beta1, beta2: beta2, eps: eps}
	for _, p := range params {
		a.m = append(a.m, make([]float64, len(p)))
		a.v = append(a.v, make([]float64, len(p)))
	}
	return a
}

func (a *adam) update(params, grads [][]float64) {
	a.step++
	t := float64(a.step)
	// Kingma & Ba section 2 efficient form: bias correction folded into the
	// step size, eps added to the uncorrected sqrt(v).
	lrT := a.lr * math.Sqrt(1-math.Pow(a.beta2, t)) / (1 - math.Pow(a.beta1, t))

	for k, p := range params {
		g := grads[k]
		m := a.m[k]
		v := a.v[k]
		for i := range p {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g[i]
			v[i] = a.beta2*v[i] + (1-a.beta2)*g[i]*g[i]
			p[i] -= lrT * m[i] / (math.Sqrt(v[i]) + a.eps)
		}
	}
}
