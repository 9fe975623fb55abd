// Package classifier runs the pre-trained risk model over normalized features.
package classifier

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"

	"github.com/chrissnell/volcanomonitor/internal/constants"
	"github.com/chrissnell/volcanomonitor/internal/features"
)

//go:embed models/volcano.msgpack
var defaultModel []byte

// DefaultModel returns the bundled model blob.
func DefaultModel() []byte {
	blob := make([]byte, len(defaultModel))
	copy(blob, defaultModel)
	return blob
}

var (
	// ErrNotReady is returned by Predict before a successful Init.
	ErrNotReady = errors.New("classifier not initialized")
	// ErrInvalidModel wraps every reason a model blob is rejected.
	ErrInvalidModel = errors.New("invalid model")
	// ErrInference is returned when a prediction is not a finite number.
	ErrInference = errors.New("inference failed")
)

// Classifier maps a normalized feature vector to a risk score.
type Classifier interface {
	Init(modelBlob []byte) error
	Predict(v features.Vector) (float64, error)
}

// Model is the on-disk description of a dense feed-forward network,
// serialized as MessagePack.
type Model struct {
	Name    string  `msgpack:"name"`
	Inputs  int     `msgpack:"inputs"`
	Outputs int     `msgpack:"outputs"`
	Layers  []Layer `msgpack:"layers"`
}

// Layer is one fully connected layer. Weights has one row per output unit and
// one column per input unit.
type Layer struct {
	Weights    [][]float64 `msgpack:"weights"`
	Bias       []float64   `msgpack:"bias"`
	Activation string      `msgpack:"activation"`
}

// EncodeModel serializes m into a blob Init accepts.
func EncodeModel(m Model) ([]byte, error) {
	return msgpack.Marshal(&m)
}

type denseLayer struct {
	w   *mat.Dense
	b   *mat.VecDense
	act func(float64) float64
}

// Network evaluates a Model with gonum.
type Network struct {
	name      string
	workspace int
	layers    []denseLayer
}

// NewNetwork returns an uninitialized network limited to workspace bytes of
// parameters. A workspace of zero selects constants.WorkspaceSize.
func NewNetwork(workspace int) *Network {
	if workspace <= 0 {
		workspace = constants.WorkspaceSize
	}
	return &Network{workspace: workspace}
}

// Name returns the loaded model's name.
func (n *Network) Name() string {
	return n.name
}

// Init decodes and validates modelBlob. On failure the network stays unready.
func (n *Network) Init(modelBlob []byte) error {
	var m Model
	if err := msgpack.Unmarshal(modelBlob, &m); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrInvalidModel, err)
	}

	if m.Inputs != constants.NumInputs {
		return fmt.Errorf("%w: model takes %d inputs, device provides %d", ErrInvalidModel, m.Inputs, constants.NumInputs)
	}
	if m.Outputs != constants.NumOutputs {
		return fmt.Errorf("%w: model has %d outputs, expected %d", ErrInvalidModel, m.Outputs, constants.NumOutputs)
	}
	if len(m.Layers) == 0 {
		return fmt.Errorf("%w: no layers", ErrInvalidModel)
	}

	params := 0
	width := m.Inputs
	layers := make([]denseLayer, 0, len(m.Layers))
	for i, l := range m.Layers {
		rows := len(l.Weights)
		if rows == 0 {
			return fmt.Errorf("%w: layer %d has no units", ErrInvalidModel, i)
		}
		if len(l.Bias) != rows {
			return fmt.Errorf("%w: layer %d has %d biases for %d units", ErrInvalidModel, i, len(l.Bias), rows)
		}

		act, ok := activations[strings.ToLower(l.Activation)]
		if !ok {
			return fmt.Errorf("%w: layer %d has unknown activation %q", ErrInvalidModel, i, l.Activation)
		}

		data := make([]float64, 0, rows*width)
		for r, row := range l.Weights {
			if len(row) != width {
				return fmt.Errorf("%w: layer %d row %d has %d weights, expected %d", ErrInvalidModel, i, r, len(row), width)
			}
			data = append(data, row...)
		}

		params += rows*width + rows
		layers = append(layers, denseLayer{
			w:   mat.NewDense(rows, width, data),
			b:   mat.NewVecDense(rows, append([]float64(nil), l.Bias...)),
			act: act,
		})
		width = rows
	}

	if width != m.Outputs {
		return fmt.Errorf("%w: final layer has %d units, expected %d", ErrInvalidModel, width, m.Outputs)
	}
	if need := params * 8; need > n.workspace {
		return fmt.Errorf("%w: model needs %d bytes, workspace is %d", ErrInvalidModel, need, n.workspace)
	}

	n.name = m.Name
	n.layers = layers
	return nil
}

// Predict runs a forward pass and returns the single output unit.
func (n *Network) Predict(v features.Vector) (float64, error) {
	if len(n.layers) == 0 {
		return 0, ErrNotReady
	}

	x := mat.NewVecDense(len(v), append([]float64(nil), v[:]...))
	for _, l := range n.layers {
		rows, _ := l.w.Dims()
		out := mat.NewVecDense(rows, nil)
		out.MulVec(l.w, x)
		out.AddVec(out, l.b)
		for i := 0; i < rows; i++ {
			out.SetVec(i, l.act(out.AtVec(i)))
		}
		x = out
	}

	score := x.AtVec(0)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("%w: non-finite score %v", ErrInference, score)
	}
	return score, nil
}

var activations = map[string]func(float64) float64{
	"":       identity,
	"linear": identity,
	"relu": func(x float64) float64 {
		return math.Max(0, x)
	},
	"sigmoid": func(x float64) float64 {
		return 1 / (1 + math.Exp(-x))
	},
	"tanh": math.Tanh,
}

func identity(x float64) float64 { return x }
