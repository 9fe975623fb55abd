// Package features rescales raw readings into the classifier's input domain.
package features

import (
	"gonum.org/v1/gonum/floats"

	"github.com/chrissnell/volcanomonitor/internal/constants"
	"github.com/chrissnell/volcanomonitor/internal/types"
)

// Vector is a normalized feature vector, one entry per sensor channel.
type Vector [constants.NumInputs]float64

// Calibration is the per-channel mean and standard deviation the model was
// trained with. Every Std entry must be non-zero; this is assumed, not checked.
type Calibration struct {
	mean [constants.NumInputs]float64
	std  [constants.NumInputs]float64
}

// NewCalibration copies mean and std into an immutable table.
func NewCalibration(mean, std [constants.NumInputs]float64) Calibration {
	return Calibration{mean: mean, std: std}
}

// DefaultCalibration returns the table the bundled model was trained against.
func DefaultCalibration() Calibration {
	return NewCalibration(
		[constants.NumInputs]float64{46.1278309654112, 3.9463028781206266, 0.40330585073749886, 3.5402061864530037},
		[constants.NumInputs]float64{8.117822112957583, 1.5429810468282663, 0.5938779722107673, 3.2940159341811683},
	)
}

// Mean returns a copy of the per-channel means.
func (c Calibration) Mean() [constants.NumInputs]float64 { return c.mean }

// Std returns a copy of the per-channel standard deviations.
func (c Calibration) Std() [constants.NumInputs]float64 { return c.std }

// Normalizer applies a Calibration to readings.
type Normalizer struct {
	cal Calibration
}

// NewNormalizer binds cal to a Normalizer.
func NewNormalizer(cal Calibration) *Normalizer {
	return &Normalizer{cal: cal}
}

// Normalize computes (raw[i] - mean[i]) / std[i] for every channel.
func (n *Normalizer) Normalize(r types.Reading) Vector {
	var v Vector
	floats.SubTo(v[:], r[:], n.cal.mean[:])
	floats.DivTo(v[:], v[:], n.cal.std[:])
	return v
}
