package forecast

import "math"

// Scaler standardizes feature vectors to zero mean and unit variance per
// column. Fitted on the training matrix and reapplied unchanged at prediction
// time so future dates are scaled into the same space the model learned.
type Scaler struct {
	mean []float64
	std  []float64
}

// FitScaler computes per-column mean and standard deviation. Columns with
// zero variance get a standard deviation of 1 so transforming them yields 0
// instead of dividing by zero.
func FitScaler(samples [][]float64) *Scaler {
	if len(samples) == 0 {
		return &Scaler{}
	}
	cols := len(samples[0])
	s := &Scaler{
		mean: make([]float64, cols),
		std:  make([]float64, cols),
	}

	for _, row := range samples {
		for j, v := range row {
			s.mean[j] += v
		}
	}
	n := float64(len(samples))
	for j := range s.mean {
		s.mean[j] /= n
	}

	for _, row := range samples {
		for j, v := range row {
			d := v - s.mean[j]
			s.std[j] += d * d
		}
	}
	for j := range s.std {
		s.std[j] = math.Sqrt(s.std[j] / n)
		if s.std[j] == 0 {
			s.std[j] = 1
		}
	}
	return s
}

// Transform returns the standardized copy of one feature vector.
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.mean[j]) / s.std[j]
	}
	return out
}

// TransformAll standardizes a whole matrix.
func (s *Scaler) TransformAll(samples [][]float64) [][]float64 {
	out := make([][]float64, len(samples))
	for i, row := range samples {
		out[i] = s.Transform(row)
	}
	return out
}
