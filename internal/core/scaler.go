package core

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"farm_service/internal/domain/model"
)

// StandardScaler centres each feature on its training mean and divides by
// its population standard deviation.
type StandardScaler struct {
	Mean  [model.NumFeatures]float64
	Scale [model.NumFeatures]float64
}

// FitScaler learns per-feature mean and scale from rows.
func FitScaler(rows [][model.NumFeatures]float64) (*StandardScaler, error) {
	if len(rows) == 0 {
		return nil, errors.New("cannot fit scaler on empty data")
	}
	s := &StandardScaler{}
	column := make([]float64, len(rows))
	for j := 0; j < model.NumFeatures; j++ {
		for i, row := range rows {
			column[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s, nil
}

// Transform scales a single row.
func (s *StandardScaler) Transform(row [model.NumFeatures]float64) [model.NumFeatures]float64 {
	var out [model.NumFeatures]float64
	for j := range row {
		out[j] = (row[j] - s.Mean[j]) / s.Scale[j]
	}
	return out
}

// TransformAll scales every row into a new slice.
func (s *StandardScaler) TransformAll(rows [][model.NumFeatures]float64) [][model.NumFeatures]float64 {
	out := make([][model.NumFeatures]float64, len(rows))
	for i, row := range rows {
		out[i] = s.Transform(row)
	}
	return out
}
