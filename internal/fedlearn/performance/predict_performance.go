package performance

import (
	"math"
)

// ConvergencePrediction extrapolates the recorded per-round accuracy and loss
// series to answer "what will round k look like" and "which round reaches
// this target", used by the stats surface.
type ConvergencePrediction struct {
	regressionFunctionAccuracies Regression
	regressionFunctionLosses     Regression
}

func NewConvergencePrediction(accuracies []float64, losses []float64) (*ConvergencePrediction, error) {
	accXs, accYs := prepareXAndY(accuracies)
	lossXs, lossYs := prepareXAndY(losses)

	accReg, err := NewLogarithmicRegression(accXs, accYs)
	if err != nil {
		return nil, err
	}
	lossReg, err := NewLogarithmicRegression(lossXs, lossYs)
	if err != nil {
		return nil, err
	}

	return &ConvergencePrediction{
		regressionFunctionAccuracies: accReg,
		regressionFunctionLosses:     lossReg,
	}, nil
}

func (cp *ConvergencePrediction) PredictAccuracy(round int) float64 {
	return cp.regressionFunctionAccuracies.PredictY(float64(round))
}

func (cp *ConvergencePrediction) PredictRoundForAccuracy(accuracy float64) int {
	return int(math.Ceil(cp.regressionFunctionAccuracies.PredictX(accuracy)))
}

func (cp *ConvergencePrediction) PredictLoss(round int) float64 {
	return cp.regressionFunctionLosses.PredictY(float64(round))
}

func (cp *ConvergencePrediction) PredictRoundForLoss(loss float64) int {
	return int(math.Ceil(cp.regressionFunctionLosses.PredictX(loss)))
}

func (cp *ConvergencePrediction) PrintPrediction() string {
	return cp.regressionFunctionAccuracies.PrintFunction()
}

func prepareXAndY(values []float64) ([]float64, []float64) {
	xs := make([]float64, len(values))
	ys := make([]float64, len(values))

	for i, value := range values {
		xs[i] = float64(i + 1)
		ys[i] = value
	}

	return xs, ys
}
