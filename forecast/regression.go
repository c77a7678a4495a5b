/*
regression.go - Least-squares regression over standardized features

PURPOSE:
  Fits days-to-pay against item features (amount, customer average delay,
  terms, transaction weekday, transaction month). The model is tiny by
  design: five features, ordinary least squares via the normal equations.

  Features are standardized (zero mean, unit variance) before fitting so
  the amount column does not dominate the weekday column. A fitted model
  is immutable; the predictor swaps whole snapshots atomically.

SEE ALSO:
  - predictor.go: Builds feature rows and owns the model lifecycle
*/
package forecast

import (
	"errors"
	"math"
	"time"
)

// regressor is the inference surface the predictor relies on. The
// concrete implementation is linearModel; tests substitute stubs to
// verify batch alignment.
type regressor interface {
	predictOne(row []float64) float64
	predictBatch(rows [][]float64) []float64
	score() float64
}

var errSingularFit = errors.New("regression: singular system, cannot fit")

// linearModel is an immutable fitted regression snapshot.
type linearModel struct {
	weights   []float64 // one per standardized feature
	intercept float64
	means     []float64
	scales    []float64
	r2        float64
	samples   int
	trainedAt time.Time
}

// fitLinearModel fits y ~ X by ordinary least squares on standardized
// columns. rows must be rectangular and non-empty.
func fitLinearModel(rows [][]float64, targets []float64) (*linearModel, error) {
	n := len(rows)
	if n == 0 || n != len(targets) {
		return nil, errSingularFit
	}
	k := len(rows[0])

	// Standardize each column.
	means := make([]float64, k)
	scales := make([]float64, k)
	for j := 0; j < k; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += rows[i][j]
		}
		means[j] = sum / float64(n)

		var ss float64
		for i := 0; i < n; i++ {
			d := rows[i][j] - means[j]
			ss += d * d
		}
		scales[j] = math.Sqrt(ss / float64(n))
		if scales[j] == 0 {
			scales[j] = 1 // constant column contributes nothing
		}
	}

	std := make([][]float64, n)
	for i := 0; i < n; i++ {
		std[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			std[i][j] = (rows[i][j] - means[j]) / scales[j]
		}
	}

	// Normal equations with an intercept column: (A^T A) w = A^T y
	// where A = [std | 1].
	dim := k + 1
	ata := make([][]float64, dim)
	aty := make([]float64, dim)
	for i := range ata {
		ata[i] = make([]float64, dim)
	}
	for i := 0; i < n; i++ {
		row := append(append([]float64{}, std[i]...), 1)
		for a := 0; a < dim; a++ {
			aty[a] += row[a] * targets[i]
			for b := 0; b < dim; b++ {
				ata[a][b] += row[a] * row[b]
			}
		}
	}

	// A constant column standardizes to all zeros and would make the
	// system singular; a tiny ridge term on the feature diagonal keeps
	// such columns (and exact collinearity) solvable with weight ~0.
	const ridge = 1e-8
	for j := 0; j < k; j++ {
		ata[j][j] += ridge
	}

	sol, err := solveLinearSystem(ata, aty)
	if err != nil {
		return nil, err
	}

	m := &linearModel{
		weights:   sol[:k],
		intercept: sol[k],
		means:     means,
		scales:    scales,
		samples:   n,
		trainedAt: time.Now(),
	}
	m.r2 = rSquared(m, rows, targets)
	return m, nil
}

// solveLinearSystem solves Ax = b by Gaussian elimination with partial
// pivoting. A and b are mutated.
func solveLinearSystem(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	for col := 0; col < n; col++ {
		// Pivot on the largest remaining magnitude.
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, errSingularFit
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * x[c]
		}
		x[r] = sum / a[r][r]
	}
	return x, nil
}

// rSquared is the coefficient of determination on the training set.
// A constant target fits perfectly, so zero variance scores 1.
func rSquared(m *linearModel, rows [][]float64, targets []float64) float64 {
	n := len(targets)
	var mean float64
	for _, y := range targets {
		mean += y
	}
	mean /= float64(n)

	var ssTot, ssRes float64
	for i, y := range targets {
		pred := m.predictOne(rows[i])
		ssRes += (y - pred) * (y - pred)
		ssTot += (y - mean) * (y - mean)
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}

func (m *linearModel) predictOne(row []float64) float64 {
	pred := m.intercept
	for j, w := range m.weights {
		if j >= len(row) {
			break
		}
		pred += w * (row[j] - m.means[j]) / m.scales[j]
	}
	return pred
}

func (m *linearModel) predictBatch(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = m.predictOne(row)
	}
	return out
}

func (m *linearModel) score() float64 { return m.r2 }
