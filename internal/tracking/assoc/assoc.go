// Package assoc associates predicted track positions with candidate
// measurements by solving a minimum-cost assignment problem.
//
// Cost matrices are laid out with candidates as rows and tracks as
// columns, so a single track yields an N×1 matrix. The solver itself is
// fully rectangular.
package assoc

import (
	"errors"
	"math"

	"github.com/banshee-data/radartrack/internal/radar"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNoCandidates is returned when there is nothing to associate.
	ErrNoCandidates = errors.New("assoc: no candidate measurements")
	// ErrInvalidCost is returned for NaN entries in a cost matrix.
	ErrInvalidCost = errors.New("assoc: cost matrix contains NaN")
)

// BuildCostMatrix returns the Euclidean distance between every candidate
// (row) and every predicted position (column).
func BuildCostMatrix(predicted, candidates []radar.Point) (*mat.Dense, error) {
	if len(candidates) == 0 || len(predicted) == 0 {
		return nil, ErrNoCandidates
	}

	cost := mat.NewDense(len(candidates), len(predicted), nil)
	for i, c := range candidates {
		cs := c.Slice()
		for j, p := range predicted {
			cost.Set(i, j, floats.Distance(cs, p.Slice(), 2))
		}
	}
	return cost, nil
}

// SolveAssignment finds the one-to-one pairing of rows to columns with the
// lowest total cost. It returns min(rows, cols) pairs as parallel index
// slices ordered by row.
//
// Ties: for a single column (or single row) the lowest-index minimum wins.
// Larger matrices keep the solver's first minimum, scanning columns in
// increasing order at each augmenting step.
func SolveAssignment(cost mat.Matrix) (rows, cols []int, err error) {
	if cost == nil {
		return nil, nil, ErrNoCandidates
	}
	if d, ok := cost.(*mat.Dense); ok && (d == nil || d.IsEmpty()) {
		return nil, nil, ErrNoCandidates
	}
	r, c := cost.Dims()
	if r == 0 || c == 0 {
		return nil, nil, ErrNoCandidates
	}

	grid := make([][]float64, r)
	for i := 0; i < r; i++ {
		grid[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			v := cost.At(i, j)
			if math.IsNaN(v) {
				return nil, nil, ErrInvalidCost
			}
			grid[i][j] = v
		}
	}

	switch {
	case c == 1:
		i := argmin(r, func(i int) float64 { return grid[i][0] })
		return []int{i}, []int{0}, nil
	case r == 1:
		j := argmin(c, func(j int) float64 { return grid[0][j] })
		return []int{0}, []int{j}, nil
	}

	assignment := HungarianAssign(grid)
	for i, j := range assignment {
		if j >= 0 {
			rows = append(rows, i)
			cols = append(cols, j)
		}
	}
	if len(rows) == 0 {
		return nil, nil, ErrNoCandidates
	}
	return rows, cols, nil
}

// argmin returns the lowest index holding the minimum of n values.
func argmin(n int, at func(int) float64) int {
	best := 0
	for i := 1; i < n; i++ {
		if at(i) < at(best) {
			best = i
		}
	}
	return best
}

// Best associates a single predicted position with the closest candidate.
// It returns the candidate's index and its distance.
func Best(predicted radar.Point, candidates []radar.Point) (int, float64, error) {
	cost, err := BuildCostMatrix([]radar.Point{predicted}, candidates)
	if err != nil {
		return -1, 0, err
	}
	rows, cols, err := SolveAssignment(cost)
	if err != nil {
		return -1, 0, err
	}
	return rows[0], cost.At(rows[0], cols[0]), nil
}

// TotalCost sums the cost of an assignment.
func TotalCost(cost mat.Matrix, rows, cols []int) float64 {
	var total float64
	for k := range rows {
		total += cost.At(rows[k], cols[k])
	}
	return total
}
