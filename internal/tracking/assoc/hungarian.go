package assoc

import "math"

// Forbidden marks a cost entry the solver must never select, such as a
// measurement outside a track's gate.
const Forbidden = 1e18

// HungarianAssign implements the Kuhn–Munkres (Hungarian) algorithm for an
// n×m cost matrix. It returns assignments[i] = column assigned to row i,
// or -1 if row i is unassigned. Costs ≥ Forbidden are never selected.
//
// The matrix is padded to square with zero-cost dummy cells, so excess
// rows (or columns) stay unassigned without affecting the optimum.
// Forbidden cells are replaced by a finite penalty larger than the sum of
// all permitted costs: the solver first maximises the number of permitted
// pairs, then minimises their cost, and the potentials stay on the scale of
// the real costs. Runs in O(max(n,m)³).
//
// Among equal-cost alternatives the solver keeps the first minimum found
// while scanning columns in increasing index order.
func HungarianAssign(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	if m == 0 {
		result := make([]int, n)
		for i := range result {
			result[i] = -1
		}
		return result
	}

	dim := n
	if m > dim {
		dim = m
	}

	penalty := 1.0
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if cost[i][j] < Forbidden {
				penalty += math.Abs(cost[i][j])
			}
		}
	}

	c := make([][]float64, dim)
	for i := 0; i < dim; i++ {
		c[i] = make([]float64, dim)
		for j := 0; j < dim; j++ {
			switch {
			case i >= n || j >= m:
				c[i][j] = 0
			case cost[i][j] >= Forbidden:
				c[i][j] = penalty
			default:
				c[i][j] = cost[i][j]
			}
		}
	}

	// Shortest augmenting path with potentials (Jonker-Volgenant variant).
	// 1-indexed internally; column 0 is the virtual source.
	const inf = math.MaxFloat64 / 2

	u := make([]float64, dim+1) // Row potentials
	v := make([]float64, dim+1) // Column potentials
	p := make([]int, dim+1)     // p[j] = row assigned to column j
	way := make([]int, dim+1)   // way[j] = previous column on the augmenting path
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0

		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := c[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			if j1 < 0 {
				break
			}

			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	rowAssign := make([]int, dim)
	for i := range rowAssign {
		rowAssign[i] = -1
	}
	for j := 1; j <= dim; j++ {
		if p[j] > 0 && p[j] <= dim {
			rowAssign[p[j]-1] = j - 1
		}
	}

	// Trim to the original shape and drop forbidden pairings.
	result := make([]int, n)
	for i := 0; i < n; i++ {
		col := rowAssign[i]
		if col < 0 || col >= m || cost[i][col] >= Forbidden {
			result[i] = -1
		} else {
			result[i] = col
		}
	}

	return result
}
