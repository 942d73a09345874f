package assoc

import (
	"testing"
)

func TestHungarianAssign_Empty(t *testing.T) {
	result := HungarianAssign(nil)
	if result != nil {
		t.Errorf("expected nil for empty cost matrix, got %v", result)
	}
}

func TestHungarianAssign_NoColumns(t *testing.T) {
	result := HungarianAssign([][]float64{{}, {}})
	if len(result) != 2 || result[0] != -1 || result[1] != -1 {
		t.Errorf("expected [-1 -1], got %v", result)
	}
}

func TestHungarianAssign_SingleElement(t *testing.T) {
	result := HungarianAssign([][]float64{{5.0}})
	if len(result) != 1 || result[0] != 0 {
		t.Errorf("expected [0], got %v", result)
	}
}

func TestHungarianAssign_SquareOptimal(t *testing.T) {
	// Optimal: row0→col0 (1), row1→col1 (4), row2→col2 (5) = 10
	cost := [][]float64{
		{1, 2, 3},
		{4, 4, 6},
		{9, 8, 5},
	}
	result := HungarianAssign(cost)

	if len(result) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(result))
	}

	total := 0.0
	for i, j := range result {
		if j < 0 {
			t.Errorf("row %d unassigned", i)
			continue
		}
		total += cost[i][j]
	}
	if total != 10.0 {
		t.Errorf("expected optimal cost 10, got %v (assignments: %v)", total, result)
	}
}

func TestHungarianAssign_Forbidden(t *testing.T) {
	// Row 1 has no reachable column.
	cost := [][]float64{
		{1, 2},
		{Forbidden, Forbidden},
	}
	result := HungarianAssign(cost)

	if result[0] < 0 {
		t.Errorf("row 0 should be assigned, got %d", result[0])
	}
	if result[1] != -1 {
		t.Errorf("row 1 should be unassigned (-1), got %d", result[1])
	}
}

func TestHungarianAssign_ForbiddenPrefersFeasibleMatching(t *testing.T) {
	// Greedy would give row0→col0 and strand row1 (col1 forbidden for it).
	cost := [][]float64{
		{1, 3},
		{2, Forbidden},
	}
	result := HungarianAssign(cost)
	if result[0] != 1 || result[1] != 0 {
		t.Errorf("expected [1 0], got %v", result)
	}
}

func TestHungarianAssign_MoreRowsThanCols(t *testing.T) {
	cost := [][]float64{
		{1, 10},
		{10, 1},
		{5, 5},
	}
	result := HungarianAssign(cost)

	assigned := 0
	total := 0.0
	for i, j := range result {
		if j >= 0 {
			assigned++
			total += cost[i][j]
		}
	}
	if assigned != 2 {
		t.Errorf("expected exactly 2 assigned rows, got %d (result: %v)", assigned, result)
	}
	if total != 2.0 {
		t.Errorf("expected optimal cost 2, got %v (assignments: %v)", total, result)
	}
}

func TestHungarianAssign_MoreColsThanRows(t *testing.T) {
	cost := [][]float64{
		{10, 1, 5},
		{5, 10, 1},
	}
	result := HungarianAssign(cost)

	total := 0.0
	for i, j := range result {
		if j < 0 {
			t.Errorf("row %d unassigned", i)
			continue
		}
		total += cost[i][j]
	}
	if total != 2.0 {
		t.Errorf("expected optimal cost 2, got %v (assignments: %v)", total, result)
	}
}

func TestHungarianAssign_SmallDifferencesSurvivePadding(t *testing.T) {
	// A tall single-column matrix forces padding; the cheapest row must
	// still win even though the costs differ by less than one unit.
	cost := [][]float64{{5.25}, {5.0}, {5.5}, {5.125}}
	result := HungarianAssign(cost)

	for i, j := range result {
		if i == 1 && j != 0 {
			t.Errorf("row 1 should hold column 0, got %v", result)
		}
		if i != 1 && j != -1 {
			t.Errorf("row %d should be unassigned, got %v", i, result)
		}
	}
}

func TestHungarianAssign_AllZeroCost(t *testing.T) {
	cost := [][]float64{
		{0, 0},
		{0, 0},
	}
	result := HungarianAssign(cost)

	if result[0] < 0 || result[1] < 0 {
		t.Fatalf("both rows should be assigned, got %v", result)
	}
	if result[0] == result[1] {
		t.Errorf("rows share column %d", result[0])
	}
}
