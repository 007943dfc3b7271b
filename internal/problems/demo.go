package problems

import "math"

// demoCities is a fixed set of 2D coordinates so tour runs are comparable
// across invocations without external input files.
var demoCities = [][2]float64{
	{0, 0}, {1, 5}, {2, 3}, {5, 1}, {6, 6},
	{7, 2}, {8, 8}, {3, 7}, {4, 4}, {9, 0},
}

// DemoCostMatrix builds the Euclidean cost matrix over the built-in cities.
func DemoCostMatrix() (*CostMatrix, error) {
	n := len(demoCities)
	costs := make([][]float64, n)
	for i := range costs {
		costs[i] = make([]float64, n)
		for j := range costs[i] {
			dx := demoCities[i][0] - demoCities[j][0]
			dy := demoCities[i][1] - demoCities[j][1]
			costs[i][j] = math.Hypot(dx, dy)
		}
	}
	return NewCostMatrix(costs)
}
