package problems

import (
	"fmt"
	"math/rand"

	"telos/internal/genome"
)

// CostMatrix is the immutable travel-cost table shared read-only by every
// tour genome of a run. It is validated once and then never written.
type CostMatrix struct {
	size  int
	costs []float64
}

// NewCostMatrix copies and validates a square cost table.
func NewCostMatrix(costs [][]float64) (*CostMatrix, error) {
	n := len(costs)
	if n < 2 {
		return nil, fmt.Errorf("cost matrix must be at least 2x2, got %d rows", n)
	}
	flat := make([]float64, 0, n*n)
	for i, row := range costs {
		if len(row) != n {
			return nil, fmt.Errorf("cost matrix row %d has %d columns, want %d", i, len(row), n)
		}
		flat = append(flat, row...)
	}
	return &CostMatrix{size: n, costs: flat}, nil
}

// Size returns the number of cities.
func (m *CostMatrix) Size() int { return m.size }

// Cost returns the travel cost from city i to city j.
func (m *CostMatrix) Cost(i, j int) float64 { return m.costs[i*m.size+j] }

// Tour is a permutation genome over city indices. Fitness is the negated
// closed-tour cost, so shorter tours score higher.
type Tour struct {
	genes     []float64
	matrix    *CostMatrix
	fitness   float64
	evaluated bool
}

// TourFactory builds random permutations over the matrix's cities. The
// matrix is captured by the factory and retained by every genome it creates.
func TourFactory(matrix *CostMatrix) genome.Factory {
	if matrix == nil {
		return nil
	}
	return func(rng *rand.Rand) genome.Genome {
		genes := make([]float64, matrix.Size())
		for i := range genes {
			genes[i] = float64(i)
		}
		rng.Shuffle(len(genes), func(i, j int) {
			genes[i], genes[j] = genes[j], genes[i]
		})
		return &Tour{genes: genes, matrix: matrix}
	}
}

// NewTour wraps an existing permutation of city indices.
func NewTour(order []int, matrix *CostMatrix) *Tour {
	genes := make([]float64, len(order))
	for i, city := range order {
		genes[i] = float64(city)
	}
	return &Tour{genes: genes, matrix: matrix}
}

func (t *Tour) Fitness() float64 {
	if !t.evaluated {
		total := 0.0
		n := len(t.genes)
		for i := 0; i < n; i++ {
			from := int(t.genes[i])
			to := int(t.genes[(i+1)%n])
			total += t.matrix.Cost(from, to)
		}
		t.fitness = -total
		t.evaluated = true
	}
	return t.fitness
}

func (t *Tour) Genes() []float64 { return t.genes }

func (t *Tour) Invalidate() { t.evaluated = false }

func (t *Tour) Clone() genome.Genome {
	return &Tour{
		genes:  append([]float64(nil), t.genes...),
		matrix: t.matrix,
	}
}

func (t *Tour) IsPermutation() bool { return true }

func (t *Tour) IsDiscrete() bool { return true }
