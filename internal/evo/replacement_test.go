package evo

import (
	"math/rand"
	"testing"
)

func TestReplacersProduceExactPopulationSize(t *testing.T) {
	old := newScoredPop(1, 2, 3, 4, 5, 6)
	offspring := newScoredPop(2.5, 3.5, 4.5)
	rng := rand.New(rand.NewSource(31))

	replacers := []Replacer{
		ElitistReplacer{},
		GenerationalReplacer{},
		SteadyStateReplacer{},
		TournamentReplacer{},
		AgeBasedReplacer{},
	}
	for _, r := range replacers {
		next, err := r.Replace(rng, old, offspring, 6)
		if err != nil {
			t.Fatalf("%s: %v", r.Name(), err)
		}
		if len(next) != 6 {
			t.Fatalf("%s produced %d individuals, want 6", r.Name(), len(next))
		}
	}
}

func TestElitistKeepsTheBestOfBothGenerations(t *testing.T) {
	old := newScoredPop(10, 1, 2)
	offspring := newScoredPop(5, 0.5)

	next, err := ElitistReplacer{}.Replace(nil, old, offspring, 3)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	want := []float64{10, 5, 2}
	for i, w := range want {
		if next[i].Fitness != w {
			t.Fatalf("next[%d].Fitness = %g, want %g", i, next[i].Fitness, w)
		}
	}
}

func TestElitistBestNeverRegresses(t *testing.T) {
	rng := rand.New(rand.NewSource(32))
	pop := newScoredPop(3, 1, 4, 1, 5)
	bestSoFar := pop[Best(pop)].Fitness

	for round := 0; round < 20; round++ {
		offspring := newScoredPop(rng.Float64()*6, rng.Float64()*6)
		next, err := ElitistReplacer{}.Replace(rng, pop, offspring, 5)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		best := next[Best(next)].Fitness
		if best < bestSoFar {
			t.Fatalf("round %d best fitness regressed: %g < %g", round, best, bestSoFar)
		}
		bestSoFar = best
		pop = next
	}
}

func TestGenerationalPrefersOffspringAndPadsWithBestOld(t *testing.T) {
	old := newScoredPop(9, 8, 7, 6)
	offspring := newScoredPop(1, 2)

	next, err := GenerationalReplacer{}.Replace(nil, old, offspring, 4)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	// Both offspring survive regardless of fitness, then the best old fill
	// the remaining slots.
	want := []float64{2, 1, 9, 8}
	for i, w := range want {
		if next[i].Fitness != w {
			t.Fatalf("next[%d].Fitness = %g, want %g", i, next[i].Fitness, w)
		}
	}
}

func TestSteadyStateReplacesOnlyTheWorst(t *testing.T) {
	old := newScoredPop(10, 9, 1, 2)
	offspring := newScoredPop(5, 6)

	next, err := SteadyStateReplacer{K: 2}.Replace(nil, old, offspring, 4)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	fitnesses := map[float64]int{}
	for _, ind := range next {
		fitnesses[ind.Fitness]++
	}
	for _, keep := range []float64{10, 9, 6, 5} {
		if fitnesses[keep] != 1 {
			t.Fatalf("expected fitness %g once in next population, got %v", keep, fitnesses)
		}
	}
	// The incumbents' positions are untouched.
	if next[0].Fitness != 10 || next[1].Fitness != 9 {
		t.Fatalf("surviving incumbents moved: %g, %g", next[0].Fitness, next[1].Fitness)
	}
}

func TestSteadyStateRequiresFullOldPopulation(t *testing.T) {
	old := newScoredPop(1, 2)
	offspring := newScoredPop(3)
	if _, err := (SteadyStateReplacer{}).Replace(nil, old, offspring, 5); err == nil {
		t.Fatal("expected error when old population is smaller than size")
	}
}

func TestTournamentReplacementOnlyUpgrades(t *testing.T) {
	old := newScoredPop(4, 5, 6, 7)
	offspring := newScoredPop(1, 1, 1)
	rng := rand.New(rand.NewSource(33))

	next, err := TournamentReplacer{Size: 2}.Replace(rng, old, offspring, 4)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	// No offspring is fitter than any incumbent, so nothing changes.
	for i, ind := range next {
		if ind.Fitness != old[i].Fitness {
			t.Fatalf("weaker offspring displaced incumbent at %d", i)
		}
	}
}

func TestAgeBasedEvictsTheOldest(t *testing.T) {
	old := newScoredPop(9, 8, 7)
	old[0].Age = 5
	old[1].Age = 1
	old[2].Age = 3
	offspring := newScoredPop(2)

	next, err := AgeBasedReplacer{}.Replace(nil, old, offspring, 3)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	for _, ind := range next {
		if ind.Fitness == 9 {
			t.Fatal("the oldest individual survived age-based replacement")
		}
	}
	// Offspring enter first, then the youngest incumbents.
	if next[0].Fitness != 2 {
		t.Fatalf("offspring not placed first, got fitness %g", next[0].Fitness)
	}
}

func TestReplaceInputValidation(t *testing.T) {
	pop := newScoredPop(1, 2)
	if _, err := (ElitistReplacer{}).Replace(nil, nil, pop, 2); err == nil {
		t.Fatal("expected error for empty old population")
	}
	if _, err := (ElitistReplacer{}).Replace(nil, pop, pop, 0); err == nil {
		t.Fatal("expected error for non-positive size")
	}
	if _, err := (ElitistReplacer{}).Replace(nil, pop, nil, 5); err == nil {
		t.Fatal("expected error when the merged pool cannot fill the population")
	}
	if _, err := (TournamentReplacer{}).Replace(nil, pop, pop, 2); err == nil {
		t.Fatal("expected error for nil rng in tournament replacement")
	}
}
