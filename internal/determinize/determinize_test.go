package determinize_test

import (
	"math/rand/v2"
	"testing"

	"github.com/cardsearch/hanabi-mcts/internal/cards"
	"github.com/cardsearch/hanabi-mcts/internal/determinize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterminizeConservation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	remaining := map[cards.Card]int{
		{Suit: cards.Red, Rank: cards.One}:   2,
		{Suit: cards.Blue, Rank: cards.Five}: 1,
	}
	unknowns := []int{0, 1, 2}

	assignment := determinize.Determinize[int](unknowns, remaining, nil, rng)
	require.Len(t, assignment, 3)

	used := map[cards.Card]int{}
	for _, card := range assignment {
		used[card]++
	}
	for card, count := range used {
		assert.LessOrEqual(t, count, remaining[card])
	}
}

func TestDeterminizeRespectsPriors(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	onlyRed := determinize.WeightedDistribution{
		{Card: cards.Card{Suit: cards.Red, Rank: cards.One}, Weight: 1},
	}
	remaining := map[cards.Card]int{
		{Suit: cards.Red, Rank: cards.One}:  1,
		{Suit: cards.Blue, Rank: cards.Two}: 1,
	}
	priors := map[int]determinize.Distribution{0: onlyRed}
	unknowns := []int{0, 1}

	assignment := determinize.Determinize[int](unknowns, remaining, priors, rng)
	assert.Equal(t, cards.Card{Suit: cards.Red, Rank: cards.One}, assignment[0])
	assert.Equal(t, cards.Card{Suit: cards.Blue, Rank: cards.Two}, assignment[1])
}

func TestDeterminizePanicsWhenInsufficientCards(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	remaining := map[cards.Card]int{
		{Suit: cards.Red, Rank: cards.One}: 1,
	}
	unknowns := []int{0, 1}

	assert.Panics(t, func() {
		determinize.Determinize[int](unknowns, remaining, nil, rng)
	})
}

func TestWeightedDistributionUniform(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	dist := determinize.WeightedDistribution{
		{Card: cards.Card{Suit: cards.Red, Rank: cards.One}, Weight: 1},
		{Card: cards.Card{Suit: cards.Green, Rank: cards.One}, Weight: 1},
	}
	counts := map[cards.Card]int{}
	for i := 0; i < 200; i++ {
		counts[dist.Sample(rng)]++
	}
	assert.Greater(t, counts[cards.Card{Suit: cards.Red, Rank: cards.One}], 0)
	assert.Greater(t, counts[cards.Card{Suit: cards.Green, Rank: cards.One}], 0)
}
