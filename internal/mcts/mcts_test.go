package mcts_test

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/cardsearch/hanabi-mcts/internal/cards"
	"github.com/cardsearch/hanabi-mcts/internal/game"
	"github.com/cardsearch/hanabi-mcts/internal/game/gametest"
	"github.com/cardsearch/hanabi-mcts/internal/mcts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrowAddSampleAveraging(t *testing.T) {
	var a mcts.Arrow
	a.AddSample(1.0)
	a.AddSample(3.0)
	assert.InDelta(t, 2.0, a.MeanReward(), 1e-9)
	assert.Equal(t, float64(2), a.Visits())
}

func TestRunPlayoutTerminatesWithScore(t *testing.T) {
	root := gametest.New().CurrentView()
	search := mcts.New(root, 1.4)
	rng := rand.New(rand.NewPCG(1, 1))

	trace, reward := search.RunPlayout(rng)
	assert.NotEmpty(t, trace)
	assert.GreaterOrEqual(t, reward, 0.0)
	assert.LessOrEqual(t, reward, float64(cards.NumSuits*int(cards.Five)))
}

func TestUpdateAndChooseActionRoundTrip(t *testing.T) {
	root := gametest.New().CurrentView()
	search := mcts.New(root, 1.4)
	rng := rand.New(rand.NewPCG(2, 2))

	trace, reward := search.RunPlayout(rng)
	search.Update(trace, reward)

	action := search.ChooseAction(rng)
	legal := root.LegalActions()
	assert.Contains(t, legal, action)
}

func TestChooseActionPanicsBeforeAnyPlayout(t *testing.T) {
	root := gametest.New().CurrentView()
	search := mcts.New(root, 1.4)
	rng := rand.New(rand.NewPCG(3, 3))

	assert.Panics(t, func() {
		search.ChooseAction(rng)
	})
}

func TestRunBatchMergesAllPlayouts(t *testing.T) {
	root := gametest.New().CurrentView()
	search := mcts.New(root, 1.4)
	rng := rand.New(rand.NewPCG(4, 4))

	err := search.RunBatch(context.Background(), 8, rng)
	require.NoError(t, err)
	assert.Greater(t, search.NodeCount(), 0)

	action := search.ChooseAction(rng)
	assert.Contains(t, root.LegalActions(), action)
}

func TestRunBatchesAccumulatesAcrossBatches(t *testing.T) {
	root := gametest.New().CurrentView()
	search := mcts.New(root, 1.4)
	rng := rand.New(rand.NewPCG(5, 5))

	err := search.RunBatches(context.Background(), 3, 4, rng)
	require.NoError(t, err)

	firstCount := search.NodeCount()
	assert.Greater(t, firstCount, 0)

	// Every playout of every batch starts at the root: 3 batches of 4.
	var rootVisits float64
	for _, arrow := range search.RootArrows() {
		rootVisits += arrow.Visits()
	}
	assert.Equal(t, float64(3*4), rootVisits)

	action := search.ChooseAction(rng)
	assert.Contains(t, root.LegalActions(), action)
}

func TestRunPlayoutDeterminizesEveryStep(t *testing.T) {
	// Two independent playouts from the same hidden-information view should
	// be free to resolve the observer's own hand differently at each visit --
	// that is the whole point of re-determinizing every descent rather than
	// once at the root. We can't observe the hidden cards directly, but we
	// can confirm the search makes progress over many playouts without ever
	// panicking on an illegal/error outcome, which would fire immediately if
	// re-determinization were broken.
	root := gametest.New().CurrentView()
	search := mcts.New(root, 1.4)
	rng := rand.New(rand.NewPCG(6, 6))

	for i := 0; i < 20; i++ {
		trace, reward := search.RunPlayout(rng)
		search.Update(trace, reward)
	}
	assert.Greater(t, search.NodeCount(), 0)
}

func TestNodeSelectExhaustsUnexploredBeforeRepeating(t *testing.T) {
	root := gametest.New().CurrentView()
	search := mcts.New(root, 1.4)
	rng := rand.New(rand.NewPCG(7, 7))

	legal := root.LegalActions()
	require.Greater(t, len(legal), 1)

	// Running one playout per legal action at the root (at least) should
	// leave every one of them tried at least once, since Select always
	// prefers an unexplored legal action over re-visiting a sampled one.
	for i := 0; i < len(legal); i++ {
		trace, reward := search.RunPlayout(rng)
		search.Update(trace, reward)
	}

	arrows := search.RootArrows()
	require.NotNil(t, arrows)
	tried := make(map[game.Action]bool, len(arrows))
	for a := range arrows {
		tried[a] = true
	}
	assert.Len(t, tried, len(legal))
	assert.NotEmpty(t, tried)
}
