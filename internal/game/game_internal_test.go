package game

import (
	"maps"
	"testing"

	"github.com/cardsearch/hanabi-mcts/internal/cards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthetic builds a minimal, fully-specified GameState for white-box tests
// that need a pile or clue count no public scenario can cheaply reach.
func synthetic(hand []cards.Card, piles map[cards.Suit]cards.Rank, clues, strikes int) (*GameState, []CardId) {
	cardMap := make(map[CardId]cards.Card, len(hand))
	ids := make([]CardId, len(hand))
	for i, c := range hand {
		cardMap[CardId(i)] = c
		ids[i] = CardId(i)
	}
	g := &GameState{
		cardMap:     cardMap,
		deckSize:    0,
		nextCardID:  CardId(len(hand)),
		currentTurn: cards.Alice,
		hands: map[cards.Player][]CardId{
			cards.Alice: append([]CardId(nil), ids...),
			cards.Bob:   nil,
			cards.Cathy: nil,
			cards.Dave:  nil,
		},
		piles:       maps.Clone(piles),
		clues:       clues,
		strikes:     strikes,
		information: make(map[CardId][]Information),
	}
	return g, ids
}

func TestPlayingFiveRestoresClueWhenBelowEight(t *testing.T) {
	g, ids := synthetic(
		[]cards.Card{{Suit: cards.Red, Rank: cards.Five}},
		map[cards.Suit]cards.Rank{cards.Red: cards.Four},
		6, 0,
	)
	result := g.Act(Play(0))
	require.Equal(t, ResultActed, result.Kind)
	assert.Equal(t, 7, g.Clues())
	assert.Contains(t, g.PlayedCards(), ids[0])
}

func TestPlayingFiveDoesNotExceedEightClues(t *testing.T) {
	g, _ := synthetic(
		[]cards.Card{{Suit: cards.Red, Rank: cards.Five}},
		map[cards.Suit]cards.Rank{cards.Red: cards.Four},
		8, 0,
	)
	result := g.Act(Play(0))
	require.Equal(t, ResultActed, result.Kind)
	assert.Equal(t, 8, g.Clues())
}

func TestThirdStrikeEndsImmediatelyWithoutAdvancingTurn(t *testing.T) {
	g, _ := synthetic(
		[]cards.Card{{Suit: cards.Red, Rank: cards.Three}},
		map[cards.Suit]cards.Rank{},
		8, 2,
	)
	result := g.Act(Play(0))
	require.Equal(t, ResultFinished, result.Kind)
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, 3, g.Strikes())
	// A Finished result short-circuits before the turn would advance.
	assert.Equal(t, cards.Alice, g.CurrentPlayer())
	assert.Empty(t, g.ActionLog())
}

func TestFinalTurnEndsGameWithoutDrawOrAdvance(t *testing.T) {
	g, ids := synthetic(
		[]cards.Card{{Suit: cards.Green, Rank: cards.One}},
		map[cards.Suit]cards.Rank{},
		8, 0,
	)
	alice := cards.Alice
	g.finalTurn = &alice

	result := g.Act(Play(0))
	require.Equal(t, ResultFinished, result.Kind)
	assert.Equal(t, 1, result.Score)
	assert.Contains(t, g.PlayedCards(), ids[0])
	assert.Equal(t, cards.Alice, g.CurrentPlayer())
	assert.Empty(t, g.ActionLog())
}

func TestDrawSetsFinalTurnWhenDeckEmpties(t *testing.T) {
	g, _ := synthetic(
		[]cards.Card{{Suit: cards.Green, Rank: cards.One}},
		map[cards.Suit]cards.Rank{},
		8, 0,
	)
	g.deckSize = 1
	g.cardMap[g.nextCardID] = cards.Card{Suit: cards.Blue, Rank: cards.One}

	result := g.Act(Play(0))
	require.Equal(t, ResultActed, result.Kind)
	ft, ok := g.FinalTurn()
	require.True(t, ok)
	assert.Equal(t, cards.Alice, ft)
	assert.Equal(t, 0, g.DeckSize())
}
