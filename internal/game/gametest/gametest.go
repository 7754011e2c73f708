// Package gametest provides fixtures shared by package game's tests and by
// higher-level packages (such as mcts) that need a reproducible deal
// without reaching into game's internals.
package gametest

import (
	"github.com/cardsearch/hanabi-mcts/internal/cards"
	"github.com/cardsearch/hanabi-mcts/internal/game"
	"github.com/janpfeifer/must"
)

// SampleDeck is a fixed 50-card shuffle used across tests so scenarios are
// reproducible without depending on any RNG.
var SampleDeck = [cards.DeckSize]cards.Card{
	{Suit: cards.Yellow, Rank: cards.One},
	{Suit: cards.Yellow, Rank: cards.Four},
	{Suit: cards.Red, Rank: cards.Three},
	{Suit: cards.Green, Rank: cards.One},
	{Suit: cards.Red, Rank: cards.One},
	{Suit: cards.Purple, Rank: cards.One},
	{Suit: cards.Green, Rank: cards.Five},
	{Suit: cards.Blue, Rank: cards.Five},
	{Suit: cards.Green, Rank: cards.Four},
	{Suit: cards.Blue, Rank: cards.Four},
	{Suit: cards.Blue, Rank: cards.One},
	{Suit: cards.Red, Rank: cards.Three},
	{Suit: cards.Red, Rank: cards.Four},
	{Suit: cards.Red, Rank: cards.One},
	{Suit: cards.Blue, Rank: cards.Four},
	{Suit: cards.Yellow, Rank: cards.Three},
	{Suit: cards.Green, Rank: cards.Three},
	{Suit: cards.Red, Rank: cards.One},
	{Suit: cards.Blue, Rank: cards.One},
	{Suit: cards.Green, Rank: cards.One},
	{Suit: cards.Purple, Rank: cards.Two},
	{Suit: cards.Red, Rank: cards.Two},
	{Suit: cards.Red, Rank: cards.Five},
	{Suit: cards.Blue, Rank: cards.Three},
	{Suit: cards.Yellow, Rank: cards.Four},
	{Suit: cards.Purple, Rank: cards.One},
	{Suit: cards.Yellow, Rank: cards.One},
	{Suit: cards.Yellow, Rank: cards.One},
	{Suit: cards.Green, Rank: cards.Four},
	{Suit: cards.Green, Rank: cards.One},
	{Suit: cards.Yellow, Rank: cards.Three},
	{Suit: cards.Blue, Rank: cards.Three},
	{Suit: cards.Purple, Rank: cards.Four},
	{Suit: cards.Green, Rank: cards.Three},
	{Suit: cards.Purple, Rank: cards.Three},
	{Suit: cards.Yellow, Rank: cards.Two},
	{Suit: cards.Red, Rank: cards.Two},
	{Suit: cards.Purple, Rank: cards.Five},
	{Suit: cards.Blue, Rank: cards.Two},
	{Suit: cards.Blue, Rank: cards.One},
	{Suit: cards.Green, Rank: cards.Two},
	{Suit: cards.Yellow, Rank: cards.Five},
	{Suit: cards.Purple, Rank: cards.One},
	{Suit: cards.Yellow, Rank: cards.Two},
	{Suit: cards.Blue, Rank: cards.Two},
	{Suit: cards.Purple, Rank: cards.Two},
	{Suit: cards.Purple, Rank: cards.Four},
	{Suit: cards.Purple, Rank: cards.Three},
	{Suit: cards.Green, Rank: cards.Two},
	{Suit: cards.Red, Rank: cards.Four},
}

// New deals SampleDeck into a fresh GameState, panicking (via must.M1) on
// the constructor error -- a fixture failing to build is a test-writing
// bug, not something a caller of this helper should have to check for.
func New() *game.GameState {
	return must.M1(game.Initial(SampleDeck[:]))
}
