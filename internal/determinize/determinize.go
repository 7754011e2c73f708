// Package determinize samples concrete card identities for the unseen
// portion of a Hanabi deck, subject to a remaining-card multiset constraint
// and optional per-id prior distributions (used to respect a card's
// disclosure history).
package determinize

import (
	"math/rand/v2"

	"github.com/cardsearch/hanabi-mcts/internal/cards"
	"github.com/gomlx/exceptions"
)

// Distribution is anything that can draw a single Card from rng. It models
// the "polymorphic random source" of a per-card prior: a weighted choice
// over the faces still consistent with that card's disclosure log, or any
// other capability that produces a Card.
type Distribution interface {
	Sample(rng *rand.Rand) cards.Card
}

// WeightedCard pairs a candidate face with its relative weight.
type WeightedCard struct {
	Card   cards.Card
	Weight int
}

// WeightedDistribution is a Distribution backed by an explicit weighted list,
// the concrete prior shape used throughout package game (restricted deck
// counts, or a restricted externally supplied prior).
type WeightedDistribution []WeightedCard

// Sample implements Distribution.
func (d WeightedDistribution) Sample(rng *rand.Rand) cards.Card {
	total := 0
	for _, w := range d {
		total += w.Weight
	}
	if total <= 0 {
		exceptions.Panicf("determinize: WeightedDistribution has no positive-weight candidates")
	}
	pick := rng.IntN(total)
	for _, w := range d {
		if pick < w.Weight {
			return w.Card
		}
		pick -= w.Weight
	}
	// Unreachable unless weights are inconsistent with total.
	return d[len(d)-1].Card
}

// Determinize samples a total assignment unknowns -> Card consistent with
// both the supplied priors and the remaining multiset of cards not yet
// accounted for.
//
// It runs in two phases:
//
//  1. Prior phase (rejection sampling): every id with a prior is resampled,
//     all at once, until the resulting tally of drawn faces fits within
//     remaining pointwise. Priors are expected to be sparse (a handful of
//     cards, typically the observer's own hand); callers must not supply
//     effectively uniform priors or rejection will rarely converge.
//  2. Shuffle phase: the unassigned remainder of remaining (after removing
//     the prior-phase tally) is expanded into an explicit multiset and drawn
//     without replacement, uniformly, for every id in unknowns that has no
//     prior.
//
// Determinize panics if unknowns without a prior outnumber what remains --
// that indicates the caller supplied an inconsistent remaining/priors pair,
// a programmer error rather than a game-rule failure.
func Determinize[ID comparable](unknowns []ID, remaining map[cards.Card]int, priors map[ID]Distribution, rng *rand.Rand) map[ID]cards.Card {
	assignment := make(map[ID]cards.Card, len(unknowns))
	tally := make(map[cards.Card]int, len(priors))

	for {
		clear(assignment)
		clear(tally)
		for id, dist := range priors {
			card := dist.Sample(rng)
			assignment[id] = card
			tally[card]++
		}
		feasible := true
		for card, count := range tally {
			if count > remaining[card] {
				feasible = false
				break
			}
		}
		if feasible {
			break
		}
	}

	available := make([]cards.Card, 0, len(remaining))
	for card, count := range remaining {
		used := tally[card]
		for i := 0; i < count-used; i++ {
			available = append(available, card)
		}
	}

	for _, id := range unknowns {
		if _, done := assignment[id]; done {
			continue
		}
		if len(available) == 0 {
			exceptions.Panicf("determinize: not enough cards remaining to assign id %v", id)
		}
		i := rng.IntN(len(available))
		assignment[id] = available[i]
		available[i] = available[len(available)-1]
		available = available[:len(available)-1]
	}

	return assignment
}
