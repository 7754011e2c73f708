// Package game implements the Hanabi game-state model: an imperfect
// information state that can represent either the omniscient ground truth
// or any single player's limited view, tracks the disclosure history of
// every card still in play, executes actions, and projects itself down to a
// fingerprint suitable for keying an MCTS tree.
//
// A GameState is mutated only by Act. Views and determinized copies are
// produced by Clone/PlayerView and owned by the caller, matching the
// single-writer discipline the teacher's internal/state.Board follows.
package game

import (
	"fmt"
	"hash/fnv"
	"maps"
	"math/rand/v2"
	"sort"

	"github.com/cardsearch/hanabi-mcts/internal/cards"
	"github.com/cardsearch/hanabi-mcts/internal/determinize"
	"github.com/cardsearch/hanabi-mcts/internal/generics"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// CardId is the stable, opaque handle on one physical card. Identifiers
// 0..15 are dealt to the four players at construction (four each, strided
// round-robin by seat); 16..N-1 remain undrawn.
type CardId int

// MinInitialDeck is the smallest deck Initial accepts: enough to deal four
// players four cards each.
const MinInitialDeck = 16

// Information records one clue given to a card, and whether that clue
// matched the card's face.
type Information struct {
	Clue    cards.Clue
	Matches bool
}

// ConsistentWith reports whether the card is compatible with this recorded
// clue result.
func (inf Information) ConsistentWith(card cards.Card) bool {
	return inf.Matches == inf.Clue.Matches(card)
}

// ActionKind tags the variant of an Action.
type ActionKind uint8

const (
	ActionDiscard ActionKind = iota
	ActionPlay
	ActionClue
)

// Action is one of Discard(index), Play(index) or Clue(target, clue). It is
// a plain comparable struct so it can key an MCTS node's arrow table.
type Action struct {
	Kind   ActionKind
	Index  int
	Target cards.Player
	Clue   cards.Clue
}

// Discard builds a Discard(index) action.
func Discard(index int) Action { return Action{Kind: ActionDiscard, Index: index} }

// Play builds a Play(index) action.
func Play(index int) Action { return Action{Kind: ActionPlay, Index: index} }

// ClueAction builds a Clue(target, clue) action.
func ClueAction(target cards.Player, clue cards.Clue) Action {
	return Action{Kind: ActionClue, Target: target, Clue: clue}
}

func (a Action) String() string {
	switch a.Kind {
	case ActionDiscard:
		return fmt.Sprintf("Discard(%d)", a.Index)
	case ActionPlay:
		return fmt.Sprintf("Play(%d)", a.Index)
	case ActionClue:
		return fmt.Sprintf("Clue(%s, %s)", a.Target, a.Clue)
	default:
		return "InvalidAction"
	}
}

// CompletedActionKind tags the variant of a CompletedAction.
type CompletedActionKind uint8

const (
	CompletedDiscarded CompletedActionKind = iota
	CompletedPlayed
	CompletedClued
)

// CompletedAction is the record appended to the action log: what happened,
// plus the information the action revealed (a clue's matching ids, or a
// discard/play's revealed face).
type CompletedAction struct {
	Kind     CompletedActionKind
	Position int
	Card     cards.Card
	Target   cards.Player
	Clue     cards.Clue
	Matched  []CardId
}

func (c CompletedAction) String() string {
	switch c.Kind {
	case CompletedDiscarded:
		return fmt.Sprintf("Discarded(%d, %s)", c.Position, c.Card)
	case CompletedPlayed:
		return fmt.Sprintf("Played(%d, %s)", c.Position, c.Card)
	case CompletedClued:
		return fmt.Sprintf("Clued(%s, %s, %v)", c.Target, c.Clue, c.Matched)
	default:
		return "InvalidCompletedAction"
	}
}

// IllegalKind enumerates the reasons Act can reject an action without
// mutating state.
type IllegalKind uint8

const (
	NoSuchCard IllegalKind = iota
	TooManyClues
	NoClues
	CluedSelf
	NoMatchingCards
)

func (k IllegalKind) String() string {
	switch k {
	case NoSuchCard:
		return "NoSuchCard"
	case TooManyClues:
		return "TooManyClues"
	case NoClues:
		return "NoClues"
	case CluedSelf:
		return "CluedSelf"
	case NoMatchingCards:
		return "NoMatchingCards"
	default:
		return "UnknownIllegalKind"
	}
}

// ResultKind tags which of the four ActionResult outcomes occurred.
type ResultKind uint8

const (
	ResultActed ResultKind = iota
	ResultIllegal
	ResultError
	ResultFinished
)

// ActionResult is the tagged outcome of Act.
type ActionResult struct {
	Kind          ResultKind
	Completed     CompletedAction // valid iff Kind == ResultActed
	IllegalReason IllegalKind     // valid iff Kind == ResultIllegal
	Score         int             // valid iff Kind == ResultFinished
}

// Fingerprint uniquely identifies a state from one observer's vantage: the
// sorted (CardId, Card) pairs the observer knows, together with the action
// log. Two states with equal fingerprints are indistinguishable to that
// observer and must be treated as the same MCTS tree node.
type Fingerprint struct {
	KnownCards []KnownCard
	Actions    []CompletedAction
}

// KnownCard pairs an id with the face the observer has recorded for it.
type KnownCard struct {
	ID   CardId
	Card cards.Card
}

// GameState holds the full Hanabi position: card faces known to this
// observer, hands, piles, discard/play history, counters, and the
// per-card disclosure log needed so determinization can respect what has
// been clued.
type GameState struct {
	cardMap        map[CardId]cards.Card
	deckSize       int
	nextCardID     CardId
	currentTurn    cards.Player
	finalTurn      *cards.Player
	hands          map[cards.Player][]CardId
	playedCards    []CardId
	discardedCards []CardId
	piles          map[cards.Suit]cards.Rank
	clues          int
	strikes        int
	information    map[CardId][]Information
	actionLog      []CompletedAction
}

// Initial deals a fresh GameState from deckOrder: ids 0,4,8,12 to Alice;
// 1,5,9,13 to Bob; 2,6,10,14 to Cathy; 3,7,11,15 to Dave; the rest remain
// undrawn. deckOrder must hold at least MinInitialDeck cards.
func Initial(deckOrder []cards.Card) (*GameState, error) {
	if len(deckOrder) < MinInitialDeck {
		return nil, errors.Errorf("game: Initial needs at least %d cards, got %d", MinInitialDeck, len(deckOrder))
	}

	cardMap := make(map[CardId]cards.Card, len(deckOrder))
	for i, c := range deckOrder {
		cardMap[CardId(i)] = c
	}

	hands := map[cards.Player][]CardId{
		cards.Alice: {0, 4, 8, 12},
		cards.Bob:   {1, 5, 9, 13},
		cards.Cathy: {2, 6, 10, 14},
		cards.Dave:  {3, 7, 11, 15},
	}

	return &GameState{
		cardMap:     cardMap,
		deckSize:    len(deckOrder) - MinInitialDeck,
		nextCardID:  CardId(MinInitialDeck),
		currentTurn: cards.Alice,
		hands:       hands,
		piles:       make(map[cards.Suit]cards.Rank),
		clues:       8,
		strikes:     0,
		information: make(map[CardId][]Information),
	}, nil
}

// Clone returns a deep, independently-owned copy of g.
func (g *GameState) Clone() *GameState {
	clone := &GameState{
		deckSize:    g.deckSize,
		nextCardID:  g.nextCardID,
		currentTurn: g.currentTurn,
		clues:       g.clues,
		strikes:     g.strikes,
	}
	if g.finalTurn != nil {
		ft := *g.finalTurn
		clone.finalTurn = &ft
	}
	clone.cardMap = maps.Clone(g.cardMap)
	clone.hands = make(map[cards.Player][]CardId, len(g.hands))
	for p, h := range g.hands {
		clone.hands[p] = append([]CardId(nil), h...)
	}
	clone.playedCards = append([]CardId(nil), g.playedCards...)
	clone.discardedCards = append([]CardId(nil), g.discardedCards...)
	clone.piles = maps.Clone(g.piles)
	clone.information = make(map[CardId][]Information, len(g.information))
	for id, infos := range g.information {
		clone.information[id] = append([]Information(nil), infos...)
	}
	clone.actionLog = append([]CompletedAction(nil), g.actionLog...)
	return clone
}

// CurrentPlayer returns whose turn it is.
func (g *GameState) CurrentPlayer() cards.Player { return g.currentTurn }

// Clues returns the current clue-token count, in [0, 8].
func (g *GameState) Clues() int { return g.clues }

// Strikes returns the current strike count, in [0, 3].
func (g *GameState) Strikes() int { return g.strikes }

// DeckSize returns the number of undrawn cards remaining.
func (g *GameState) DeckSize() int { return g.deckSize }

// NextCardID returns the id the next draw will be assigned.
func (g *GameState) NextCardID() CardId { return g.nextCardID }

// FinalTurn returns the player whose action emptied the deck, and whether
// one has been set yet.
func (g *GameState) FinalTurn() (cards.Player, bool) {
	if g.finalTurn == nil {
		return 0, false
	}
	return *g.finalTurn, true
}

// Hand returns a copy of p's hand, oldest card first.
func (g *GameState) Hand(p cards.Player) []CardId {
	return append([]CardId(nil), g.hands[p]...)
}

// Piles returns a copy of the suit -> highest-played-rank map.
func (g *GameState) Piles() map[cards.Suit]cards.Rank {
	return maps.Clone(g.piles)
}

// PlayedCards returns a copy of the ordered play-stack.
func (g *GameState) PlayedCards() []CardId {
	return append([]CardId(nil), g.playedCards...)
}

// DiscardedCards returns a copy of the ordered discard-stack.
func (g *GameState) DiscardedCards() []CardId {
	return append([]CardId(nil), g.discardedCards...)
}

// CardFace returns the face this observer knows for id, if any.
func (g *GameState) CardFace(id CardId) (cards.Card, bool) {
	c, ok := g.cardMap[id]
	return c, ok
}

// Information returns a copy of the disclosure log recorded for id.
func (g *GameState) Information(id CardId) []Information {
	return append([]Information(nil), g.information[id]...)
}

// ActionLog returns a copy of the completed-action history.
func (g *GameState) ActionLog() []CompletedAction {
	return append([]CompletedAction(nil), g.actionLog...)
}

// pileScore sums the highest rank played on each suit; absent suits
// contribute 0.
func (g *GameState) pileScore() int {
	total := 0
	for _, r := range g.piles {
		total += int(r)
	}
	return total
}

// viewCardMap computes the card_map visible to p: other players' hands,
// plus the play and discard piles (always face-up).
func (g *GameState) viewCardMap(p cards.Player) map[CardId]cards.Card {
	viewed := make(map[CardId]cards.Card)
	for _, other := range cards.Players {
		if other == p {
			continue
		}
		for _, id := range g.hands[other] {
			if c, ok := g.cardMap[id]; ok {
				viewed[id] = c
			}
		}
	}
	for _, id := range g.playedCards {
		if c, ok := g.cardMap[id]; ok {
			viewed[id] = c
		}
	}
	for _, id := range g.discardedCards {
		if c, ok := g.cardMap[id]; ok {
			viewed[id] = c
		}
	}
	return viewed
}

// PlayerView returns a new GameState identical to g except its card_map is
// restricted to what p can see: other players' hands, and the play/discard
// piles. p's own hand is face-down.
func (g *GameState) PlayerView(p cards.Player) *GameState {
	view := g.Clone()
	view.cardMap = g.viewCardMap(p)
	return view
}

// CurrentView is PlayerView(CurrentPlayer()).
func (g *GameState) CurrentView() *GameState {
	return g.PlayerView(g.currentTurn)
}

// ReduceToCurrentView restricts g's own card_map in place to what the
// current player can see. Used by MCTS to hand an intermediate state back
// to the next searcher's perspective without allocating a whole new clone.
func (g *GameState) ReduceToCurrentView() {
	g.cardMap = g.viewCardMap(g.currentTurn)
}

// removeAt removes the element at index i from ids, preserving the relative
// order of the rest (positions are relative, not absolute slots).
func removeAt(ids []CardId, i int) []CardId {
	out := make([]CardId, 0, len(ids)-1)
	out = append(out, ids[:i]...)
	out = append(out, ids[i+1:]...)
	return out
}

// Act applies action to g, mutating it on success (Acted or Finished) and
// leaving it untouched on Illegal or Error.
func (g *GameState) Act(action Action) ActionResult {
	current := g.currentTurn

	switch action.Kind {
	case ActionDiscard:
		return g.actDiscard(current, action.Index)
	case ActionPlay:
		return g.actPlay(current, action.Index)
	case ActionClue:
		return g.actClue(current, action.Target, action.Clue)
	default:
		exceptions.Panicf("game: Act called with invalid action kind %d", action.Kind)
		panic("unreachable")
	}
}

func (g *GameState) actDiscard(current cards.Player, index int) ActionResult {
	hand := g.hands[current]
	if index < 0 || index >= len(hand) {
		return ActionResult{Kind: ResultIllegal, IllegalReason: NoSuchCard}
	}
	if g.clues == 8 {
		return ActionResult{Kind: ResultIllegal, IllegalReason: TooManyClues}
	}

	id := hand[index]
	card, ok := g.cardMap[id]
	if !ok {
		return ActionResult{Kind: ResultError}
	}

	g.hands[current] = removeAt(hand, index)
	g.discardedCards = append(g.discardedCards, id)
	delete(g.information, id)
	g.clues++

	completed := CompletedAction{Kind: CompletedDiscarded, Position: index, Card: card}

	if ft, ok := g.FinalTurn(); ok && ft == current {
		return ActionResult{Kind: ResultFinished, Score: g.pileScore()}
	}
	g.drawReplacement(current)
	g.currentTurn = current.Next()
	g.actionLog = append(g.actionLog, completed)
	return ActionResult{Kind: ResultActed, Completed: completed}
}

func (g *GameState) actPlay(current cards.Player, index int) ActionResult {
	hand := g.hands[current]
	if index < 0 || index >= len(hand) {
		return ActionResult{Kind: ResultIllegal, IllegalReason: NoSuchCard}
	}

	id := hand[index]
	card, ok := g.cardMap[id]
	if !ok {
		return ActionResult{Kind: ResultError}
	}

	g.hands[current] = removeAt(hand, index)
	delete(g.information, id)

	var pile *cards.Rank
	if r, ok := g.piles[card.Suit]; ok {
		pile = &r
	}
	if card.Rank.PlayableOn(pile) {
		g.piles[card.Suit] = card.Rank
		g.playedCards = append(g.playedCards, id)
		if card.Rank == cards.Five && g.clues < 8 {
			g.clues++
		}
	} else {
		g.discardedCards = append(g.discardedCards, id)
		g.strikes++
		if g.strikes == 3 {
			return ActionResult{Kind: ResultFinished, Score: 0}
		}
	}

	completed := CompletedAction{Kind: CompletedPlayed, Position: index, Card: card}

	if ft, ok := g.FinalTurn(); ok && ft == current {
		return ActionResult{Kind: ResultFinished, Score: g.pileScore()}
	}
	g.drawReplacement(current)
	g.currentTurn = current.Next()
	g.actionLog = append(g.actionLog, completed)
	return ActionResult{Kind: ResultActed, Completed: completed}
}

func (g *GameState) actClue(current, target cards.Player, clue cards.Clue) ActionResult {
	if target == current {
		return ActionResult{Kind: ResultIllegal, IllegalReason: CluedSelf}
	}
	if g.clues == 0 {
		return ActionResult{Kind: ResultIllegal, IllegalReason: NoClues}
	}

	hand := g.hands[target]
	matches := make([]bool, len(hand))
	for i, id := range hand {
		card, ok := g.cardMap[id]
		if !ok {
			return ActionResult{Kind: ResultError}
		}
		matches[i] = clue.Matches(card)
	}

	var matched []CardId
	for i, id := range hand {
		if matches[i] {
			matched = append(matched, id)
		}
	}
	if len(matched) == 0 {
		return ActionResult{Kind: ResultIllegal, IllegalReason: NoMatchingCards}
	}

	for i, id := range hand {
		g.information[id] = append(g.information[id], Information{Clue: clue, Matches: matches[i]})
	}
	g.clues--

	completed := CompletedAction{Kind: CompletedClued, Target: target, Clue: clue, Matched: matched}

	if ft, ok := g.FinalTurn(); ok && ft == current {
		return ActionResult{Kind: ResultFinished, Score: g.pileScore()}
	}
	g.currentTurn = current.Next()
	g.actionLog = append(g.actionLog, completed)
	return ActionResult{Kind: ResultActed, Completed: completed}
}

// drawReplacement draws one card from the undrawn pool into current's hand,
// if any remain, and sets finalTurn the instant the pool empties.
func (g *GameState) drawReplacement(current cards.Player) {
	if g.deckSize <= 0 {
		return
	}
	g.hands[current] = append(g.hands[current], g.nextCardID)
	g.nextCardID++
	g.deckSize--
	if g.deckSize == 0 {
		ft := current
		g.finalTurn = &ft
		klog.V(1).Infof("game: deck exhausted, final turn set to %s", current)
	}
}

// LegalActions enumerates every action Act would accept from the current
// state: Play(i) for every hand index; Discard(i) for every hand index only
// while clues<8; Clue(target, c) for every other player and every
// suit/rank clue that matches at least one card this observer can see in
// target's hand, only while clues>0.
func (g *GameState) LegalActions() []Action {
	current := g.currentTurn
	hand := g.hands[current]

	var actions []Action
	for i := range hand {
		if g.clues < 8 {
			actions = append(actions, Discard(i))
		}
		actions = append(actions, Play(i))
	}

	if g.clues > 0 {
		for _, target := range cards.Players {
			if target == current {
				continue
			}
			targetHand := g.hands[target]

			for _, s := range cards.Suits {
				clue := cards.NewSuitClue(s)
				if g.anyVisibleMatch(targetHand, clue) {
					actions = append(actions, ClueAction(target, clue))
				}
			}
			for _, r := range cards.Ranks {
				clue := cards.NewRankClue(r)
				if g.anyVisibleMatch(targetHand, clue) {
					actions = append(actions, ClueAction(target, clue))
				}
			}
		}
	}
	return actions
}

func (g *GameState) anyVisibleMatch(hand []CardId, clue cards.Clue) bool {
	for _, id := range hand {
		if c, ok := g.cardMap[id]; ok && clue.Matches(c) {
			return true
		}
	}
	return false
}

// Fingerprint returns the sorted (CardId, Card) pairs this observer knows
// together with a copy of the action log.
func (g *GameState) Fingerprint() Fingerprint {
	known := make([]KnownCard, 0, len(g.cardMap))
	for id, c := range g.cardMap {
		known = append(known, KnownCard{ID: id, Card: c})
	}
	sort.Slice(known, func(i, j int) bool { return known[i].ID < known[j].ID })

	return Fingerprint{
		KnownCards: known,
		Actions:    append([]CompletedAction(nil), g.actionLog...),
	}
}

// Hash condenses the fingerprint into a 64-bit FNV-1a digest, the key used
// by the MCTS node table. KnownCards is already sorted by id and Actions is
// already in log order, so two fingerprints an observer cannot tell apart
// always hash identically.
func (fp Fingerprint) Hash() uint64 {
	h := fnv.New64a()
	for _, kc := range fp.KnownCards {
		fmt.Fprintf(h, "k%d:%d:%d|", kc.ID, kc.Card.Suit, kc.Card.Rank)
	}
	for _, a := range fp.Actions {
		fmt.Fprintf(h, "a%d:%d:%d:%d:%d:%v|", a.Kind, a.Position, a.Card.Suit, a.Card.Rank, a.Target, a.Matched)
		fmt.Fprintf(h, "c%d:%d:%d|", a.Clue.Kind, a.Clue.Suit, a.Clue.Rank)
	}
	return h.Sum64()
}

// unknownCards returns every id this observer cannot currently name a face
// for: ids in any hand absent from card_map, plus the ids the next draws
// will be assigned.
func (g *GameState) unknownCards() []CardId {
	seen := generics.MakeSet[CardId]()
	var unknowns []CardId
	for _, p := range cards.Players {
		for _, id := range g.hands[p] {
			if _, ok := g.cardMap[id]; !ok && !seen.Has(id) {
				unknowns = append(unknowns, id)
				seen.Insert(id)
			}
		}
	}
	for i := 0; i < g.deckSize; i++ {
		id := g.nextCardID + CardId(i)
		if _, ok := g.cardMap[id]; !ok && !seen.Has(id) {
			unknowns = append(unknowns, id)
			seen.Insert(id)
		}
	}
	return unknowns
}

// remainingCardCounts is deck_distribution() minus the multiset of faces
// this observer already knows.
func (g *GameState) remainingCardCounts() map[cards.Card]int {
	seen := make(map[cards.Card]int)
	for _, c := range g.cardMap {
		seen[c]++
	}

	remaining := make(map[cards.Card]int)
	for c, n := range cards.DeckDistribution() {
		s := seen[c]
		if s > n {
			exceptions.Panicf("game: observer has seen %d %s cards, more than the %d that exist", s, c, n)
		}
		if n > s {
			remaining[c] = n - s
		}
	}
	return remaining
}

// Determinize fills in a face for every id this observer does not know,
// consistent with the remaining-card multiset and each id's disclosure
// log. priors gives an explicit weighted guess for a (typically sparse) set
// of ids -- usually the observer's own hand -- restricted here to the faces
// still consistent with that id's Information log; ids with no entry in
// priors fall back to the deck distribution, similarly restricted.
func (g *GameState) Determinize(priors map[CardId]determinize.WeightedDistribution, rng *rand.Rand) {
	unknowns := g.unknownCards()
	remaining := g.remainingCardCounts()

	restricted := make(map[CardId]determinize.WeightedDistribution, len(priors))
	for _, id := range unknowns {
		info, hasInfo := g.information[id]
		if !hasInfo || len(info) == 0 {
			continue
		}
		if orig, ok := priors[id]; ok {
			restricted[id] = restrictDistribution(orig, info)
		} else {
			restricted[id] = restrictDeck(info)
		}
	}
	for id, orig := range priors {
		if _, already := restricted[id]; !already {
			restricted[id] = orig
		}
	}

	distPriors := make(map[CardId]determinize.Distribution, len(restricted))
	for id, w := range restricted {
		distPriors[id] = w
	}

	assignment := determinize.Determinize[CardId](unknowns, remaining, distPriors, rng)
	for id, c := range assignment {
		g.cardMap[id] = c
	}
}

func consistentWithAll(info []Information, card cards.Card) bool {
	for _, inf := range info {
		if !inf.ConsistentWith(card) {
			return false
		}
	}
	return true
}

func restrictDistribution(orig determinize.WeightedDistribution, info []Information) determinize.WeightedDistribution {
	var out determinize.WeightedDistribution
	for _, w := range orig {
		if consistentWithAll(info, w.Card) {
			out = append(out, w)
		}
	}
	return out
}

func restrictDeck(info []Information) determinize.WeightedDistribution {
	var out determinize.WeightedDistribution
	for card, count := range cards.DeckDistribution() {
		if consistentWithAll(info, card) {
			out = append(out, determinize.WeightedCard{Card: card, Weight: count})
		}
	}
	return out
}
