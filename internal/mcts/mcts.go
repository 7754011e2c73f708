// Package mcts implements a fingerprint-keyed UCB1 Monte Carlo Tree Search
// over imperfect-information Hanabi states: every playout determinizes the
// unseen cards afresh at each step it descends, not just at the root, so
// the tree reasons about the full distribution of hidden hands rather than
// a single sampled world.
//
// Search is not a tree in the usual sense -- nodes are keyed by the
// observer's Fingerprint hash, so two syntactically different paths that
// leave the observer equally informed share one Node. That is what makes
// the 64-bit hash key (see game.Fingerprint.Hash) load-bearing rather than
// just a convenience.
package mcts

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/cardsearch/hanabi-mcts/internal/game"
	"github.com/gomlx/exceptions"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Arrow tracks the running mean reward and visit count for one action taken
// from a Node.
type Arrow struct {
	meanReward float64
	visits     float64
}

// AddSample folds one more observed reward into the arrow's running mean.
func (a *Arrow) AddSample(reward float64) {
	a.meanReward = (a.meanReward*a.visits + reward) / (a.visits + 1)
	a.visits++
}

// MeanReward is the arrow's current expected-reward estimate.
func (a *Arrow) MeanReward() float64 { return a.meanReward }

// Visits is how many samples this arrow has folded in.
func (a *Arrow) Visits() float64 { return a.visits }

// Node holds the UCB1 statistics for every action tried from one
// fingerprint. An action absent from actions has never been sampled.
type Node struct {
	mu          sync.Mutex
	actions     map[game.Action]*Arrow
	totalVisits float64
}

func newNode() *Node {
	return &Node{actions: make(map[game.Action]*Arrow)}
}

// Select picks the next action to descend into: any never-tried legal
// action wins outright (picked uniformly among ties), otherwise the legal
// action with the highest UCB1 grade
// (meanReward + exploration*sqrt(ln(totalVisits)/visits)), ties again
// broken uniformly at random.
func (n *Node) Select(legalActions []game.Action, exploration float64, rng *rand.Rand) game.Action {
	n.mu.Lock()
	defer n.mu.Unlock()

	var unexplored []game.Action
	for _, a := range legalActions {
		if _, ok := n.actions[a]; !ok {
			unexplored = append(unexplored, a)
		}
	}
	if len(unexplored) > 0 {
		return unexplored[rng.IntN(len(unexplored))]
	}

	var best []game.Action
	bestGrade := math.Inf(-1)
	for _, a := range legalActions {
		arrow := n.actions[a]
		grade := arrow.meanReward + exploration*math.Sqrt(math.Log(n.totalVisits)/arrow.visits)
		switch {
		case grade > bestGrade:
			best = best[:0]
			best = append(best, a)
			bestGrade = grade
		case grade == bestGrade:
			best = append(best, a)
		}
	}
	return best[rng.IntN(len(best))]
}

// AddSample folds a playout's reward into action's arrow, creating it if
// this is the first time the action has been tried from this node.
func (n *Node) AddSample(action game.Action, reward float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	arrow, ok := n.actions[action]
	if !ok {
		arrow = &Arrow{}
		n.actions[action] = arrow
	}
	arrow.AddSample(reward)
	n.totalVisits++
}

// Arrows returns a snapshot copy of the node's action -> Arrow table.
func (n *Node) Arrows() map[game.Action]Arrow {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[game.Action]Arrow, len(n.actions))
	for a, arrow := range n.actions {
		out[a] = *arrow
	}
	return out
}

// step records one (fingerprint hash, chosen action) pair visited during a
// playout, the unit Update folds back into the tree.
type step struct {
	hash   uint64
	action game.Action
}

// Search owns one fingerprint-keyed UCB1 tree rooted at a fixed observer
// view. It is built fresh for every turn: the teacher's
// original_source/src/bin/run_mcts.rs does the same, constructing a new
// MctsState from the current player's view at the start of every move.
type Search struct {
	root        *game.GameState
	exploration float64

	mu    sync.RWMutex
	nodes map[uint64]*Node
}

// New builds a Search rooted at root (which should already be a player's
// view, e.g. via GameState.CurrentView) with the given UCB1 exploration
// constant.
func New(root *game.GameState, exploration float64) *Search {
	return &Search{
		root:        root,
		exploration: exploration,
		nodes:       make(map[uint64]*Node),
	}
}

// nodeFor looks up the node for hash under the read lock and reports whether
// it exists. It never creates a node; Update does that.
func (s *Search) nodeFor(hash uint64) (*Node, bool) {
	s.mu.RLock()
	node, ok := s.nodes[hash]
	s.mu.RUnlock()
	return node, ok
}

// RunPlayout simulates one game from the root to completion: at every step
// it selects an action from the current view (UCB1 if the fingerprint has
// been visited before, uniform-random otherwise), determinizes the unseen
// cards afresh, applies the action, and reduces to the next player's view
// before continuing. It
// returns the trace of (fingerprint hash, action) pairs visited and the
// final score, for the caller to fold into the tree via Update.
func (s *Search) RunPlayout(rng *rand.Rand) (trace []step, reward float64) {
	current := s.root.Clone()

	for {
		fp := current.Fingerprint()
		hash := fp.Hash()
		legalActions := current.LegalActions()

		var action game.Action
		if node, ok := s.nodeFor(hash); ok {
			action = node.Select(legalActions, s.exploration, rng)
		} else {
			action = legalActions[rng.IntN(len(legalActions))]
		}
		trace = append(trace, step{hash: hash, action: action})

		current.Determinize(nil, rng)

		result := current.Act(action)
		switch result.Kind {
		case game.ResultActed:
			current.ReduceToCurrentView()
		case game.ResultIllegal:
			exceptions.Panicf("mcts: playout selected an illegal action %v: %v", action, result.IllegalReason)
		case game.ResultError:
			exceptions.Panicf("mcts: playout encountered an action error on %v", action)
		case game.ResultFinished:
			return trace, float64(result.Score)
		}
	}
}

// Update folds one playout's trace and reward into the tree, creating any
// node visited for the first time.
func (s *Search) Update(trace []step, reward float64) {
	for _, st := range trace {
		s.mu.Lock()
		node, ok := s.nodes[st.hash]
		if !ok {
			node = newNode()
			s.nodes[st.hash] = node
		}
		s.mu.Unlock()
		node.AddSample(st.action, reward)
	}
}

// RunBatch runs width independent playouts concurrently -- bounded to
// runtime.GOMAXPROCS(0) in flight at once via a semaphore, grounded on
// ai/search/mcts.go's sync.WaitGroup+semaphore worker pool -- and merges
// all of their traces into the tree in a single serial pass once the batch
// completes. Each goroutine gets its own math/rand/v2 generator, seeded
// from rng so the whole batch is reproducible from one root seed without
// any worker sharing -- and therefore contending on -- a single source.
func (s *Search) RunBatch(ctx context.Context, width int, rng *rand.Rand) error {
	type outcome struct {
		trace  []step
		reward float64
	}
	outcomes := make([]outcome, width)

	group, groupCtx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, max(1, runtime.GOMAXPROCS(0)))

	for i := 0; i < width; i++ {
		i := i
		workerRng := rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))
		group.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
			defer func() { <-sem }()

			trace, reward := s.RunPlayout(workerRng)
			outcomes[i] = outcome{trace: trace, reward: reward}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	for _, o := range outcomes {
		s.Update(o.trace, o.reward)
	}
	return nil
}

// RunBatches runs batches sequential calls to RunBatch, each of width
// playouts, merging into the tree between batches -- the "fan out then
// serial merge" loop, repeated batches times per turn.
func (s *Search) RunBatches(ctx context.Context, batches, width int, rng *rand.Rand) error {
	for b := 0; b < batches; b++ {
		if err := s.RunBatch(ctx, width, rng); err != nil {
			return err
		}
		if klog.V(2).Enabled() {
			klog.V(2).Infof("mcts: completed batch %d/%d (%d nodes)", b+1, batches, s.NodeCount())
		}
	}
	return nil
}

// NodeCount returns how many distinct fingerprints the tree has visited.
func (s *Search) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// RootArrows returns a snapshot of the root fingerprint's action -> Arrow
// table, or nil if the root has not been visited by any playout yet.
func (s *Search) RootArrows() map[game.Action]Arrow {
	node, ok := s.nodeFor(s.root.Fingerprint().Hash())
	if !ok {
		return nil
	}
	return node.Arrows()
}

// ChooseAction returns the root's highest-mean-reward action, ties broken
// uniformly at random. It panics if the root fingerprint has never been
// visited -- callers must run at least one playout first.
func (s *Search) ChooseAction(rng *rand.Rand) game.Action {
	hash := s.root.Fingerprint().Hash()
	node, ok := s.nodeFor(hash)
	if !ok {
		exceptions.Panicf("mcts: ChooseAction called before any playout visited the root")
	}

	arrows := node.Arrows()
	var best []game.Action
	bestReward := math.Inf(-1)
	for a, arrow := range arrows {
		switch {
		case arrow.meanReward > bestReward:
			best = best[:0]
			best = append(best, a)
			bestReward = arrow.meanReward
		case arrow.meanReward == bestReward:
			best = append(best, a)
		}
	}
	if len(best) == 0 {
		exceptions.Panicf("mcts: root node has no sampled actions")
	}
	return best[rng.IntN(len(best))]
}
