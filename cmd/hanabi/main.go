// Command hanabi plays a full game of Hanabi among four MCTS-driven
// players, printing the shuffled deck, every turn's outcome, and the
// final score.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cardsearch/hanabi-mcts/internal/cards"
	"github.com/cardsearch/hanabi-mcts/internal/game"
	"github.com/cardsearch/hanabi-mcts/internal/mcts"
	"github.com/cardsearch/hanabi-mcts/internal/parameters"
	"github.com/cardsearch/hanabi-mcts/internal/ui/cli"
	"github.com/cardsearch/hanabi-mcts/internal/ui/spinning"
	"k8s.io/klog/v2"
)

var (
	flagBatches     = flag.Int("batches", 50, "Number of playout batches per turn.")
	flagBatchWidth  = flag.Int("batch_width", 16, "Number of parallel playouts per batch.")
	flagExploration = flag.Float64("exploration", 1.4, "UCB1 exploration constant.")
	flagSeed        = flag.Uint64("seed", 0, "RNG seed; 0 picks a time-derived seed.")
	flagMaxTurns    = flag.Int(
		"max_turns", 200, "Safety valve: abort if the game hasn't finished within this many turns.")
	flagQuiet        = flag.Bool("quiet", false, "Suppress the thinking spinner and per-turn printing.")
	flagColor        = flag.Bool("color", true, "Colorize suits in terminal output.")
	flagSearchParams = flag.String("search_params", "",
		"Comma-separated key=value overrides for search tuning, e.g. "+
			"\"exploration=2.0,batches=100,batch_width=8\". Overrides the individual flags above.")
)

// searchConfig holds the per-turn MCTS tuning, seeded from the individual
// flags and then overridden by -search_params, mirroring
// internal/searchers/mcts.NewFromParams's PopParamOr-over-defaults pattern.
type searchConfig struct {
	exploration float64
	batches     int
	batchWidth  int
}

func loadSearchConfig() (searchConfig, error) {
	cfg := searchConfig{
		exploration: *flagExploration,
		batches:     *flagBatches,
		batchWidth:  *flagBatchWidth,
	}
	if *flagSearchParams == "" {
		return cfg, nil
	}
	params := parameters.NewFromConfigString(*flagSearchParams)
	var err error
	cfg.exploration, err = parameters.PopParamOr(params, "exploration", cfg.exploration)
	if err != nil {
		return cfg, err
	}
	cfg.batches, err = parameters.PopParamOr(params, "batches", cfg.batches)
	if err != nil {
		return cfg, err
	}
	cfg.batchWidth, err = parameters.PopParamOr(params, "batch_width", cfg.batchWidth)
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	seed := *flagSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	ctx, cancel := context.WithCancel(context.Background())
	spinning.SafeInterrupt(cancel, 3*time.Second)
	defer cancel()

	ui := cli.New(*flagColor)

	deck := shuffledDeck(rng)
	if !*flagQuiet {
		ui.PrintDeck(deck)
	}

	state, err := game.Initial(deck)
	if err != nil {
		klog.Fatalf("hanabi: %v", err)
	}

	cfg, err := loadSearchConfig()
	if err != nil {
		klog.Fatalf("hanabi: -search_params: %v", err)
	}

	for turn := 0; turn < *flagMaxTurns; turn++ {
		if !*flagQuiet {
			ui.PrintTurn(state)
		}

		root := state.CurrentView()
		search := mcts.New(root, cfg.exploration)

		var spin *spinning.Spinning
		if !*flagQuiet {
			spin = spinning.New(ctx)
		}
		if err := search.RunBatches(ctx, cfg.batches, cfg.batchWidth, rng); err != nil {
			if spin != nil {
				spin.Done()
			}
			klog.Fatalf("hanabi: search aborted: %+v", err)
		}
		if spin != nil {
			spin.Done()
		}

		action := search.ChooseAction(rng)
		actingPlayer := state.CurrentPlayer()
		result := state.Act(action)

		switch result.Kind {
		case game.ResultActed:
			if !*flagQuiet {
				ui.PrintCompletedAction(actingPlayer, result.Completed)
			}
		case game.ResultFinished:
			if !*flagQuiet {
				ui.PrintFinal(result.Score)
			} else {
				fmt.Printf("final score: %d/25\n", result.Score)
			}
			return
		case game.ResultIllegal:
			klog.Fatalf("hanabi: MCTS chose an illegal action %v: %v (this indicates a bug, "+
				"since the driver only ever applies actions returned by LegalActions)", action, result.IllegalReason)
		case game.ResultError:
			klog.Fatalf("hanabi: action %v produced an internal error (this indicates a bug)", action)
		}
	}

	klog.Fatalf("hanabi: game did not finish within %d turns", *flagMaxTurns)
}

// shuffledDeck builds the 50-card deck in a fixed suit/rank order and
// shuffles it in place with Fisher-Yates.
func shuffledDeck(rng *rand.Rand) []cards.Card {
	dist := cards.DeckDistribution()
	deck := make([]cards.Card, 0, cards.DeckSize)
	for _, s := range cards.Suits {
		for _, r := range cards.Ranks {
			card := cards.Card{Suit: s, Rank: r}
			for i := 0; i < dist[card]; i++ {
				deck = append(deck, card)
			}
		}
	}
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}
