// Package cli implements the terminal rendering for a Hanabi match: the
// shuffled deck order, per-turn state, the outcome of each action, and the
// final score.
package cli

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/cardsearch/hanabi-mcts/internal/cards"
	"github.com/cardsearch/hanabi-mcts/internal/game"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var ansiFilter = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// displayWidth of s removes its color/control sequences and returns the
// length of what is left.
func displayWidth(s string) int {
	return len(ansiFilter.ReplaceAllString(s, ""))
}

// printCentered prints a (possibly multi-line, possibly colored) block
// horizontally centered on the current terminal width.
func printCentered(block string) {
	lines := strings.Split(block, "\n")
	terminalWidth, _, _ := term.GetSize(int(os.Stdout.Fd()))
	blockWidth := 0
	for _, line := range lines {
		if w := displayWidth(line); w > blockWidth {
			blockWidth = w
		}
	}
	indent := (terminalWidth - blockWidth) / 2
	if indent < 0 {
		indent = 0
	}
	for _, line := range lines {
		if len(line) == 0 {
			fmt.Println()
			continue
		}
		fmt.Printf("%s%s\n", strings.Repeat(" ", indent), line)
	}
}

// UI renders a match to stdout. color disables suit coloring for
// non-terminal output (e.g. piped logs) when false.
type UI struct {
	color bool
}

// New builds a UI; color enables per-suit lipgloss styling.
func New(color bool) *UI {
	return &UI{color: color}
}

// suitColors maps each suit to the ANSI color lipgloss renders it in.
var suitColors = map[cards.Suit]lipgloss.Color{
	cards.Red:    lipgloss.Color("9"),
	cards.Green:  lipgloss.Color("10"),
	cards.Blue:   lipgloss.Color("12"),
	cards.Yellow: lipgloss.Color("11"),
	cards.Purple: lipgloss.Color("13"),
}

func (ui *UI) styleSuit(suit cards.Suit, text string) string {
	if !ui.color {
		return text
	}
	return lipgloss.NewStyle().Foreground(suitColors[suit]).Render(text)
}

// cardString renders a card face as its suit-colored "Suit Rank" form.
func (ui *UI) cardString(c cards.Card) string {
	return ui.styleSuit(c.Suit, c.String())
}

// PrintDeck prints the shuffled deck order before the first deal, one card
// per line, grounded on run_mcts.rs printing "Deck order:" then every card.
func (ui *UI) PrintDeck(deck []cards.Card) {
	fmt.Println("Deck order:")
	for _, c := range deck {
		fmt.Println(ui.cardString(c))
	}
	fmt.Println()
}

// PrintTurn prints the turn header: whose turn it is, the clue/strike
// counters, and the current state of every suit's pile.
func (ui *UI) PrintTurn(g *game.GameState) {
	fmt.Printf("\n%s's turn -- clues: %d, strikes: %d\n", g.CurrentPlayer(), g.Clues(), g.Strikes())
	ui.printPiles(g)
}

func (ui *UI) printPiles(g *game.GameState) {
	piles := g.Piles()
	var parts []string
	for _, s := range cards.Suits {
		rank, ok := piles[s]
		label := "-"
		if ok {
			label = rank.String()
		}
		parts = append(parts, ui.styleSuit(s, fmt.Sprintf("%s:%s", s, label)))
	}
	fmt.Printf("Piles: %s\n", strings.Join(parts, "  "))
}

// PrintCompletedAction prints the outcome of one turn's action: the
// player who acted and what CompletedAction records happened.
func (ui *UI) PrintCompletedAction(player cards.Player, ca game.CompletedAction) {
	switch ca.Kind {
	case game.CompletedDiscarded:
		fmt.Printf("%s discards position %d: %s\n", player, ca.Position, ui.cardString(ca.Card))
	case game.CompletedPlayed:
		fmt.Printf("%s plays position %d: %s\n", player, ca.Position, ui.cardString(ca.Card))
	case game.CompletedClued:
		fmt.Printf("%s clues %s about %s, matching card ids %v\n", player, ca.Target, ca.Clue, ca.Matched)
	}
}

// PrintFinal prints the closing banner for a finished game.
func (ui *UI) PrintFinal(score int) {
	fmt.Println()
	banner := fmt.Sprintf("*** GAME OVER -- final score: %d/25 ***", score)
	if !ui.color {
		printCentered(banner)
		return
	}
	printCentered(
		lipgloss.NewStyle().
			Background(lipgloss.Color("5")).
			Foreground(lipgloss.Color("0")).
			Padding(1, 2).
			Render(banner))
	fmt.Println()
}
