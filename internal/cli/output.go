package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mcoot/chessgame-go/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

// PrintEvent outputs one live event, as a JSON line or a readable summary
func (o *Output) PrintEvent(evt model.Event) {
	if o.format == "json" {
		data, _ := json.Marshal(evt)
		fmt.Println(string(data))
		return
	}
	fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05"), describeEvent(evt))
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Game:
		o.printGame(v)
	case []Game:
		o.printGameList(v)
	case SeatResult:
		o.printGame(v.Game)
		fmt.Printf("You are: %s\n", v.Color)
		fmt.Printf("Secret: %s\n", v.Secret)
	case MoveResult:
		fmt.Printf("Played: %s (%s)\n", v.SAN, v.Move)
		o.printGame(v.Game)
	case HealthResult:
		fmt.Printf("Status: %s\n", v.Status)
		fmt.Printf("Storage: %s\n", v.Storage)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Game mirrors the server's game projection
type Game struct {
	ID        string    `json:"id"`
	FEN       string    `json:"fen"`
	Moves     []string  `json:"moves"`
	Status    string    `json:"status"`
	Result    *string   `json:"result"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	HasBlack  bool      `json:"has_black"`
}

// SeatResult is returned by create and join
type SeatResult struct {
	Game
	Secret string `json:"secret"`
	Color  string `json:"color"`
}

// MoveResult is returned for an accepted move
type MoveResult struct {
	Game
	Move       string   `json:"move"`
	SAN        string   `json:"san"`
	LegalMoves []string `json:"legal_moves"`
}

// HealthResult is returned by the health check
type HealthResult struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

func (o *Output) printGame(g Game) {
	fmt.Printf("Game: %s\n", g.ID)
	fmt.Printf("Status: %s\n", g.Status)
	if g.Result != nil {
		fmt.Printf("Winner: %s\n", *g.Result)
	}
	if !g.HasBlack {
		fmt.Println("Waiting for black to join")
	}
	if len(g.Moves) > 0 {
		fmt.Printf("Moves: %s\n", formatMoves(g.Moves))
	}
	fmt.Println()
	fmt.Print(drawBoard(g.FEN))
}

func (o *Output) printGameList(games []Game) {
	if len(games) == 0 {
		fmt.Println("No games")
		return
	}
	for _, g := range games {
		players := "1/2"
		if g.HasBlack {
			players = "2/2"
		}
		fmt.Printf("%s  %-9s  %s  %3d moves  %s\n",
			g.ID, g.Status, players, len(g.Moves), g.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
}

// formatMoves numbers SAN moves in pairs: "1. e4 e5 2. Nf3"
func formatMoves(moves []string) string {
	var b strings.Builder
	for i, mv := range moves {
		if i%2 == 0 {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d. ", i/2+1)
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(mv)
	}
	return b.String()
}

// drawBoard renders the piece placement field of a FEN, white at the bottom
func drawBoard(fen string) string {
	placement, _, _ := strings.Cut(fen, " ")
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fen + "\n"
	}

	var b strings.Builder
	for i, rank := range ranks {
		fmt.Fprintf(&b, "%d ", 8-i)
		for _, c := range rank {
			if c >= '1' && c <= '8' {
				b.WriteString(strings.Repeat(" .", int(c-'0')))
				continue
			}
			b.WriteByte(' ')
			b.WriteRune(c)
		}
		b.WriteByte('\n')
	}
	b.WriteString("   a b c d e f g h\n")
	return b.String()
}

func describeEvent(evt model.Event) string {
	switch e := evt.(type) {
	case model.GameStateEvent:
		return fmt.Sprintf("connected: %s, %d moves, black %s",
			e.Status, len(e.Moves), presence(e.BlackConnected))
	case model.MoveMadeEvent:
		return fmt.Sprintf("move %s (%s), %s", e.SAN, e.Move, e.Status)
	case model.PlayerJoinedEvent:
		return fmt.Sprintf("%s joined, game is %s", e.Color, e.Status)
	case model.GameOverEvent:
		if e.Result != nil {
			return fmt.Sprintf("game over: %s, %s wins", e.Status, *e.Result)
		}
		return fmt.Sprintf("game over: %s", e.Status)
	case model.ErrorEvent:
		return "error: " + e.Message
	default:
		return string(evt.EventType())
	}
}

func presence(joined bool) string {
	if joined {
		return "present"
	}
	return "not joined"
}
