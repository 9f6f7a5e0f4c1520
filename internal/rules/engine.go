// Package rules adapts a chess library into the board-rule capability used by
// move admission: validating and applying moves, rendering notation, listing
// legal moves and detecting terminal positions.
package rules

import (
	"regexp"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/mcoot/chessgame-go/internal/model"
)

// StartingPosition is the FEN of the standard initial position
const StartingPosition = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var uciPattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

// Applied is the result of applying one move to a position
type Applied struct {
	Move     string // Normalised UCI text
	Notation string // SAN, with check or mate suffix
	Position string // Resulting FEN
}

// Engine evaluates chess rules over FEN positions
type Engine interface {
	// Apply validates move (UCI) against position and returns the new position
	Apply(position, move string) (Applied, error)
	// Outcome reports whether position ends the game
	Outcome(position string) (model.TerminalOutcome, error)
	// LegalMoves lists every legal move in UCI, empty for terminal positions
	LegalMoves(position string) ([]string, error)
	// SideToMove returns the color whose turn it is
	SideToMove(position string) (model.Color, error)
}

// Chess implements Engine on top of corentings/chess
type Chess struct{}

// New creates a new Chess engine
func New() *Chess {
	return &Chess{}
}

// Ensure Chess implements the interface
var _ Engine = (*Chess)(nil)

// Apply validates and plays one move
func (c *Chess) Apply(position, move string) (Applied, error) {
	game, err := load(position)
	if err != nil {
		return Applied{}, err
	}

	uci := strings.ToLower(strings.TrimSpace(move))
	if !uciPattern.MatchString(uci) {
		return Applied{}, &model.MoveError{Err: model.ErrInvalidMove, Move: move}
	}
	if game.Outcome() != nchess.NoOutcome {
		return Applied{}, &model.MoveError{Err: model.ErrIllegalMove, Move: move}
	}

	before := game.Position()
	if err := game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		return Applied{}, &model.MoveError{Err: model.ErrIllegalMove, Move: move}
	}

	moves := game.Moves()
	played := moves[len(moves)-1]

	return Applied{
		Move:     uci,
		Notation: nchess.AlgebraicNotation{}.Encode(before, played),
		Position: game.FEN(),
	}, nil
}

// Outcome reports the terminal verdict for position
func (c *Chess) Outcome(position string) (model.TerminalOutcome, error) {
	game, err := load(position)
	if err != nil {
		return model.TerminalOutcome{}, err
	}
	return outcomeOf(game), nil
}

// LegalMoves lists the legal moves in UCI
func (c *Chess) LegalMoves(position string) ([]string, error) {
	game, err := load(position)
	if err != nil {
		return nil, err
	}
	if game.Outcome() != nchess.NoOutcome {
		return []string{}, nil
	}

	valid := game.ValidMoves()
	result := make([]string, 0, len(valid))
	for _, mv := range valid {
		result = append(result, mv.String())
	}
	return result, nil
}

// SideToMove returns the color to play
func (c *Chess) SideToMove(position string) (model.Color, error) {
	game, err := load(position)
	if err != nil {
		return "", err
	}
	if game.Position().Turn() == nchess.White {
		return model.White, nil
	}
	return model.Black, nil
}

func load(position string) (*nchess.Game, error) {
	opt, err := nchess.FEN(strings.TrimSpace(position))
	if err != nil {
		return nil, model.ErrInvalidPosition
	}
	return nchess.NewGame(opt), nil
}

func outcomeOf(game *nchess.Game) model.TerminalOutcome {
	switch game.Outcome() {
	case nchess.WhiteWon:
		return model.TerminalOutcome{Kind: model.OutcomeDecisive, Winner: model.White}
	case nchess.BlackWon:
		return model.TerminalOutcome{Kind: model.OutcomeDecisive, Winner: model.Black}
	case nchess.Draw:
		if game.Method() == nchess.Stalemate {
			return model.TerminalOutcome{Kind: model.OutcomeStalemate}
		}
		return model.TerminalOutcome{Kind: model.OutcomeDraw}
	default:
		return model.TerminalOutcome{}
	}
}
