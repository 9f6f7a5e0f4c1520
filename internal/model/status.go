package model

// Status is the lifecycle phase of a session
type Status string

const (
	StatusWaiting   Status = "waiting"   // Created, second player not joined yet
	StatusActive    Status = "active"    // Both players present, moves accepted
	StatusCheckmate Status = "checkmate" // Terminal
	StatusStalemate Status = "stalemate" // Terminal
	StatusDraw      Status = "draw"      // Terminal
	StatusResigned  Status = "resigned"  // Terminal
)

// IsTerminal returns true if no further moves or joins are accepted
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCheckmate, StatusStalemate, StatusDraw, StatusResigned:
		return true
	default:
		return false
	}
}

// IsValid returns true for any known status
func (s Status) IsValid() bool {
	return s == StatusWaiting || s == StatusActive || s.IsTerminal()
}

// CanTransitionTo reports whether next follows s in the
// waiting -> active -> terminal order
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusWaiting:
		return next == StatusActive
	case StatusActive:
		return next == StatusActive || next.IsTerminal()
	default:
		return false
	}
}

// OutcomeKind classifies the board-rule verdict on a position
type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeDecisive
	OutcomeDraw
	OutcomeStalemate
)

// TerminalOutcome is the board-rule verdict on a position.
// Winner is only set for OutcomeDecisive.
type TerminalOutcome struct {
	Kind   OutcomeKind
	Winner Color
}

// IsTerminal returns true if the outcome ends the game
func (o TerminalOutcome) IsTerminal() bool {
	return o.Kind != OutcomeNone
}

// Status maps the outcome onto a session status and result
func (o TerminalOutcome) Status() (Status, Color) {
	switch o.Kind {
	case OutcomeDecisive:
		return StatusCheckmate, o.Winner
	case OutcomeDraw:
		return StatusDraw, ""
	case OutcomeStalemate:
		return StatusStalemate, ""
	default:
		return StatusActive, ""
	}
}
