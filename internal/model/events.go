package model

import (
	"encoding/json"
	"fmt"
)

// EventType identifies the type of event on the wire
type EventType string

const (
	EventGameState    EventType = "game_state"
	EventMoveMade     EventType = "move_made"
	EventPlayerJoined EventType = "player_joined"
	EventGameOver     EventType = "game_over"
	EventError        EventType = "error"
)

// Event is a server message fanned out to the connections watching a session.
// Every event marshals with a "type" tag.
type Event interface {
	EventType() EventType
}

// GameStateEvent is the snapshot sent once when a connection opens
type GameStateEvent struct {
	ID             SessionID `json:"id"`
	FEN            string    `json:"fen"`
	Moves          []string  `json:"moves"`
	Status         Status    `json:"status"`
	Result         *Color    `json:"result"`
	LegalMoves     []string  `json:"legal_moves"`
	WhiteConnected bool      `json:"white_connected"`
	BlackConnected bool      `json:"black_connected"`
}

// MoveMadeEvent is broadcast for every accepted move
type MoveMadeEvent struct {
	Move       string   `json:"move"`
	SAN        string   `json:"san"`
	FEN        string   `json:"fen"`
	Moves      []string `json:"moves"`
	Status     Status   `json:"status"`
	Result     *Color   `json:"result"`
	LegalMoves []string `json:"legal_moves"`
}

// PlayerJoinedEvent is broadcast when the second player joins
type PlayerJoinedEvent struct {
	Color      Color    `json:"color"`
	FEN        string   `json:"fen"`
	Status     Status   `json:"status"`
	LegalMoves []string `json:"legal_moves"`
}

// GameOverEvent follows the move or resignation that ended a session
type GameOverEvent struct {
	Status Status `json:"status"`
	Result *Color `json:"result"`
}

// ErrorEvent reports a failed command to the session's viewers
type ErrorEvent struct {
	Message string `json:"message"`
}

// EventType implements Event
func (GameStateEvent) EventType() EventType { return EventGameState }

// EventType implements Event
func (MoveMadeEvent) EventType() EventType { return EventMoveMade }

// EventType implements Event
func (PlayerJoinedEvent) EventType() EventType { return EventPlayerJoined }

// EventType implements Event
func (GameOverEvent) EventType() EventType { return EventGameOver }

// EventType implements Event
func (ErrorEvent) EventType() EventType { return EventError }

// MarshalJSON adds the "game_state" type tag
func (e GameStateEvent) MarshalJSON() ([]byte, error) {
	type payload GameStateEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		payload
	}{EventGameState, payload(e)})
}

// MarshalJSON adds the "move_made" type tag
func (e MoveMadeEvent) MarshalJSON() ([]byte, error) {
	type payload MoveMadeEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		payload
	}{EventMoveMade, payload(e)})
}

// MarshalJSON adds the "player_joined" type tag
func (e PlayerJoinedEvent) MarshalJSON() ([]byte, error) {
	type payload PlayerJoinedEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		payload
	}{EventPlayerJoined, payload(e)})
}

// MarshalJSON adds the "game_over" type tag
func (e GameOverEvent) MarshalJSON() ([]byte, error) {
	type payload GameOverEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		payload
	}{EventGameOver, payload(e)})
}

// MarshalJSON adds the "error" type tag
func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	type payload ErrorEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		payload
	}{EventError, payload(e)})
}

// DecodeEvent parses a tagged server message into its concrete event type
func DecodeEvent(data []byte) (Event, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var evt Event
	var err error
	switch head.Type {
	case EventGameState:
		var e GameStateEvent
		err = json.Unmarshal(data, &e)
		evt = e
	case EventMoveMade:
		var e MoveMadeEvent
		err = json.Unmarshal(data, &e)
		evt = e
	case EventPlayerJoined:
		var e PlayerJoinedEvent
		err = json.Unmarshal(data, &e)
		evt = e
	case EventGameOver:
		var e GameOverEvent
		err = json.Unmarshal(data, &e)
		evt = e
	case EventError:
		var e ErrorEvent
		err = json.Unmarshal(data, &e)
		evt = e
	default:
		return nil, fmt.Errorf("unknown event type %q", head.Type)
	}
	if err != nil {
		return nil, err
	}
	return evt, nil
}
