package model

import "encoding/json"

// CommandType identifies an inbound connection command
type CommandType string

const (
	CommandMakeMove CommandType = "make_move"
	CommandResign   CommandType = "resign"
)

// Command is a client message received over a live connection
type Command struct {
	Type   CommandType `json:"type"`
	Move   string      `json:"move,omitempty"`
	Secret string      `json:"secret"`
}

// DecodeCommand parses a client message, rejecting unknown types
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, err
	}
	switch cmd.Type {
	case CommandMakeMove, CommandResign:
		return cmd, nil
	default:
		return Command{}, ErrUnknownCommand
	}
}
