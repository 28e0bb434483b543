package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/config"
)

// Message is the JSON form of a Command used by the MQTT and websocket
// control channels.
type Message struct {
	Command      string         `json:"command"`
	Effect       string         `json:"effect,omitempty"`
	ExitPlaylist *bool          `json:"exit_playlist,omitempty"`
	Index        *int           `json:"index,omitempty"`
	Config       map[string]any `json:"config,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
}

// Response answers a Message.
type Response struct {
	CommandAck string         `json:"command_ack"`
	RequestID  string         `json:"request_id,omitempty"`
	Status     string         `json:"status"`
	Data       *Status        `json:"data,omitempty"`
	Config     *config.Config `json:"config,omitempty"`
	Error      string         `json:"error,omitempty"`
	Timestamp  int64          `json:"timestamp"`
}

var errMissingField = errors.New("missing field")

// DecodeMessage parses a JSON control message into a Command.
func DecodeMessage(data []byte) (Message, Command, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return m, Command{}, fmt.Errorf("invalid JSON: %w", err)
	}
	op, err := ParseOp(m.Command)
	if err != nil {
		return m, Command{}, err
	}
	cmd := Command{Op: op, Effect: m.Effect, Patch: m.Config}
	switch op {
	case OpSetEffect, OpAddToPlaylist, OpRemoveFromPlaylist:
		if m.Effect == "" {
			return m, Command{}, fmt.Errorf("%s: %w 'effect'", op, errMissingField)
		}
		cmd.ExitPlaylist = m.ExitPlaylist == nil || *m.ExitPlaylist
	case OpSelectIndex:
		if m.Index == nil {
			return m, Command{}, fmt.Errorf("%s: %w 'index'", op, errMissingField)
		}
		cmd.Index = *m.Index
	case OpUpdateConfig:
		if len(m.Config) == 0 {
			return m, Command{}, fmt.Errorf("%s: %w 'config'", op, errMissingField)
		}
	}
	return m, cmd, nil
}

// Respond builds the answer to m from a command outcome.
func Respond(m Message, res Result, err error) Response {
	r := Response{
		CommandAck: m.Command,
		RequestID:  m.RequestID,
		Timestamp:  time.Now().UnixMilli(),
	}
	if r.CommandAck == "" {
		r.CommandAck = "unknown"
	}
	if err != nil {
		r.Status = "error"
		r.Error = err.Error()
		return r
	}
	r.Status = "success"
	r.Data = &res.Status
	if m.Command == OpGetConfig.String() || m.Command == OpUpdateConfig.String() {
		r.Config = &res.Config
	}
	return r
}
