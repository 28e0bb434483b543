package controller

import (
	"errors"
	"fmt"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/config"
)

var (
	// ErrStopped is returned for commands sent to a controller that is not running.
	ErrStopped = errors.New("controller is not running")
	// ErrUnsupported is returned for effects missing from hardware.supported_effects.
	ErrUnsupported = errors.New("effect is not in supported_effects")
	// ErrNoEffectAtIndex is returned when a direct selection has no effect.
	ErrNoEffectAtIndex = errors.New("no supported effect at index")
	// ErrNoPlayableEffect is returned when the playlist shares no effect
	// with the supported set.
	ErrNoPlayableEffect = errors.New("runtime.effects_playlist must contain at least one effect from supported_effects")
	// ErrUnknownOp is returned for a command with an unrecognised Op.
	ErrUnknownOp = errors.New("unknown command")
)

// Op selects what a Command does.
type Op uint8

const (
	OpSetEffect Op = iota + 1
	OpNextEffect
	OpPrevEffect
	OpSelectIndex
	OpResumePlaylist
	OpUpdateConfig
	OpAddToPlaylist
	OpRemoveFromPlaylist
	OpGetStatus
	OpGetConfig
	OpResetState
)

var opNames = map[Op]string{
	OpSetEffect:          "set_effect",
	OpNextEffect:         "next_effect",
	OpPrevEffect:         "prev_effect",
	OpSelectIndex:        "select_index",
	OpResumePlaylist:     "resume_playlist",
	OpUpdateConfig:       "update_config",
	OpAddToPlaylist:      "add_to_playlist",
	OpRemoveFromPlaylist: "remove_from_playlist",
	OpGetStatus:          "get_status",
	OpGetConfig:          "get_config",
	OpResetState:         "reset_state",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// ParseOp returns the Op for a wire name such as "set_effect".
func ParseOp(s string) (Op, error) {
	for op, name := range opNames {
		if name == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownOp, s)
}

// Command is a request from any input source. Only the fields its Op
// reads are used.
type Command struct {
	Op           Op
	Effect       string
	ExitPlaylist bool
	Index        int
	Patch        map[string]any
}

func SetEffect(name string, exitPlaylist bool) Command {
	return Command{Op: OpSetEffect, Effect: name, ExitPlaylist: exitPlaylist}
}

func NextEffect() Command     { return Command{Op: OpNextEffect} }
func PrevEffect() Command     { return Command{Op: OpPrevEffect} }
func ResumePlaylist() Command { return Command{Op: OpResumePlaylist} }
func GetStatus() Command      { return Command{Op: OpGetStatus} }
func GetConfig() Command      { return Command{Op: OpGetConfig} }
func ResetState() Command     { return Command{Op: OpResetState} }

// SelectIndex picks the i-th supported effect and leaves playlist mode.
func SelectIndex(i int) Command {
	return Command{Op: OpSelectIndex, Index: i}
}

// UpdateConfig merges a partial document into the live configuration.
func UpdateConfig(patch map[string]any) Command {
	return Command{Op: OpUpdateConfig, Patch: patch}
}

func AddToPlaylist(name string) Command {
	return Command{Op: OpAddToPlaylist, Effect: name}
}

func RemoveFromPlaylist(name string) Command {
	return Command{Op: OpRemoveFromPlaylist, Effect: name}
}

// Result echoes the state after a command.
type Result struct {
	Status Status
	Config config.Config
}

// CommandError reports a rejected command. State is unchanged.
type CommandError struct {
	Op  Op
	Err error
}

func (e *CommandError) Error() string {
	return e.Op.String() + ": " + e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

type reply struct {
	res Result
	err error
}

type request struct {
	cmd   Command
	reply chan reply
}
