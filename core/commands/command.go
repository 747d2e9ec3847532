// Package commands turns free-form transcripts into component visibility
// commands.
package commands

import "fmt"

type CommandType int

const (
	Enable CommandType = iota + 1
	Disable
	Toggle
)

func (t CommandType) String() string {
	switch t {
	case Enable:
		return "enable"
	case Disable:
		return "disable"
	case Toggle:
		return "toggle"
	}
	return "unknown"
}

// Command is a single recognized instruction. It is consumed once by the
// visibility applier.
type Command struct {
	Type   CommandType
	Target Component
}

func (c Command) AppliesToAll() bool { return c.Target == All }

func (c Command) String() string {
	return fmt.Sprintf("%s %s", c.Type, c.Target)
}

type action struct {
	verb        string
	commandType CommandType
}

// actions is ordered; the fuzzy strategy extracts the first verb of this list
// that occurs in the utterance.
var actions = []action{
	{verb: "enable", commandType: Enable},
	{verb: "disable", commandType: Disable},
	{verb: "show", commandType: Enable},
	{verb: "hide", commandType: Disable},
	{verb: "toggle", commandType: Toggle},
}

// phraseActions is the order in which verb+phrase patterns are tried.
var phraseActions = []action{
	{verb: "enable", commandType: Enable},
	{verb: "show", commandType: Enable},
	{verb: "disable", commandType: Disable},
	{verb: "hide", commandType: Disable},
	{verb: "toggle", commandType: Toggle},
}

// letterActions are the only verbs combined with a single-letter alias.
var letterActions = []action{
	{verb: "enable", commandType: Enable},
	{verb: "show", commandType: Enable},
}
