package game

import "fmt"

type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhasePrompt     Phase = "prompt"
	PhaseReveal     Phase = "reveal"
	PhaseDiscussion Phase = "discussion"
	PhaseRace       Phase = "opposite_action_race"
	PhaseRaceReveal Phase = "race_reveal"
	PhaseEnd        Phase = "end"
)

// Mode selects which phase subgraph is reachable. It may only change while
// the game sits in the lobby.
type Mode string

const (
	ModeReflection Mode = "reflection"
	ModeRace       Mode = "opposite_action_race"
)

func ValidMode(m Mode) bool {
	return m == ModeReflection || m == ModeRace
}

// Command is a host intent against the session state machine.
type Command string

const (
	CmdStartRound    Command = "start_round"
	CmdReveal        Command = "reveal"
	CmdDiscuss       Command = "start_discussion"
	CmdStartRace     Command = "start_race"
	CmdEndRace       Command = "end_race"
	CmdReturnToLobby Command = "return_to_lobby"
	CmdSetMode       Command = "set_mode"
	CmdEndSession    Command = "end_session"
)

// IllegalTransitionError reports a command issued from a phase (or mode)
// where it is not legal. The caller's state is left unchanged.
type IllegalTransitionError struct {
	Phase   Phase
	Mode    Mode
	Command Command
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("command %q not allowed in phase %q (mode %q)", e.Command, e.Phase, e.Mode)
}

// transitions maps each command to the phases it may be issued from and the
// phase it lands in. Commands with a mode requirement carry it alongside.
var transitions = map[Command]struct {
	from map[Phase]bool
	to   Phase
	mode Mode // empty = any mode
}{
	CmdStartRound:    {from: phaseSet(PhaseLobby, PhaseDiscussion), to: PhasePrompt, mode: ModeReflection},
	CmdReveal:        {from: phaseSet(PhasePrompt), to: PhaseReveal, mode: ModeReflection},
	CmdDiscuss:       {from: phaseSet(PhaseReveal), to: PhaseDiscussion, mode: ModeReflection},
	CmdStartRace:     {from: phaseSet(PhaseLobby, PhaseRaceReveal), to: PhaseRace, mode: ModeRace},
	CmdEndRace:       {from: phaseSet(PhaseRace), to: PhaseRaceReveal, mode: ModeRace},
	CmdReturnToLobby: {from: phaseSet(PhaseRaceReveal), to: PhaseLobby, mode: ModeRace},
	CmdSetMode:       {from: phaseSet(PhaseLobby), to: PhaseLobby},
	CmdEndSession:    {from: phaseSet(PhaseLobby, PhaseReveal, PhaseDiscussion, PhaseRaceReveal), to: PhaseEnd},
}

func phaseSet(phases ...Phase) map[Phase]bool {
	m := make(map[Phase]bool, len(phases))
	for _, p := range phases {
		m[p] = true
	}
	return m
}

// Next is the single transition authority. It validates cmd against the
// current phase and mode and returns the resulting phase, or an
// *IllegalTransitionError leaving the state untouched.
func Next(phase Phase, mode Mode, cmd Command) (Phase, error) {
	t, ok := transitions[cmd]
	if !ok || !t.from[phase] || (t.mode != "" && t.mode != mode) {
		return phase, &IllegalTransitionError{Phase: phase, Mode: mode, Command: cmd}
	}
	return t.to, nil
}
