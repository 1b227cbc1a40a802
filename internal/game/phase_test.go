package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextLegalTransitions(t *testing.T) {
	cases := []struct {
		name  string
		phase Phase
		mode  Mode
		cmd   Command
		want  Phase
	}{
		{"start round from lobby", PhaseLobby, ModeReflection, CmdStartRound, PhasePrompt},
		{"start round from discussion", PhaseDiscussion, ModeReflection, CmdStartRound, PhasePrompt},
		{"reveal from prompt", PhasePrompt, ModeReflection, CmdReveal, PhaseReveal},
		{"discussion from reveal", PhaseReveal, ModeReflection, CmdDiscuss, PhaseDiscussion},
		{"start race from lobby", PhaseLobby, ModeRace, CmdStartRace, PhaseRace},
		{"chain race from race reveal", PhaseRaceReveal, ModeRace, CmdStartRace, PhaseRace},
		{"end race", PhaseRace, ModeRace, CmdEndRace, PhaseRaceReveal},
		{"back to lobby", PhaseRaceReveal, ModeRace, CmdReturnToLobby, PhaseLobby},
		{"set mode in lobby", PhaseLobby, ModeReflection, CmdSetMode, PhaseLobby},
		{"end session from discussion", PhaseDiscussion, ModeReflection, CmdEndSession, PhaseEnd},
		{"end session from race reveal", PhaseRaceReveal, ModeRace, CmdEndSession, PhaseEnd},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Next(tc.phase, tc.mode, tc.cmd)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNextIllegalTransitions(t *testing.T) {
	cases := []struct {
		name  string
		phase Phase
		mode  Mode
		cmd   Command
	}{
		{"reveal from lobby", PhaseLobby, ModeReflection, CmdReveal},
		{"reveal from reveal", PhaseReveal, ModeReflection, CmdReveal},
		{"start round from prompt", PhasePrompt, ModeReflection, CmdStartRound},
		{"start round in race mode", PhaseLobby, ModeRace, CmdStartRound},
		{"start race in reflection mode", PhaseLobby, ModeReflection, CmdStartRace},
		{"start race mid race", PhaseRace, ModeRace, CmdStartRace},
		{"end race from lobby", PhaseLobby, ModeRace, CmdEndRace},
		{"set mode outside lobby", PhasePrompt, ModeReflection, CmdSetMode},
		{"return to lobby from race", PhaseRace, ModeRace, CmdReturnToLobby},
		{"end session mid prompt", PhasePrompt, ModeReflection, CmdEndSession},
		{"anything from end", PhaseEnd, ModeReflection, CmdStartRound},
		{"unknown command", PhaseLobby, ModeReflection, Command("warp")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Next(tc.phase, tc.mode, tc.cmd)

			var ite *IllegalTransitionError
			require.ErrorAs(t, err, &ite)
			assert.Equal(t, tc.phase, ite.Phase)
			assert.Equal(t, tc.cmd, ite.Command)
			// State must be unchanged on rejection.
			assert.Equal(t, tc.phase, got)
		})
	}
}

func TestIllegalTransitionErrorMessage(t *testing.T) {
	_, err := Next(PhaseReveal, ModeReflection, CmdStartRace)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start_race")
	assert.Contains(t, err.Error(), "reveal")

	var ite *IllegalTransitionError
	assert.True(t, errors.As(err, &ite))
}
