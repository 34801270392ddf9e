package elections

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleTransitions(t *testing.T) {
	chain := []Status{
		StatusCreated,
		StatusRegistrationOpen,
		StatusRegistrationClosed,
		StatusVotingActive,
		StatusVotingEnded,
		StatusResultsAnnounced,
	}
	for i := 0; i < len(chain)-1; i++ {
		assert.True(t, chain[i].CanTransitionTo(chain[i+1]), "%s -> %s", chain[i], chain[i+1])
	}

	// No skipping ahead or moving backwards.
	assert.False(t, StatusCreated.CanTransitionTo(StatusVotingActive))
	assert.False(t, StatusRegistrationOpen.CanTransitionTo(StatusVotingEnded))
	assert.False(t, StatusVotingActive.CanTransitionTo(StatusRegistrationOpen))
	assert.False(t, StatusVotingEnded.CanTransitionTo(StatusVotingActive))
}

func TestCancellationFromNonTerminalStates(t *testing.T) {
	for _, s := range []Status{
		StatusCreated,
		StatusRegistrationOpen,
		StatusRegistrationClosed,
		StatusVotingActive,
		StatusVotingEnded,
	} {
		assert.True(t, s.CanTransitionTo(StatusCancelled), "%s should be cancellable", s)
	}
	assert.False(t, StatusResultsAnnounced.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusCancelled))
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	all := []Status{
		StatusCreated, StatusRegistrationOpen, StatusRegistrationClosed,
		StatusVotingActive, StatusVotingEnded, StatusResultsAnnounced,
		StatusCancelled,
	}
	for _, to := range all {
		assert.False(t, StatusResultsAnnounced.CanTransitionTo(to))
		assert.False(t, StatusCancelled.CanTransitionTo(to))
	}
}

func TestTransitionSources(t *testing.T) {
	assert.ElementsMatch(t, []Status{StatusRegistrationClosed}, TransitionSources(StatusVotingActive))
	assert.ElementsMatch(t, []Status{StatusVotingEnded}, TransitionSources(StatusResultsAnnounced))
	assert.ElementsMatch(t, []Status{
		StatusCreated, StatusRegistrationOpen, StatusRegistrationClosed,
		StatusVotingActive, StatusVotingEnded,
	}, TransitionSources(StatusCancelled))
	assert.Empty(t, TransitionSources(StatusCreated))
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusVotingActive.Valid())
	assert.False(t, Status("paused").Valid())
	assert.False(t, Status("").Valid())
}
