// internal/game/poll_test.go
package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startModePoll(t *testing.T, g *Game, durationMs int64) {
	t.Helper()
	require.NoError(t, g.StartPoll("next mode?", []string{"classic", "rapid"}, durationMs))
}

func TestPollValidation(t *testing.T) {
	g, _, _ := setupTestGame(t)

	assert.True(t, IsInvalidInput(g.StartPoll("q", []string{"only"}, 1000)))
	assert.True(t, IsInvalidInput(g.StartPoll("q", []string{"a", "b"}, 0)))
	assert.True(t, IsInvalidInput(g.StartPoll("q", []string{"a", "A!"}, 1000)), "duplicate after normalization")
	assert.True(t, IsInvalidInput(g.StartPoll("q", []string{"a", "???"}, 1000)), "option empty after normalization")

	startModePoll(t, g, 60_000)
	assert.True(t, IsInvalidState(g.StartPoll("q", []string{"a", "b"}, 1000)), "one poll at a time")

	require.NoError(t, g.StopPoll())
	assert.True(t, IsInvalidState(g.StopPoll()), "no active poll")
}

func TestPollVoteCountsOncePerViewer(t *testing.T) {
	g, mb, fc := setupTestGame(t)
	startModePoll(t, g, 60_000)
	mb.clear()

	say(g, fc, "u1", "alice", "rapid")
	fc.advance(time.Second)
	say(g, fc, "u1", "alice", "classic") // second vote ignored
	say(g, fc, "u2", "bob", "who cares") // not a vote

	snap := g.Snapshot()
	require.NotNil(t, snap.Poll)
	assert.Equal(t, 1, snap.Poll.Tallies["rapid"])
	assert.Equal(t, 0, snap.Poll.Tallies["classic"])
	assert.Equal(t, 1, mb.countOfType(EventPollUpdate), "only counted votes broadcast a tally update")
}

func TestPollMajorityChangesMode(t *testing.T) {
	g, mb, fc := setupTestGame(t)
	startModePoll(t, g, 60_000)

	voters := []string{"u1", "u2", "u3", "u4", "u5"}
	for _, v := range voters {
		say(g, fc, v, v, "rapid")
	}
	say(g, fc, "u6", "u6", "classic")
	say(g, fc, "u7", "u7", "classic")

	require.NoError(t, g.StopPoll())

	end := mb.lastOfType(EventPollEnd)
	require.NotNil(t, end)
	result := end.Payload.(PollResult)
	assert.Equal(t, "rapid", result.Winner)
	assert.Equal(t, 5, result.Tallies["rapid"])
	assert.Equal(t, 2, result.Tallies["classic"])

	assert.Equal(t, ModeRapid, g.CurrentMode())
	assert.Nil(t, g.Snapshot().Poll, "poll destroyed on close")
}

func TestPollTieKeepsFirstListedOption(t *testing.T) {
	g, mb, fc := setupTestGame(t)
	require.Equal(t, ModeClassic, g.CurrentMode())

	// Call sites list the current mode first, so a tie is status quo.
	startModePoll(t, g, 60_000)
	for i, v := range []string{"u1", "u2", "u3", "u4", "u5", "u6"} {
		if i%2 == 0 {
			say(g, fc, v, v, "classic")
		} else {
			say(g, fc, v, v, "rapid")
		}
	}

	require.NoError(t, g.StopPoll())

	result := mb.lastOfType(EventPollEnd).Payload.(PollResult)
	assert.Equal(t, "classic", result.Winner, "strict > keeps the first-listed max")
	assert.Equal(t, ModeClassic, g.CurrentMode())
}

func TestPollZeroVotesKeepsFirstListed(t *testing.T) {
	g, mb, _ := setupTestGame(t)

	startModePoll(t, g, 60_000)
	require.NoError(t, g.StopPoll())

	result := mb.lastOfType(EventPollEnd).Payload.(PollResult)
	assert.Equal(t, "classic", result.Winner)
}

func TestPollAutoCloseFires(t *testing.T) {
	g, mb, _ := setupTestGame(t)

	startModePoll(t, g, 30)

	require.Eventually(t, func() bool {
		return mb.countOfType(EventPollEnd) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Nil(t, g.Snapshot().Poll)

	// The scheduled close and any later manual stop may only act once.
	assert.True(t, IsInvalidState(g.StopPoll()))
	assert.Equal(t, 1, mb.countOfType(EventPollEnd), "no double winner emission")
}

func TestManualStopCancelsAutoClose(t *testing.T) {
	g, mb, _ := setupTestGame(t)

	startModePoll(t, g, 40)
	require.NoError(t, g.StopPoll())

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 1, mb.countOfType(EventPollEnd), "stale auto-close is a no-op")
}

func TestVotesAndGuessesAreIndependentAxes(t *testing.T) {
	g, mb, fc := setupTestGame(t)
	require.NoError(t, g.SetSecret("rapid")) // secret happens to equal a poll option
	startModePoll(t, g, 60_000)
	mb.clear()

	say(g, fc, "u1", "alice", "rapid")

	// One message is simultaneously a counted vote and a winning guess.
	assert.Equal(t, 1, mb.countOfType(EventPollUpdate))
	assert.Equal(t, 1, mb.countOfType(EventWinner))
}
