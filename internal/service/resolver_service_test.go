package service

import (
	"context"
	"testing"

	"bracket-be/internal/domain"
	"bracket-be/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("higher score wins and loser is eliminated", func(t *testing.T) {
		e := newEngine(t)
		_, matches := seedRunningSeason(t, e)
		m1 := matches[1]

		// 1003 vs 1001
		for _, key := range []string{"v1", "v2", "v3"} {
			_, err := e.voting.CastVote(ctx, m1.ID, *m1.EntrantAID, key)
			require.NoError(t, err)
		}
		_, err := e.voting.CastVote(ctx, m1.ID, *m1.EntrantBID, "v4")
		require.NoError(t, err)

		outcome, err := e.resolver.ResolveMatch(ctx, m1.ID)
		require.NoError(t, err)

		assert.Equal(t, *m1.EntrantAID, outcome.WinnerID)
		assert.Equal(t, *m1.EntrantBID, outcome.LoserID)
		assert.Equal(t, 1003, outcome.FinalScoreA)
		assert.Equal(t, 1001, outcome.FinalScoreB)
		assert.False(t, outcome.TieBreakRandom)
		assert.False(t, outcome.Replayed)

		loser, err := e.store.GetEntrantByID(ctx, outcome.LoserID)
		require.NoError(t, err)
		assert.True(t, loser.Eliminated)

		stored, err := e.store.GetMatchByID(ctx, m1.ID)
		require.NoError(t, err)
		assert.True(t, stored.Finished)
		assert.False(t, stored.Active)
		require.NotNil(t, stored.FinalScoreA)
		assert.Equal(t, 1003, *stored.FinalScoreA)
	})

	t.Run("winner advances into the next match slot", func(t *testing.T) {
		e := newEngine(t)
		_, matches := seedRunningSeason(t, e)
		m1 := matches[1]

		_, err := e.voting.CastVote(ctx, m1.ID, *m1.EntrantAID, "v1")
		require.NoError(t, err)

		outcome, err := e.resolver.ResolveMatch(ctx, m1.ID)
		require.NoError(t, err)
		assert.False(t, outcome.NextMatchActivated)

		semi, err := e.store.GetMatchByID(ctx, matches[5].ID)
		require.NoError(t, err)
		require.NotNil(t, semi.EntrantAID)
		assert.Equal(t, outcome.WinnerID, *semi.EntrantAID)
		assert.Nil(t, semi.EntrantBID)
		assert.False(t, semi.Active)
	})

	t.Run("second feeder activates the next match with reset scores", func(t *testing.T) {
		e := newEngine(t)
		_, matches := seedRunningSeason(t, e)

		out1, err := e.resolver.ResolveMatch(ctx, matches[1].ID)
		require.NoError(t, err)

		// Match 2 is not active yet; activate it, vote, resolve it too.
		m2, err := e.scheduler.StartNextMatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, m2.MatchNumber)

		_, err = e.voting.CastVote(ctx, m2.ID, *m2.EntrantBID, "v1")
		require.NoError(t, err)

		out2, err := e.resolver.ResolveMatch(ctx, m2.ID)
		require.NoError(t, err)
		assert.True(t, out2.NextMatchActivated)

		semi, err := e.store.GetMatchByID(ctx, matches[5].ID)
		require.NoError(t, err)
		assert.True(t, semi.Active)
		require.NotNil(t, semi.EntrantAID)
		require.NotNil(t, semi.EntrantBID)
		assert.Equal(t, out1.WinnerID, *semi.EntrantAID)
		assert.Equal(t, out2.WinnerID, *semi.EntrantBID)
		assert.Equal(t, 1000, semi.CurrentScoreA)
		assert.Equal(t, 1000, semi.CurrentScoreB)
		require.NotNil(t, semi.EndsAt)
	})

	t.Run("resolving again replays the recorded outcome", func(t *testing.T) {
		e := newEngine(t)
		_, matches := seedRunningSeason(t, e)
		m1 := matches[1]

		_, err := e.voting.CastVote(ctx, m1.ID, *m1.EntrantAID, "v1")
		require.NoError(t, err)

		first, err := e.resolver.ResolveMatch(ctx, m1.ID)
		require.NoError(t, err)

		second, err := e.resolver.ResolveMatch(ctx, m1.ID)
		require.NoError(t, err)
		assert.True(t, second.Replayed)
		assert.Equal(t, first.WinnerID, second.WinnerID)
		assert.Equal(t, first.LoserID, second.LoserID)
		assert.Equal(t, first.FinalScoreA, second.FinalScoreA)

		// The winner slots into the semifinal exactly once.
		semi, err := e.store.GetMatchByID(ctx, matches[5].ID)
		require.NoError(t, err)
		require.NotNil(t, semi.EntrantAID)
		assert.Nil(t, semi.EntrantBID)
	})

	t.Run("tie breaks by coin flip and records the flag", func(t *testing.T) {
		e := newEngine(t)
		_, matches := seedRunningSeason(t, e)
		m1 := matches[1]

		e.resolver.coin = func() bool { return true }

		outcome, err := e.resolver.ResolveMatch(ctx, m1.ID)
		require.NoError(t, err)
		assert.True(t, outcome.TieBreakRandom)
		assert.Equal(t, *m1.EntrantAID, outcome.WinnerID)

		stored, err := e.store.GetMatchByID(ctx, m1.ID)
		require.NoError(t, err)
		assert.True(t, stored.TieBreakRandom)
	})

	t.Run("rejects an inactive unfinished match", func(t *testing.T) {
		e := newEngine(t)
		_, matches := seedRunningSeason(t, e)

		_, err := e.resolver.ResolveMatch(ctx, matches[2].ID)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeMatchNotActive))
	})

	t.Run("rejects an unknown match", func(t *testing.T) {
		e := newEngine(t)
		seedRunningSeason(t, e)

		_, err := e.resolver.ResolveMatch(ctx, uuid.New())
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeMatchNotFound))
	})

	t.Run("playing every match completes the tournament", func(t *testing.T) {
		e := newEngine(t)
		seedRunningSeason(t, e)

		// Resolve whatever is live, starting the next match whenever the
		// bracket pauses. Feeder pairs auto-activate their next match.
		resolutions := 0
		for {
			active, err := e.store.GetAnyActiveForUpdate(ctx, nil)
			require.NoError(t, err)
			if active == nil {
				started, err := e.scheduler.StartNextMatch(ctx)
				require.NoError(t, err)
				active = started
			}

			outcome, err := e.resolver.ResolveMatch(ctx, active.ID)
			require.NoError(t, err)
			resolutions++
			require.LessOrEqual(t, resolutions, domain.MatchCount)

			if outcome.TournamentComplete {
				assert.Nil(t, outcome.NextMatchID)
				break
			}
		}

		assert.Equal(t, domain.MatchCount, resolutions)

		// Champion is the only entrant never eliminated.
		survivors := 0
		for _, entrant := range e.store.entrants {
			if !entrant.Eliminated {
				survivors++
			}
		}
		assert.Equal(t, 1, survivors)
	})
}

func TestSecureCoinIsRoughlyFair(t *testing.T) {
	heads := 0
	const flips = 2000
	for i := 0; i < flips; i++ {
		if secureCoin() {
			heads++
		}
	}
	// ~6 standard deviations of slack; a fair coin stays inside this.
	assert.Greater(t, heads, 860)
	assert.Less(t, heads, 1140)
}
