package service

import (
	"context"
	"testing"
	"time"

	"bracket-be/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDueMatches(t *testing.T) {
	ctx := context.Background()

	t.Run("no-op while the active match still has time", func(t *testing.T) {
		e := newEngine(t)
		seedRunningSeason(t, e)

		resolved, err := e.scheduler.ResolveDueMatches(ctx)
		require.NoError(t, err)
		assert.Zero(t, resolved)

		active, err := e.store.GetAnyActiveForUpdate(ctx, nil)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.False(t, active.Finished)
	})

	t.Run("resolves a match past its deadline", func(t *testing.T) {
		e := newEngine(t)
		_, matches := seedRunningSeason(t, e)
		m1 := matches[1]

		e.scheduler.now = func() time.Time { return m1.EndsAt.Add(time.Second) }

		resolved, err := e.scheduler.ResolveDueMatches(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, resolved)

		stored, err := e.store.GetMatchByID(ctx, m1.ID)
		require.NoError(t, err)
		assert.True(t, stored.Finished)
	})

	t.Run("second pass over the same deadline resolves nothing", func(t *testing.T) {
		e := newEngine(t)
		_, matches := seedRunningSeason(t, e)
		m1 := matches[1]

		e.scheduler.now = func() time.Time { return m1.EndsAt.Add(time.Second) }

		resolved, err := e.scheduler.ResolveDueMatches(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, resolved)

		resolved, err = e.scheduler.ResolveDueMatches(ctx)
		require.NoError(t, err)
		assert.Zero(t, resolved)
	})
}

func TestStartNextMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses while a match is active", func(t *testing.T) {
		e := newEngine(t)
		seedRunningSeason(t, e)

		_, err := e.scheduler.StartNextMatch(ctx)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeActiveMatchExists))
	})

	t.Run("starts the lowest eligible match with reset scores", func(t *testing.T) {
		e := newEngine(t)
		_, matches := seedRunningSeason(t, e)

		_, err := e.resolver.ResolveMatch(ctx, matches[1].ID)
		require.NoError(t, err)

		started, err := e.scheduler.StartNextMatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, started.MatchNumber)
		assert.True(t, started.Active)
		assert.Equal(t, 1000, started.CurrentScoreA)
		assert.Equal(t, 1000, started.CurrentScoreB)
		require.NotNil(t, started.EndsAt)
		assert.Equal(t, started.StartedAt.Add(e.cfg.MatchDuration), *started.EndsAt)
	})

	t.Run("errors when nothing is eligible", func(t *testing.T) {
		e := newEngine(t)
		ctx := context.Background()

		_, err := e.bracket.CreateSeason(ctx, "Unseeded")
		require.NoError(t, err)

		_, err = e.scheduler.StartNextMatch(ctx)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeNoEligibleMatch))
	})
}

func TestSchedulerLifecycle(t *testing.T) {
	e := newEngine(t)
	e.cfg.SchedulerInterval = 10 * time.Millisecond
	_, matches := seedRunningSeason(t, e)
	m1 := matches[1]

	e.scheduler.now = func() time.Time { return m1.EndsAt.Add(time.Second) }

	e.scheduler.Start(context.Background())
	defer e.scheduler.Stop()

	require.Eventually(t, func() bool {
		stored, err := e.store.GetMatchByID(context.Background(), m1.ID)
		return err == nil && stored.Finished
	}, 2*time.Second, 10*time.Millisecond)
}

func TestShortenActiveMatch(t *testing.T) {
	ctx := context.Background()

	e := newEngine(t)
	_, matches := seedRunningSeason(t, e)
	m1 := matches[1]

	shortened, err := e.scheduler.ShortenActiveMatch(ctx, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, m1.ID, shortened.ID)
	require.NotNil(t, shortened.EndsAt)
	assert.True(t, shortened.EndsAt.Before(*m1.EndsAt))

	resolved, err := e.scheduler.ResolveDueMatches(ctx)
	require.NoError(t, err)
	assert.Zero(t, resolved) // still 5 seconds out

	e.scheduler.now = func() time.Time { return shortened.EndsAt.Add(time.Second) }
	resolved, err = e.scheduler.ResolveDueMatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
}
