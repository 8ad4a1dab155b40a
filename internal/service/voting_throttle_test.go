package service

import (
	"context"
	"testing"
	"time"

	"bracket-be/pkg/errors"
	"bracket-be/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// With a cache attached, repeat attempts inside the cooldown window are
// turned away before the transaction; after the window the ledger's dedup
// still refuses a second ballot.
func TestCastVoteThrottle(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	cache, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	e := newEngine(t)
	e.voting.cache = cache
	_, matches := seedRunningSeason(t, e)
	m1 := matches[1]

	_, err = e.voting.CastVote(ctx, m1.ID, *m1.EntrantAID, "voter-1")
	require.NoError(t, err)

	// Immediate retry trips the cooldown, not the dedup.
	_, err = e.voting.CastVote(ctx, m1.ID, *m1.EntrantAID, "voter-1")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeCooldown))

	// A different voter is unaffected.
	_, err = e.voting.CastVote(ctx, m1.ID, *m1.EntrantBID, "voter-2")
	require.NoError(t, err)

	// Past the window the attempt reaches the ledger and the unique
	// constraint answers instead.
	mr.FastForward(e.cfg.VoteCooldown + time.Second)
	_, err = e.voting.CastVote(ctx, m1.ID, *m1.EntrantAID, "voter-1")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeAlreadyVoted))
}
